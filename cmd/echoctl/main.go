package main

import "github.com/echoctl/echoctl/internal/cli"

func main() {
	cli.Execute()
}
