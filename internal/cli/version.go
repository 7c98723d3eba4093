package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// version and commit are stamped via -ldflags at release time.
var (
	version = "dev"
	commit  = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		platform := runtime.GOOS + "/" + runtime.GOARCH
		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]string{
				"version":  version,
				"commit":   commit,
				"go":       runtime.Version(),
				"platform": platform,
			})
			return
		}

		line := "echoctl " + version
		if commit != "" {
			line += " (" + commit + ")"
		}
		fmt.Println(line)
		fmt.Println(dimStyle.Render(runtime.Version() + " " + platform))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
