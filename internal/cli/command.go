package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var commandDevices []string

var commandCmd = &cobra.Command{
	Use:   "command <text>",
	Short: "Send a text command to a device",
	Long: `Sends the given text as if it had been spoken to the device.

Example: echoctl command -d Kitchen "play jazz"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

func init() {
	commandCmd.Flags().StringSliceVarP(&commandDevices, "device", "d", nil, "target device name or serial (repeatable)")
	rootCmd.AddCommand(commandCmd)
}

func runCommand(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	account, err := openAccount(ctx)
	if err != nil {
		return err
	}
	defer account.Stop()

	text := strings.Join(args, " ")
	for _, key := range targetDevices(commandDevices) {
		device, err := resolveDevice(ctx, account, key)
		if err != nil {
			return err
		}
		if err := account.TextCommand(device, text); err != nil {
			return err
		}
	}

	if err := account.Drain(ctx); err != nil {
		return fmt.Errorf("command did not finish: %w", err)
	}
	return nil
}
