package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var (
	volumeDevices      []string
	volumeNotification bool
)

var volumeCmd = &cobra.Command{
	Use:   "volume <level>",
	Short: "Set device volume",
	Long: `Sets the playback volume (0-100) on the target devices.

With --notification the alarm and notification volume is set instead
of the playback volume.`,
	Args: cobra.ExactArgs(1),
	RunE: runVolume,
}

func init() {
	volumeCmd.Flags().StringSliceVarP(&volumeDevices, "device", "d", nil, "target device name or serial (repeatable)")
	volumeCmd.Flags().BoolVarP(&volumeNotification, "notification", "n", false, "set the notification volume instead")
	rootCmd.AddCommand(volumeCmd)
}

func runVolume(cmd *cobra.Command, args []string) error {
	level, err := strconv.Atoi(args[0])
	if err != nil || level < 0 || level > 100 {
		return fmt.Errorf("invalid volume %q (must be 0-100)", args[0])
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	account, err := openAccount(ctx)
	if err != nil {
		return err
	}
	defer account.Stop()

	for _, key := range targetDevices(volumeDevices) {
		device, err := resolveDevice(ctx, account, key)
		if err != nil {
			return err
		}
		if volumeNotification {
			if err := account.Client().NotificationVolume(ctx, device, level); err != nil {
				return err
			}
			continue
		}
		if err := account.SetVolume(device, level); err != nil {
			return err
		}
	}

	if volumeNotification {
		return nil
	}
	if err := account.Drain(ctx); err != nil {
		return fmt.Errorf("command did not finish: %w", err)
	}
	return nil
}
