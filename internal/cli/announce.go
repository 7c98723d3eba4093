package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	announceDevices   []string
	announceTitle     string
	announceTTSVolume int
	announceStdVolume int
)

var announceCmd = &cobra.Command{
	Use:   "announce <text>",
	Short: "Play an announcement on one or more devices",
	Long: `Plays an announcement with the given body text.

Announcements show a card on devices with a screen and play a chime
before the spoken content. Volume restoration runs as a separate step
after the announcement has played.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnnounce,
}

func init() {
	announceCmd.Flags().StringSliceVarP(&announceDevices, "device", "d", nil, "target device name or serial (repeatable)")
	announceCmd.Flags().StringVarP(&announceTitle, "title", "t", "", "card title")
	announceCmd.Flags().IntVar(&announceTTSVolume, "tts-volume", 0, "volume while playing (0 = leave unchanged)")
	announceCmd.Flags().IntVar(&announceStdVolume, "volume", 0, "volume to restore afterwards (0 = leave unchanged)")
	rootCmd.AddCommand(announceCmd)
}

func runAnnounce(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	account, err := openAccount(ctx)
	if err != nil {
		return err
	}
	defer account.Stop()

	body := strings.Join(args, " ")
	ttsVolume, stdVolume := volumeFlags(announceTTSVolume, announceStdVolume)

	for _, key := range targetDevices(announceDevices) {
		device, err := resolveDevice(ctx, account, key)
		if err != nil {
			return err
		}
		if err := account.Announce(device, announceTitle, body, ttsVolume, stdVolume); err != nil {
			return err
		}
	}

	if err := account.Drain(ctx); err != nil {
		return fmt.Errorf("command did not finish: %w", err)
	}
	return nil
}
