package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	speakDevices   []string
	speakTTSVolume int
	speakStdVolume int
)

var speakCmd = &cobra.Command{
	Use:   "speak <text>",
	Short: "Speak text on one or more devices",
	Long: `Speaks the given text on the target devices.

Multiple --device flags issued in one invocation are merged into a
single remote call. With --tts-volume the device volume is raised for
the spoken text and restored to --volume afterwards.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSpeak,
}

func init() {
	speakCmd.Flags().StringSliceVarP(&speakDevices, "device", "d", nil, "target device name or serial (repeatable)")
	speakCmd.Flags().IntVar(&speakTTSVolume, "tts-volume", 0, "volume while speaking (0 = leave unchanged)")
	speakCmd.Flags().IntVar(&speakStdVolume, "volume", 0, "volume to restore afterwards (0 = leave unchanged)")
	rootCmd.AddCommand(speakCmd)
}

func runSpeak(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	account, err := openAccount(ctx)
	if err != nil {
		return err
	}
	defer account.Stop()

	text := strings.Join(args, " ")
	ttsVolume, stdVolume := volumeFlags(speakTTSVolume, speakStdVolume)

	for _, key := range targetDevices(speakDevices) {
		device, err := resolveDevice(ctx, account, key)
		if err != nil {
			return err
		}
		if err := account.Speak(device, text, ttsVolume, stdVolume); err != nil {
			return err
		}
	}

	if err := account.Drain(ctx); err != nil {
		return fmt.Errorf("command did not finish: %w", err)
	}
	return nil
}

// targetDevices turns the repeated --device flag into resolvable keys,
// defaulting to one empty key so the configured default applies.
func targetDevices(flags []string) []string {
	if len(flags) == 0 {
		return []string{""}
	}
	return flags
}

// volumeFlags maps the flag convention (0 means untouched) onto the
// engine convention (negative means untouched).
func volumeFlags(tts, std int) (int, int) {
	if tts == 0 {
		tts = cfg.Defaults.TTSVolume
	}
	if std == 0 {
		std = cfg.Defaults.StandardVolume
	}
	if tts == 0 {
		tts = -1
	}
	if std == 0 {
		std = -1
	}
	return tts, std
}
