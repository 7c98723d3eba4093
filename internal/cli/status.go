package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/echoctl/echoctl/internal/alexa"
	"github.com/echoctl/echoctl/internal/alexa/client"
	"github.com/echoctl/echoctl/internal/core"
)

var (
	statusDevice string
	statusWatch  bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show playback status across devices",
	Long: `Shows the playback state of every online device.

With --watch, a live view refreshes until interrupted.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusDevice, "device", "d", "", "show status for a specific device")
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "live refresh view")
	rootCmd.AddCommand(statusCmd)
}

// deviceStatus pairs a device with its best-effort playback state.
type deviceStatus struct {
	Device *core.Device        `json:"device"`
	Player *client.PlayerState `json:"player,omitempty"`
	DND    bool                `json:"doNotDisturb"`
}

func collectStatus(ctx context.Context, account *alexa.Account, deviceKey string) ([]deviceStatus, error) {
	var devices []core.Device
	if deviceKey != "" {
		d, err := account.Client().FindDevice(ctx, deviceKey)
		if err != nil {
			return nil, err
		}
		devices = []core.Device{*d}
	} else {
		var err error
		devices, err = account.Client().DeviceList(ctx)
		if err != nil {
			return nil, err
		}
	}

	dnd := make(map[string]bool)
	for _, state := range account.Client().DoNotDisturb(ctx) {
		dnd[state.DeviceSerial] = state.Enabled
	}

	statuses := make([]deviceStatus, 0, len(devices))
	for i := range devices {
		d := devices[i]
		status := deviceStatus{Device: &d, DND: dnd[d.Serial]}
		if d.Online {
			// Player state is best effort; offline or idle devices
			// often return nothing useful.
			if player, err := account.Client().PlayerState(ctx, &d); err == nil {
				status.Player = player
			}
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	account, err := openAccount(ctx)
	if err != nil {
		return err
	}
	defer account.Stop()

	if statusWatch {
		interval := time.Duration(cfg.Watch.RefreshInterval) * time.Millisecond
		return runWatch(ctx, account, statusDevice, interval)
	}

	statuses, err := collectStatus(ctx, account, statusDevice)
	if err != nil {
		return err
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(statuses)
	}

	renderStatusTable(os.Stdout, statuses)
	return nil
}

func renderStatusTable(out io.Writer, statuses []deviceStatus) {
	table := NewTableWriter(out, "", "NAME", "STATE", "VOLUME", "PLAYING", "DND")
	for _, s := range statuses {
		state, volume, playing := "-", "-", "-"
		if s.Player != nil {
			if s.Player.State != "" {
				state = s.Player.State
			}
			if s.Player.Volume != nil {
				volume = volumeLabel(s.Player.Volume)
			}
			if s.Player.InfoText != nil && s.Player.InfoText.Title != "" {
				playing = TruncateString(s.Player.InfoText.Title, 40)
			}
		}
		dnd := ""
		if s.DND {
			dnd = "on"
		}
		table.Row(StatusIcon(s.Device.Online), TruncateString(s.Device.Name, 32), state, volume, playing, dnd)
	}
	table.Flush()
}

func volumeLabel(v *client.PlayerVolume) string {
	if v.Muted {
		return "muted"
	}
	return strconv.Itoa(v.Volume)
}
