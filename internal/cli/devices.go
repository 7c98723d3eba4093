package cli

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List account devices",
	Long:  `Lists all speakers registered to the account.`,
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	account, err := openAccount(ctx)
	if err != nil {
		return err
	}
	defer account.Stop()

	devices, err := account.Client().DeviceList(ctx)
	if err != nil {
		return err
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(devices)
	}

	wakeWords := make(map[string]string)
	for _, w := range account.Client().WakeWords(ctx) {
		wakeWords[w.DeviceSerial] = w.WakeWord
	}

	table := NewTable("", "NAME", "SERIAL", "TYPE", "FAMILY", "WAKE WORD")
	for _, d := range devices {
		table.Row(
			StatusIcon(d.Online),
			TruncateString(d.Name, 32),
			d.Serial,
			d.Type,
			string(d.Family),
			wakeWords[d.Serial],
		)
	}
	table.Flush()
	return nil
}
