package cli

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List timers, alarms and reminders",
	RunE:  runNotifications,
}

func init() {
	rootCmd.AddCommand(notificationsCmd)
}

func runNotifications(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	account, err := openAccount(ctx)
	if err != nil {
		return err
	}
	defer account.Stop()

	notifications := account.Client().Notifications(ctx)

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(notifications)
	}

	if len(notifications) == 0 {
		NormalF("No timers, alarms or reminders.")
		return nil
	}

	table := NewTable("TYPE", "STATUS", "DEVICE", "WHEN", "LABEL")
	for _, n := range notifications {
		when := ""
		switch {
		case n.OriginalDate != "" || n.OriginalTime != "":
			when = n.OriginalDate + " " + n.OriginalTime
		case n.TriggerTime > 0:
			when = time.UnixMilli(n.TriggerTime).Format("Jan 2 15:04:05")
		}
		table.Row(n.Type, n.Status, n.DeviceSerial, when, TruncateString(n.ReminderLabel, 40))
	}
	table.Flush()
	return nil
}
