package cli

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent voice interactions",
	Long:  `Shows the most recent voice interactions recorded for the account.`,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "number of records to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	account, err := openAccount(ctx)
	if err != nil {
		return err
	}
	defer account.Stop()

	limit := historyLimit
	if limit <= 0 {
		limit = cfg.Dispatch.HistorySize
	}

	activities := account.Client().Activities(ctx, limit)

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(activities)
	}

	if len(activities) == 0 {
		NormalF("No recent activity.")
		return nil
	}

	table := NewTable("TIME", "DEVICE", "UTTERANCE")
	for _, a := range activities {
		summary := a.Summary()
		if summary == "" {
			summary = dimStyle.Render("(unavailable)")
		}
		table.Row(
			time.UnixMilli(a.CreationTime).Format("Jan 2 15:04:05"),
			a.RegisteredSerial,
			TruncateString(summary, 60),
		)
	}
	table.Flush()
	return nil
}
