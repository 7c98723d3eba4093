package cli

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var routineDevice string

var routineCmd = &cobra.Command{
	Use:   "routine",
	Short: "List and start stored routines",
}

var routineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored routines",
	RunE:  runRoutineList,
}

var routineStartCmd = &cobra.Command{
	Use:   "start <utterance>",
	Short: "Start the routine triggered by an utterance",
	Long: `Starts the enabled routine whose voice trigger matches the given
utterance, running it on the target device.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoutineStart,
}

func init() {
	routineStartCmd.Flags().StringVarP(&routineDevice, "device", "d", "", "target device name or serial")
	routineCmd.AddCommand(routineListCmd)
	routineCmd.AddCommand(routineStartCmd)
	rootCmd.AddCommand(routineCmd)
}

func runRoutineList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	account, err := openAccount(ctx)
	if err != nil {
		return err
	}
	defer account.Stop()

	routines, err := account.Client().Routines(ctx)
	if err != nil {
		return err
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(routines)
	}

	table := NewTable("NAME", "STATUS", "TRIGGERS")
	for _, r := range routines {
		name := r.Name
		if name == "" {
			name = dimStyle.Render(r.AutomationID)
		}
		table.Row(
			TruncateString(name, 40),
			r.Status,
			TruncateString(strings.Join(r.Utterances(), ", "), 60),
		)
	}
	table.Flush()
	return nil
}

func runRoutineStart(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	account, err := openAccount(ctx)
	if err != nil {
		return err
	}
	defer account.Stop()

	device, err := resolveDevice(ctx, account, routineDevice)
	if err != nil {
		return err
	}

	utterance := strings.Join(args, " ")
	if err := account.Client().StartRoutine(ctx, device, utterance); err != nil {
		return err
	}

	NormalF("Started routine %q on %s", utterance, device.Name)
	return nil
}
