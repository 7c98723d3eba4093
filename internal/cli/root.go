// Package cli implements the echoctl command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/echoctl/echoctl/internal/alexa"
	"github.com/echoctl/echoctl/internal/config"
	"github.com/echoctl/echoctl/internal/core"
	ctlerrors "github.com/echoctl/echoctl/internal/errors"
)

var (
	cfgFile string
	jsonOut bool
	verbose bool

	cfg *config.Config

	logOutput io.Writer = os.Stderr
)

var rootCmd = &cobra.Command{
	Use:   "echoctl",
	Short: "Control cloud-connected smart speakers from the command line",
	Long:  `Echoctl speaks, announces, and runs commands on a fleet of cloud-connected voice-assistant speakers.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.echoctlrc)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initConfig() error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// the --verbose flag wins; the config can only switch verbosity on
	if cfg.Log.Verbose {
		verbose = true
	}
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logOutput = f
	}

	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(ctlerrors.Format(err)))
		os.Exit(1)
	}
}

// Config returns the loaded configuration.
func Config() *config.Config {
	return cfg
}

// JSONOutput returns true if JSON output is requested.
func JSONOutput() bool {
	return jsonOut
}

// Verbose returns true if verbose output is requested.
func Verbose() bool {
	return verbose
}

func logf(format string, args ...any) {
	fmt.Fprintf(logOutput, format+"\n", args...)
}

// newAccount assembles the account from the loaded config, without
// touching the network.
func newAccount() (*alexa.Account, error) {
	account, err := alexa.NewAccount(cfg.Account.SessionFile)
	if err != nil {
		return nil, err
	}
	if Verbose() {
		account.SetLogFunc(logf)
	}
	return account, nil
}

// openAccount assembles the account and restores the persisted
// session. It fails with ErrNotLoggedIn when no usable session exists.
func openAccount(ctx context.Context) (*alexa.Account, error) {
	account, err := newAccount()
	if err != nil {
		return nil, err
	}
	ok, err := account.RestoreSession(ctx, cfg.Account.Site)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ctlerrors.ErrNotLoggedIn
	}
	account.Start(ctx)
	return account, nil
}

// resolveDevice resolves the device argument, falling back to the
// configured default device.
func resolveDevice(ctx context.Context, account *alexa.Account, arg string) (*core.Device, error) {
	key := arg
	if key == "" {
		key = cfg.Defaults.Device
	}
	if key == "" {
		return nil, ctlerrors.WithSuggestion(ctlerrors.ErrDeviceNotFound,
			"Pass a device name or set defaults.device in ~/.echoctlrc")
	}
	return account.Client().FindDevice(ctx, key)
}
