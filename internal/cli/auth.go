package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage account authentication",
	Long:  `Commands for managing the account session.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with your account",
	Long: `Starts a browser-based sign-in.

A sign-in URL is printed (and copied to the clipboard). Open it, sign
in, then paste the full URL of the page you land on back into the
prompt. That page looks like an error page; only its URL matters.`,
	RunE: runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	Long:  `Clears the session and deletes the stored session file.`,
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	RunE:  runAuthStatus,
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	account, err := newAccount()
	if err != nil {
		return err
	}

	signInURL, err := account.BeginLogin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start login: %w", err)
	}

	fmt.Println("Open this URL in your browser and sign in:")
	fmt.Println()
	fmt.Println(accentStyle.Render(signInURL))
	fmt.Println()
	if err := clipboard.WriteAll(signInURL); err == nil {
		fmt.Println(dimStyle.Render("(copied to clipboard)"))
		fmt.Println()
	}

	var redirectURL string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Redirect URL").
			Description("Paste the full URL of the page you landed on after signing in").
			Value(&redirectURL),
	))
	if err := form.Run(); err != nil {
		return err
	}

	fmt.Println("Exchanging tokens...")
	if err := account.CompleteLogin(ctx, redirectURL); err != nil {
		return err
	}

	manager := account.Session()
	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]any{
			"status":   "authenticated",
			"customer": manager.CustomerName(),
			"site":     manager.Site(),
			"device":   manager.DeviceName(),
		})
		return nil
	}
	fmt.Printf("Successfully authenticated as %s on %s\n", manager.CustomerName(), manager.Site())
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	account, err := newAccount()
	if err != nil {
		return err
	}

	if !account.Storage().Exists() {
		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "not_authenticated"})
		} else {
			fmt.Println("Not logged in.")
		}
		return nil
	}

	if err := account.Logout(); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "logged_out"})
	} else {
		fmt.Println("Logged out.")
	}
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	account, err := newAccount()
	if err != nil {
		return err
	}

	ok, err := account.RestoreSession(ctx, cfg.Account.Site)
	if err != nil {
		return err
	}

	if !ok {
		if JSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(map[string]any{"authenticated": false})
		} else {
			fmt.Println("Not logged in.")
			fmt.Println("Run 'echoctl auth login' to authenticate.")
		}
		return nil
	}

	manager := account.Session()
	if JSONOutput() {
		out := map[string]any{
			"authenticated": true,
			"customer":      manager.CustomerName(),
			"site":          manager.Site(),
			"device":        manager.DeviceName(),
			"renew_at":      manager.RenewAt(),
		}
		if t := manager.LoginTime(); t != nil {
			out["login_time"] = t
		}
		_ = json.NewEncoder(os.Stdout).Encode(out)
		return nil
	}

	fmt.Printf("Authenticated as %s\n", manager.CustomerName())
	fmt.Printf("  site:       %s\n", manager.Site())
	fmt.Printf("  device:     %s\n", manager.DeviceName())
	if t := manager.LoginTime(); t != nil {
		fmt.Printf("  logged in:  %s\n", t.Format(time.RFC1123))
	}
	fmt.Printf("  renews at:  %s\n", manager.RenewAt().Format(time.RFC1123))
	return nil
}
