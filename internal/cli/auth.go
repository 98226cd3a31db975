package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kestrelhq/driveconnect/internal/auth"
	"github.com/kestrelhq/driveconnect/internal/config"
	"github.com/kestrelhq/driveconnect/internal/utils"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Drive credentials",
	Long: `Manage the OAuth credentials the service uses against the Drive API.

The consent flow itself runs out of band (a web console or a one-off
helper); this command imports its result and manages the stored copy.`,
}

var authImportCmd = &cobra.Command{
	Use:   "import <credentials.json>",
	Short: "Import credentials from a JSON file",
	Long: `Import OAuth credentials produced by a completed consent flow.

The file must contain client_id, client_secret and refresh_token; the
access token and expiry are optional and refreshed on first use.

Examples:
  driveconnect auth import ./exported-creds.json
  driveconnect auth import ./exported-creds.json --profile staging`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthImport,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored credential status",
	RunE:  runAuthStatus,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Delete stored credentials",
	RunE:  runAuthLogout,
}

var authProfile string

func init() {
	authCmd.PersistentFlags().StringVar(&authProfile, "profile", "", "Credential profile (default from CREDENTIALS_PROFILE)")

	authCmd.AddCommand(authImportCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}

func authManagerAndProfile() (*auth.Manager, string, error) {
	cfg := config.Load()
	mgr, err := auth.NewManagerFromConfig(cfg.CredentialsDir, cfg.UseKeyring)
	if err != nil {
		return nil, "", err
	}
	profile := authProfile
	if profile == "" {
		profile = cfg.CredentialsProfile
	}
	return mgr, profile, nil
}

func runAuthImport(cmd *cobra.Command, args []string) error {
	mgr, profile, err := authManagerAndProfile()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds auth.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return fmt.Errorf("credentials file is not valid JSON: %w", err)
	}
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.RefreshToken == "" {
		return fmt.Errorf("credentials file must contain client_id, client_secret and refresh_token")
	}
	if len(creds.Scopes) == 0 {
		creds.Scopes = utils.ScopesConnector
	}

	if err := mgr.SaveCredentials(profile, &creds); err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(map[string]string{"status": "imported", "profile": profile})
	}
	fmt.Printf("Imported credentials for profile %s\n", profile)
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	mgr, profile, err := authManagerAndProfile()
	if err != nil {
		return err
	}

	creds, err := mgr.LoadCredentials(profile)
	if err != nil {
		if flagJSON {
			return writeJSON(map[string]interface{}{"profile": profile, "authenticated": false})
		}
		fmt.Printf("No credentials stored for profile %s\n", profile)
		return nil
	}

	expired := !creds.TokenExpiry.IsZero() && time.Now().After(creds.TokenExpiry)
	if flagJSON {
		return writeJSON(map[string]interface{}{
			"profile":       profile,
			"authenticated": true,
			"scopes":        creds.Scopes,
			"tokenExpiry":   creds.TokenExpiry,
			"expired":       expired,
		})
	}
	fmt.Printf("Profile %s: authenticated", profile)
	if expired {
		fmt.Print(" (access token expired, refreshes on next use)")
	}
	fmt.Println()
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	mgr, profile, err := authManagerAndProfile()
	if err != nil {
		return err
	}

	if err := mgr.DeleteCredentials(profile); err != nil {
		return fmt.Errorf("no credentials stored for profile %q", profile)
	}

	if flagJSON {
		return writeJSON(map[string]string{"status": "logged_out", "profile": profile})
	}
	fmt.Printf("Removed credentials for profile %s\n", profile)
	return nil
}
