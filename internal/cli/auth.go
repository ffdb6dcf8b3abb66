package cli

import (
	"github.com/spf13/cobra"

	"optionscope/internal/errors"
)

// addAuthCommands adds broker session commands.
func addAuthCommands(rootCmd *cobra.Command, app *App) {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Broker authentication",
		Long:  "Manage the Kite Connect session used for market data.",
	}

	authCmd.AddCommand(&cobra.Command{
		Use:   "login",
		Short: "Start or resume a broker session",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Kite == nil {
				output.Error("No Kite credentials configured; set KITE_API_KEY or edit credentials.toml")
				return errors.ErrNotAuthenticated
			}
			if err := app.Kite.Login(cmd.Context()); err != nil {
				// The error carries the login URL when a fresh OAuth
				// round trip is needed.
				output.Warning("%v", err)
				return nil
			}
			output.Success("Session active")
			return nil
		},
	})

	authCmd.AddCommand(&cobra.Command{
		Use:   "token <request-token>",
		Short: "Complete login with the OAuth request token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Kite == nil {
				output.Error("No Kite credentials configured")
				return errors.ErrNotAuthenticated
			}
			if err := app.Kite.CompleteLogin(cmd.Context(), args[0]); err != nil {
				output.Error("Login failed: %v", err)
				return err
			}
			output.Success("Session established and persisted")
			return nil
		},
	})

	authCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show session status",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			authenticated := app.Kite != nil && app.Kite.IsAuthenticated()
			if output.IsJSON() {
				output.JSON(map[string]bool{"authenticated": authenticated})
				return
			}
			if authenticated {
				output.Success("Authenticated")
			} else {
				output.Warning("Not authenticated")
			}
		},
	})

	rootCmd.AddCommand(authCmd)
}
