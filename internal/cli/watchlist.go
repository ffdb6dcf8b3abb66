package cli

import (
	"github.com/spf13/cobra"

	"optionscope/internal/errors"
)

// addWatchlistCommands adds watchlist and alert ledger commands.
func addWatchlistCommands(rootCmd *cobra.Command, app *App) {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage the scan watchlist",
	}

	watchCmd.AddCommand(&cobra.Command{
		Use:   "add <symbol>",
		Short: "Add a symbol to the watchlist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return errors.ErrDatabaseError
			}
			note := ""
			if len(args) > 1 {
				note = args[1]
			}
			if err := app.Store.AddWatchSymbol(cmd.Context(), args[0], note); err != nil {
				return err
			}
			output.Success("Added %s", args[0])
			return nil
		},
	})

	watchCmd.AddCommand(&cobra.Command{
		Use:   "remove <symbol>",
		Short: "Remove a symbol from the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return errors.ErrDatabaseError
			}
			if err := app.Store.RemoveWatchSymbol(cmd.Context(), args[0]); err != nil {
				return err
			}
			output.Success("Removed %s", args[0])
			return nil
		},
	})

	watchCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List watched symbols",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return errors.ErrDatabaseError
			}
			symbols, err := app.Store.Watchlist(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(symbols)
			}
			if len(symbols) == 0 {
				output.Dim("Watchlist is empty")
				return nil
			}
			for _, s := range symbols {
				output.Println(s)
			}
			return nil
		},
	})

	alertsCmd := &cobra.Command{
		Use:   "alerts",
		Short: "Review the alert ledger",
	}

	listAlertsCmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return errors.ErrDatabaseError
			}
			limit, _ := cmd.Flags().GetInt("limit")
			alerts, err := app.Store.RecentAlerts(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(alerts)
			}
			if len(alerts) == 0 {
				output.Dim("No alerts recorded")
				return nil
			}
			for _, a := range alerts {
				output.Printf("%-22s %-10s %-10s %s\n",
					a.CreatedAt.Format("2006-01-02 15:04:05"), a.Severity, a.Symbol, a.Message)
				output.Dim("  %s (%s)", a.Guidance.Action, a.Guidance.Urgency)
			}
			return nil
		},
	}
	listAlertsCmd.Flags().Int("limit", 50, "maximum alerts to show")
	alertsCmd.AddCommand(listAlertsCmd)

	alertsCmd.AddCommand(&cobra.Command{
		Use:   "ack <alert-id>",
		Short: "Acknowledge an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return errors.ErrDatabaseError
			}
			if err := app.Store.AcknowledgeAlert(cmd.Context(), args[0]); err != nil {
				return err
			}
			output.Success("Acknowledged %s", args[0])
			return nil
		},
	})

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(alertsCmd)
}
