package cli

import (
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"optionscope/internal/errors"
	"optionscope/internal/scanner"
	"optionscope/pkg/utils"
)

// addScanCommands adds the scan and monitor commands.
func addScanCommands(rootCmd *cobra.Command, app *App) {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one scan cycle over the configured universe",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Provider == nil {
				output.Error("No market data provider configured")
				return errors.ErrNotAuthenticated
			}

			engine := scanner.NewEngine(app.Config, app.Provider, app.stateStore(), app.Metrics, app.Logger)
			result, err := engine.RunCycle(cmd.Context())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}
			printCycle(output, result)
			return nil
		},
	}

	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Continuously scan and monitor until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Provider == nil {
				output.Error("No market data provider configured")
				return errors.ErrNotAuthenticated
			}

			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
			if metricsAddr != "" && app.Metrics != nil {
				mux := http.NewServeMux()
				mux.Handle("/metrics", app.Metrics.Handler())
				go func() {
					if err := http.ListenAndServe(metricsAddr, mux); err != nil {
						app.Logger.Warn().Err(err).Msg("metrics listener stopped")
					}
				}()
				output.Dim("Serving metrics on %s/metrics", metricsAddr)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			engine := scanner.NewEngine(app.Config, app.Provider, app.stateStore(), app.Metrics, app.Logger)
			output.Info("Monitoring %v every %s", app.Config.Scanner.Universe, app.Config.Scanner.Interval)
			err := engine.Run(ctx)
			if errors.Is(err, ctx.Err()) {
				output.Println("stopped")
				return nil
			}
			return err
		},
	}
	monitorCmd.Flags().String("metrics-addr", "", "address for the Prometheus metrics listener (e.g. :9090)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(monitorCmd)
}

// printCycle renders a cycle result as a ranked table.
func printCycle(output *Output, result *scanner.CycleResult) {
	output.Bold("Cycle %s finished in %s", result.CycleID, result.Duration.Round(time.Millisecond))
	if len(result.Failures) > 0 {
		for sym, err := range result.Failures {
			output.Warning("%s: %v", sym, err)
		}
	}
	if len(result.Records) == 0 {
		output.Dim("No strategies passed the filters")
		return
	}

	output.Printf("%-4s %-10s %-20s %-6s %-5s %-6s %-6s %-5s\n",
		"#", "SYMBOL", "STRATEGY", "RAOS", "TIER", "QUAL", "POP", "DTE")
	for i, rec := range result.Records {
		scoreStr := output.ColoredString(output.ScoreColor(rec.Score), utils.FormatScore(rec.Score))
		tierStr := output.ColoredString(output.TierColor(rec.Tier), rec.Tier)
		output.Printf("%-4d %-10s %-20s %-15s %-5s %-6.0f %-6.2f %-5d\n",
			i+1,
			rec.Strategy.Symbol,
			rec.Strategy.Name,
			scoreStr,
			tierStr,
			rec.Strategy.QualityScore,
			rec.Strategy.Metrics.ProbOfProfit,
			rec.Strategy.Metrics.DaysToExpiry)
	}

	if result.Health != nil {
		output.Println()
		output.Bold("Portfolio health: %.0f (%s)", result.Health.Overall, result.Health.Level)
		for _, factor := range result.Health.RiskFactors {
			output.Warning("  %s", factor)
		}
	}
	for _, alert := range result.Alerts {
		switch alert.Severity {
		case "critical":
			output.Error("[%s] %s", alert.Severity, alert.Message)
		case "warning":
			output.Warning("[%s] %s", alert.Severity, alert.Message)
		default:
			output.Info("[%s] %s", alert.Severity, alert.Message)
		}
	}
}
