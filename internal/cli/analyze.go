package cli

import (
	"github.com/spf13/cobra"

	"optionscope/internal/errors"
	"optionscope/internal/greeks"
	"optionscope/internal/liquidity"
	"optionscope/internal/models"
	"optionscope/internal/scanner"
	"optionscope/pkg/utils"
)

// addAnalysisCommands adds the per-symbol and portfolio analysis commands.
func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newChainCmd(app))
	rootCmd.AddCommand(newGreeksCmd(app))
	rootCmd.AddCommand(newRankCmd(app))
}

func newChainCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "chain <symbol>",
		Short: "Show the option chain with its liquidity profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Provider == nil {
				output.Error("No market data provider configured")
				return errors.ErrNotAuthenticated
			}
			symbol := args[0]

			chain, err := app.Provider.GetOptionChain(cmd.Context(), symbol)
			if err != nil {
				return err
			}
			analyzer := liquidity.NewAnalyzer(app.Config.Liquidity)
			profile, err := analyzer.Analyze(symbol, chain.Calls, chain.Puts, chain.SpotPrice)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"chain":     chain,
					"liquidity": profile,
				})
			}

			output.Bold("%s  spot %s  %d calls / %d puts", symbol,
				utils.FormatCurrency(chain.SpotPrice), len(chain.Calls), len(chain.Puts))
			output.Printf("Liquidity: %s (%s)\n", utils.FormatScore(profile.OverallScore), profile.Rating)
			output.Printf("Avg spread: %.2f  OI concentration: %.2f\n",
				profile.Spreads.AverageSpread, profile.OpenInterest.Concentration)
			for _, flag := range profile.ExecRisk.Flags {
				output.Warning("  %s: %s", flag.Level, flag.Detail)
			}

			output.Printf("\n%-10s %-6s %-8s %-8s %-8s %-8s %-6s\n",
				"STRIKE", "TYPE", "BID", "ASK", "VOLUME", "OI", "IV")
			for _, c := range chain.Contracts() {
				output.Printf("%-10.2f %-6s %-8.2f %-8.2f %-8d %-8d %-6.2f\n",
					c.Strike, c.Type, c.Bid, c.Ask, c.Volume, c.OpenInterest, c.ImpliedVol)
			}
			return nil
		},
	}
}

func newGreeksCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "greeks",
		Short: "Aggregate portfolio greeks from active positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Provider == nil {
				output.Error("No market data provider configured")
				return errors.ErrNotAuthenticated
			}

			positions, err := app.Provider.GetActivePositions(cmd.Context())
			if err != nil {
				return err
			}
			if len(positions) == 0 {
				output.Dim("No active positions")
				return nil
			}

			market := make(map[string]*models.MarketData)
			for _, p := range positions {
				if _, ok := market[p.Symbol]; ok {
					continue
				}
				md, err := app.Provider.GetMarketData(cmd.Context(), p.Symbol)
				if err != nil {
					output.Warning("%s: %v", p.Symbol, err)
					continue
				}
				market[p.Symbol] = md
			}

			agg := greeks.NewAggregator(app.Config.RiskLimits)
			pg := agg.Aggregate(positions, market)

			if output.IsJSON() {
				return output.JSON(pg)
			}
			printPortfolioGreeks(output, pg)
			return nil
		},
	}
}

func printPortfolioGreeks(output *Output, pg *greeks.PortfolioGreeks) {
	output.Bold("Portfolio greeks")
	output.Printf("  delta %10.1f\n", pg.Delta)
	output.Printf("  gamma %10.1f\n", pg.Gamma)
	output.Printf("  theta %10.1f\n", pg.Theta)
	output.Printf("  vega  %10.1f\n", pg.Vega)
	output.Printf("  rho   %10.1f\n", pg.Rho)
	if pg.SkippedLegs > 0 {
		output.Dim("  %d legs skipped for missing market data", pg.SkippedLegs)
	}

	output.Println()
	output.Bold("Limit utilization")
	for _, lu := range pg.Limits {
		line := output.ColoredString(output.ScoreColor(100-lu.Utilization*100), utils.FormatPercent(lu.Utilization))
		output.Printf("  %-6s %s\n", lu.Greek, line)
	}
	for _, h := range pg.Hedges {
		output.Warning("  hedge %s via %s (%s)", h.Greek, h.Instrument, h.Severity)
	}

	if pg.GammaProfile.PinRisk != "" {
		output.Println()
		output.Printf("Pin risk: %s, P(pin) %.2f, nearby gamma %.0f\n",
			pg.GammaProfile.PinRisk, pg.GammaProfile.PinProb, pg.GammaProfile.NearbyGamma)
	}
}

func newRankCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rank <symbol>",
		Short: "Run the full pipeline for one symbol and show the RAOS breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Provider == nil {
				output.Error("No market data provider configured")
				return errors.ErrNotAuthenticated
			}

			cfg := *app.Config
			cfg.Scanner.Universe = []string{args[0]}
			engine := scanner.NewEngine(&cfg, app.Provider, nil, app.Metrics, app.Logger)
			result, err := engine.RunCycle(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(result.Records)
			}
			if len(result.Records) == 0 {
				output.Dim("No strategies passed the filters")
				return nil
			}
			for _, rec := range result.Records {
				printRecord(output, rec)
			}
			return nil
		},
	}
}

func printRecord(output *Output, rec models.RAOSRecord) {
	output.Bold("%s %s  RAOS %s (tier %s, confidence %.0f)",
		rec.Strategy.Symbol, rec.Strategy.Name,
		utils.FormatScore(rec.Score), rec.Tier, rec.Confidence)
	output.Printf("  quality %.0f (%s)  PoP %.2f  EV %s  DTE %d\n",
		rec.Strategy.QualityScore, rec.Strategy.QualityGrade,
		rec.Strategy.Metrics.ProbOfProfit,
		utils.FormatCurrency(rec.Strategy.Metrics.ExpectedValue),
		rec.Strategy.Metrics.DaysToExpiry)
	output.Printf("  components: ret %.0f pop %.0f liq %.0f conv %.0f | loss %.0f tail %.0f vol %.0f exec %.0f\n",
		rec.Components.ExpectedReturn, rec.Components.ProbOfProfit,
		rec.Components.Liquidity, rec.Components.Conviction,
		rec.Components.MaxLoss, rec.Components.TailRisk,
		rec.Components.VolatilityRisk, rec.Components.ExecutionRisk)
	for _, p := range rec.Penalties {
		output.Warning("  -%0.f%% %s", p.Percent, p.Reason)
	}
	if rec.Institutional.Eligible {
		output.Success("  institutional: eligible")
	} else if len(rec.Institutional.Disqualifiers) > 0 {
		output.Dim("  institutional: %v", rec.Institutional.Disqualifiers)
	}
	for _, insight := range rec.Insights {
		output.Info("  insight: %s", insight.Message)
	}
	output.Println()
}
