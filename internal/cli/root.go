package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"optionscope/internal/config"
	"optionscope/internal/logging"
	"optionscope/internal/marketdata"
	"optionscope/internal/scanner"
	"optionscope/internal/store"
	"optionscope/internal/telemetry"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-06-01"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Provider marketdata.Provider
	Kite     *marketdata.KiteProvider
	Store    *store.SQLiteStore
	Metrics  *telemetry.Metrics
}

// stateStore returns the store as the scanner's persistence interface,
// or nil when store initialization failed. A typed nil pointer must not
// leak into the interface value.
func (a *App) stateStore() scanner.StateStore {
	if a.Store == nil {
		return nil
	}
	return a.Store
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: telemetry.New(),
	}

	if cfg.Credentials.Kite.APIKey != "" {
		kite := marketdata.NewKiteProvider(cfg.Credentials.Kite)
		app.Kite = kite
		app.Provider = kite
		logger.Debug().Msg("Kite provider initialized")
	}

	dbPath := config.DefaultConfigDir() + "/optionscope.db"
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, some features may be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Msg("SQLite store initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "optionscope",
		Short: "Options portfolio risk analytics and strategy scanner",
		Long: `Optionscope is a risk-analytics CLI for options portfolios.

It aggregates portfolio greeks, analyzes chain liquidity, simulates
outcome distributions, and continuously scans a symbol universe for
risk-adjusted strategy opportunities.

Use 'optionscope help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/optionscope)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addAuthCommands(rootCmd, app)
	addScanCommands(rootCmd, app)
	addAnalysisCommands(rootCmd, app)
	addWatchlistCommands(rootCmd, app)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Optionscope v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			output.Bold("Scanner")
			output.Printf("  universe:    %v\n", app.Config.Scanner.Universe)
			output.Printf("  interval:    %s\n", app.Config.Scanner.Interval)
			output.Printf("  min RAOS:    %.0f\n", app.Config.Scanner.MinRAOS)
			output.Bold("Simulation")
			output.Printf("  paths:       %d\n", app.Config.Simulation.Paths)
			output.Printf("  horizon:     %d days\n", app.Config.Simulation.Horizon)
			output.Printf("  seed:        %d\n", app.Config.Simulation.Seed)
			output.Bold("Risk limits")
			output.Printf("  max delta:   %.0f\n", app.Config.RiskLimits.MaxDelta)
			output.Printf("  max theta:   %.0f\n", app.Config.RiskLimits.MaxTheta)
			output.Printf("  max vega:    %.0f\n", app.Config.RiskLimits.MaxVega)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			output.Success("Configuration is valid")
			return nil
		},
	})

	return cmd
}
