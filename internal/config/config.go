// Package config provides configuration management for the analytics application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Scanner     ScannerConfig     `mapstructure:"scanner"`
	Simulation  SimulationConfig  `mapstructure:"simulation"`
	RiskLimits  RiskLimitsConfig  `mapstructure:"risk_limits"`
	Liquidity   LiquidityConfig   `mapstructure:"liquidity"`
	Alerts      AlertsConfig      `mapstructure:"alerts"`
	Credentials Credentials       `mapstructure:"-"` // Loaded separately
}

// ScannerConfig holds scan-cycle configuration.
type ScannerConfig struct {
	Universe         []string      `mapstructure:"universe"`
	Interval         time.Duration `mapstructure:"interval"`
	SymbolTimeout    time.Duration `mapstructure:"symbol_timeout"`
	MinRAOS          float64       `mapstructure:"min_raos"`
	MaxRiskScore     float64       `mapstructure:"max_risk_score"`
	MinLiquidity     float64       `mapstructure:"min_liquidity"`
	MaxDaysToExpiry  int           `mapstructure:"max_days_to_expiry"`
	MinProbOfProfit  float64       `mapstructure:"min_prob_of_profit"`
	RequireDefined   bool          `mapstructure:"require_defined_risk"`
	TopPerSymbol     int           `mapstructure:"top_per_symbol"`
}

// SimulationConfig holds Monte Carlo configuration.
type SimulationConfig struct {
	Paths      int   `mapstructure:"paths"`
	Horizon    int   `mapstructure:"horizon_days"`
	Seed       int64 `mapstructure:"seed"`
	Workers    int   `mapstructure:"workers"`
}

// RiskLimitsConfig holds portfolio greek caps.
type RiskLimitsConfig struct {
	MaxDelta float64 `mapstructure:"max_delta"`
	MaxGamma float64 `mapstructure:"max_gamma"`
	MaxTheta float64 `mapstructure:"max_theta"`
	MaxVega  float64 `mapstructure:"max_vega"`
	MaxRho   float64 `mapstructure:"max_rho"`
}

// LiquidityConfig holds liquidity analysis configuration.
type LiquidityConfig struct {
	Floor           float64 `mapstructure:"floor"` // minimum overall score before strategy generation
	TightSpread     float64 `mapstructure:"tight_spread"`
	DepthEstimate   int     `mapstructure:"depth_estimate"`
}

// AlertsConfig holds monitoring alert thresholds.
type AlertsConfig struct {
	PnLSwingPercent     float64 `mapstructure:"pnl_swing_percent"`
	ConcentrationLimit  float64 `mapstructure:"concentration_limit"`
	ProfitTargetPercent float64 `mapstructure:"profit_target_percent"`
	StopLossPercent     float64 `mapstructure:"stop_loss_percent"`
	VolumeSurgeRatio    float64 `mapstructure:"volume_surge_ratio"`
	IVSpikeRank         float64 `mapstructure:"iv_spike_rank"`
	IVCrushRank         float64 `mapstructure:"iv_crush_rank"`
}

// Credentials holds API credentials for the market-data adapter.
type Credentials struct {
	Kite KiteCredentials `mapstructure:"kite"`
}

// KiteCredentials holds Kite Connect API credentials.
type KiteCredentials struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	UserID    string `mapstructure:"user_id"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/optionscope"
	}
	return filepath.Join(home, ".config", "optionscope")
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Scanner: ScannerConfig{
			Universe:        []string{"NIFTY", "BANKNIFTY"},
			Interval:        5 * time.Minute,
			SymbolTimeout:   30 * time.Second,
			MinRAOS:         60,
			MaxRiskScore:    80,
			MinLiquidity:    50,
			MaxDaysToExpiry: 60,
			MinProbOfProfit: 0.40,
			RequireDefined:  false,
			TopPerSymbol:    10,
		},
		Simulation: SimulationConfig{
			Paths:   10000,
			Horizon: 30,
			Seed:    0, // 0 means time-seeded
			Workers: 4,
		},
		RiskLimits: RiskLimitsConfig{
			MaxDelta: 500,
			MaxGamma: 100,
			MaxTheta: 1000,
			MaxVega:  2000,
			MaxRho:   1000,
		},
		Liquidity: LiquidityConfig{
			Floor:         30,
			TightSpread:   0.05,
			DepthEstimate: 50,
		},
		Alerts: AlertsConfig{
			PnLSwingPercent:     10,
			ConcentrationLimit:  40,
			ProfitTargetPercent: 50,
			StopLossPercent:     -30,
			VolumeSurgeRatio:    3.0,
			IVSpikeRank:         90,
			IVCrushRank:         10,
		},
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Missing config is fine; defaults apply.
			return nil
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KITE_API_KEY"); v != "" {
		cfg.Credentials.Kite.APIKey = v
	}
	if v := os.Getenv("KITE_API_SECRET"); v != "" {
		cfg.Credentials.Kite.APISecret = v
	}
	if v := os.Getenv("KITE_USER_ID"); v != "" {
		cfg.Credentials.Kite.UserID = v
	}
	if v := os.Getenv("SCAN_UNIVERSE"); v != "" {
		cfg.Scanner.Universe = strings.Split(v, ",")
	}
	if v := os.Getenv("SIM_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Simulation.Seed = seed
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Simulation.Paths <= 0 {
		return fmt.Errorf("simulation paths must be positive, got %d", c.Simulation.Paths)
	}
	if c.Simulation.Horizon <= 0 {
		return fmt.Errorf("simulation horizon must be positive, got %d", c.Simulation.Horizon)
	}
	if c.Scanner.MinRAOS < 0 || c.Scanner.MinRAOS > 100 {
		return fmt.Errorf("min_raos must be between 0 and 100")
	}
	if c.Scanner.MinLiquidity < 0 || c.Scanner.MinLiquidity > 100 {
		return fmt.Errorf("min_liquidity must be between 0 and 100")
	}
	if c.Scanner.MinProbOfProfit < 0 || c.Scanner.MinProbOfProfit > 1 {
		return fmt.Errorf("min_prob_of_profit must be between 0 and 1")
	}
	if c.Scanner.SymbolTimeout <= 0 {
		return fmt.Errorf("symbol_timeout must be positive")
	}
	if c.Liquidity.Floor < 0 || c.Liquidity.Floor > 100 {
		return fmt.Errorf("liquidity floor must be between 0 and 100")
	}
	if len(c.Scanner.Universe) == 0 {
		return fmt.Errorf("scanner universe must not be empty")
	}
	return nil
}
