// Package config handles application configuration.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/your-org/lro-swing-bot/internal/errs"
)

// Config defines the structure for all application configuration.
// The json tags serve the config API; database credentials never
// leave the process.
type Config struct {
	Pair          string `yaml:"pair" json:"pair"`
	ExecutionMode string `yaml:"execution_mode" json:"execution_mode"`
	LogLevel      string `yaml:"-" json:"-"` // Loaded from env or defaults

	Signal   SignalConf   `yaml:"signal" json:"signal"`
	Risk     RiskConf     `yaml:"risk" json:"risk"`
	Safety   SafetyConf   `yaml:"safety" json:"safety"`
	Paper    PaperConf    `yaml:"paper" json:"paper"`
	Server   ServerConf   `yaml:"server" json:"server"`
	Database DatabaseConf `yaml:"database" json:"-"`
	Recorder RecorderConf `yaml:"recorder" json:"recorder"`
	Alert    AlertConf    `yaml:"alert" json:"alert"`
}

// SignalConf holds the signal engine parameters.
type SignalConf struct {
	Period        int     `yaml:"period" json:"period"`
	SignalPeriod  int     `yaml:"signal_period" json:"signal_period"`
	Overbought    float64 `yaml:"overbought" json:"overbought"`
	Oversold      float64 `yaml:"oversold" json:"oversold"`
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`
	MinConfluence float64 `yaml:"min_confluence" json:"min_confluence"`
	// Timeframes maps auxiliary timeframe names to their regression periods,
	// e.g. {"1h": 50, "4h": 100}. Empty disables confluence scoring.
	Timeframes map[string]int `yaml:"timeframes" json:"timeframes"`
}

// RiskConf holds position sizing and stop parameters.
type RiskConf struct {
	StopLossPercent    float64 `yaml:"stop_loss_percent" json:"stop_loss_percent"`
	TakeProfitPercent  float64 `yaml:"take_profit_percent" json:"take_profit_percent"`
	MaxRiskPerTrade    float64 `yaml:"max_risk_per_trade" json:"max_risk_per_trade"`
	MaxPortfolioHeat   float64 `yaml:"max_portfolio_heat" json:"max_portfolio_heat"`
	KellyFraction      float64 `yaml:"kelly_fraction" json:"kelly_fraction"`
	MaxPositionPercent float64 `yaml:"max_position_percent" json:"max_position_percent"`

	ATRPeriod            int     `yaml:"atr_period" json:"atr_period"`
	ATRMultiplier        float64 `yaml:"atr_multiplier" json:"atr_multiplier"`
	MinStopPercent       float64 `yaml:"min_stop_percent" json:"min_stop_percent"`
	MaxStopPercent       float64 `yaml:"max_stop_percent" json:"max_stop_percent"`
	TrailingActivationPc float64 `yaml:"trailing_activation_percent" json:"trailing_activation_percent"`
	TrailingDistanceATR  float64 `yaml:"trailing_distance_atr" json:"trailing_distance_atr"`
}

// SafetyConf holds circuit breaker and loss limit parameters.
type SafetyConf struct {
	// MaxDailyLossPercent is the cumulative realized daily loss, as a
	// percent of balance, beyond which new entries are blocked.
	MaxDailyLossPercent float64 `yaml:"max_daily_loss_percent" json:"max_daily_loss_percent"`
	FlashMovePercent    float64 `yaml:"flash_move_percent" json:"flash_move_percent"`
	VolatilityLimit     float64 `yaml:"volatility_limit" json:"volatility_limit"`
	VolatilityWindow    int     `yaml:"volatility_window" json:"volatility_window"`
	BreakerCooldownMins int     `yaml:"breaker_cooldown_minutes" json:"breaker_cooldown_minutes"`
	BreakerTripLimit    int     `yaml:"breaker_trip_limit" json:"breaker_trip_limit"`
	MaxHoldHours        float64 `yaml:"max_hold_hours" json:"max_hold_hours"`
	StaleTickSeconds    int     `yaml:"stale_tick_seconds" json:"stale_tick_seconds"`
}

// PaperConf holds the simulated account parameters.
type PaperConf struct {
	InitialBalance float64 `yaml:"initial_balance" json:"initial_balance"`
}

// ServerConf holds the HTTP surface parameters. Changes only take
// effect on restart.
type ServerConf struct {
	ListenAddr     string   `yaml:"listen_addr" json:"listen_addr"`
	FeedRatePerSec float64  `yaml:"feed_rate_per_sec" json:"feed_rate_per_sec"`
	FeedBurst      int      `yaml:"feed_burst" json:"feed_burst"`
	EnableWS       FlexBool `yaml:"enable_ws" json:"enable_ws"`
}

// DatabaseConf holds TimescaleDB connection parameters.
// All fields can be overridden from the environment.
type DatabaseConf struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// RecorderConf holds audit persistence parameters. Changes only take
// effect on restart.
type RecorderConf struct {
	Enabled       FlexBool `yaml:"enabled" json:"enabled"`
	BatchSize     int      `yaml:"batch_size" json:"batch_size"`
	FlushSeconds  int      `yaml:"flush_seconds" json:"flush_seconds"`
	MigrationsDir string   `yaml:"migrations_dir" json:"migrations_dir"`
	CSVDir        string   `yaml:"csv_dir" json:"csv_dir"`
}

// AlertConf holds notification parameters.
type AlertConf struct {
	Enabled FlexBool `yaml:"enabled" json:"enabled"`
}

// Default returns the configuration defaults applied before the YAML file
// is read.
func Default() *Config {
	return &Config{
		Pair:          "BTC/USD",
		ExecutionMode: "paper",
		LogLevel:      "info",
		Signal: SignalConf{
			Period:        25,
			SignalPeriod:  9,
			Overbought:    0.8,
			Oversold:      -0.8,
			MinConfidence: 0.6,
			MinConfluence: 0,
		},
		Risk: RiskConf{
			StopLossPercent:      2.0,
			TakeProfitPercent:    4.0,
			MaxRiskPerTrade:      0.02,
			MaxPortfolioHeat:     0.06,
			KellyFraction:        0.25,
			MaxPositionPercent:   0.10,
			ATRPeriod:            14,
			ATRMultiplier:        2.0,
			MinStopPercent:       0.5,
			MaxStopPercent:       5.0,
			TrailingActivationPc: 1.0,
			TrailingDistanceATR:  1.5,
		},
		Safety: SafetyConf{
			MaxDailyLossPercent: 1.0,
			FlashMovePercent:    15.0,
			VolatilityLimit:     0.8,
			VolatilityWindow:    10,
			BreakerCooldownMins: 60,
			BreakerTripLimit:    3,
			MaxHoldHours:        24,
			StaleTickSeconds:    300,
		},
		Paper: PaperConf{
			InitialBalance: 10000,
		},
		Server: ServerConf{
			ListenAddr:     ":8080",
			FeedRatePerSec: 100,
			FeedBurst:      200,
			EnableWS:       true,
		},
		Recorder: RecorderConf{
			BatchSize:     100,
			FlushSeconds:  5,
			MigrationsDir: "db/migrations",
		},
	}
}

// Load loads configuration from the specified YAML file path
// and environment variables.
func Load(configPath string) (*Config, error) {
	// Ignore the error so the app still starts when .env is missing.
	_ = godotenv.Load()

	cfg := Default()

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, err
	}

	// Sensitive values and overrides come from the environment.
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DB_PORT"); dbPort != "" {
		cfg.Database.Port = dbPort
	}
	if dbUser := os.Getenv("DB_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPassword := os.Getenv("DB_PASSWORD"); dbPassword != "" {
		cfg.Database.Password = dbPassword
	}
	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		cfg.Database.Name = dbName
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the ranges that are unsafe to run with when wrong.
// It runs on load and again on every runtime config update.
func (c *Config) Validate() error {
	if c.ExecutionMode != "paper" {
		return errs.Validation("execution_mode must be %q, got %q", "paper", c.ExecutionMode)
	}
	if c.Signal.Period < 5 || c.Signal.Period > 200 {
		return errs.Validation("signal.period must be in [5, 200], got %d", c.Signal.Period)
	}
	if c.Signal.SignalPeriod < 3 || c.Signal.SignalPeriod > 50 {
		return errs.Validation("signal.signal_period must be in [3, 50], got %d", c.Signal.SignalPeriod)
	}
	if c.Risk.StopLossPercent <= 0 || c.Risk.StopLossPercent > 20 {
		return errs.Validation("risk.stop_loss_percent must be in (0, 20], got %g", c.Risk.StopLossPercent)
	}
	if c.Risk.TakeProfitPercent <= 0 || c.Risk.TakeProfitPercent > 50 {
		return errs.Validation("risk.take_profit_percent must be in (0, 50], got %g", c.Risk.TakeProfitPercent)
	}
	if c.Signal.Overbought <= c.Signal.Oversold {
		return errs.Validation("signal.overbought (%g) must exceed signal.oversold (%g)",
			c.Signal.Overbought, c.Signal.Oversold)
	}
	if c.Paper.InitialBalance <= 0 {
		return errs.Validation("paper.initial_balance must be positive, got %g", c.Paper.InitialBalance)
	}
	if c.Safety.MaxDailyLossPercent <= 0 {
		return errs.Validation("safety.max_daily_loss_percent must be positive, got %g", c.Safety.MaxDailyLossPercent)
	}
	if c.Safety.MaxHoldHours <= 0 {
		return errs.Validation("safety.max_hold_hours must be positive, got %g", c.Safety.MaxHoldHours)
	}
	for name, period := range c.Signal.Timeframes {
		if period < 5 || period > 200 {
			return errs.Validation("signal.timeframes[%s] period must be in [5, 200], got %d", name, period)
		}
	}
	return nil
}

// Clone returns a deep copy, detaching the timeframe map.
func (c *Config) Clone() *Config {
	out := *c
	if c.Signal.Timeframes != nil {
		out.Signal.Timeframes = make(map[string]int, len(c.Signal.Timeframes))
		for name, period := range c.Signal.Timeframes {
			out.Signal.Timeframes[name] = period
		}
	}
	return &out
}

// DSN builds the PostgreSQL connection string for the audit database.
func (d DatabaseConf) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}
