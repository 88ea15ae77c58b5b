package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/portfolioledger/internal/domain"
)

// SnapshotsOff disables a scheduler when used as SNAPSHOT_SCHEDULE or
// MARKET_EVENT_SCHEDULE.
const SnapshotsOff = "off"

// Config holds all runtime configuration for the portfolio ledger.
type Config struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Ledger
	LockTimeout time.Duration   `env:"LOCK_TIMEOUT" envDefault:"2s"`
	SeedBalance decimal.Decimal `env:"SEED_BALANCE" envDefault:"10000"`
	Currency    string          `env:"CURRENCY" envDefault:"USD"`
	AutoCreate  bool            `env:"AUTO_CREATE" envDefault:"true"`

	// History
	HistoryDefaultLimit int `env:"HISTORY_DEFAULT_LIMIT" envDefault:"20"`
	HistoryMaxLimit     int `env:"HISTORY_MAX_LIMIT" envDefault:"100"`

	// Valuation
	ValuationFallback    string            `env:"VALUATION_FALLBACK" envDefault:"last_known"`
	ValuationConcurrency int               `env:"VALUATION_CONCURRENCY" envDefault:"8"`
	StaticPrices         map[string]string `env:"STATIC_PRICES" envKeyValSeparator:":"`
	PriceSourceURL       string            `env:"PRICE_SOURCE_URL"`
	PriceTimeout         time.Duration     `env:"PRICE_TIMEOUT" envDefault:"2s"`
	PriceCacheTTL        time.Duration     `env:"PRICE_CACHE_TTL" envDefault:"15s"`

	// Market simulation; SIMULATION_SEED 0 seeds from the clock.
	MarketSimulation    bool    `env:"MARKET_SIMULATION" envDefault:"true"`
	SimulationSeed      uint64  `env:"SIMULATION_SEED" envDefault:"0"`
	SimulationMaxStep   float64 `env:"SIMULATION_MAX_STEP" envDefault:"0.02"`
	MarketEventSchedule string  `env:"MARKET_EVENT_SCHEDULE" envDefault:"@every 15m"`
	MarketEventKeep     int     `env:"MARKET_EVENT_KEEP" envDefault:"500"`

	// Snapshots
	SnapshotSchedule  string        `env:"SNAPSHOT_SCHEDULE" envDefault:"@every 1h"`
	SnapshotRetention time.Duration `env:"SNAPSHOT_RETENTION" envDefault:"720h"`

	WebhookTimeout time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`

	// Database; the in-memory ledger is used when DSN is empty.
	DatabaseDSN       string        `env:"DATABASE_DSN"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// SnapshotsEnabled reports whether the snapshot scheduler should run.
func (c *Config) SnapshotsEnabled() bool {
	return c.SnapshotSchedule != SnapshotsOff
}

// MarketEventsEnabled reports whether the market event generator should run.
func (c *Config) MarketEventsEnabled() bool {
	return c.MarketSimulation && c.MarketEventSchedule != SnapshotsOff
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var scheduleParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d, must be between 1 and 65535", c.Port)
	}
	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	if _, err := domain.LookupCurrency(c.Currency); err != nil {
		return fmt.Errorf("invalid CURRENCY: %w", err)
	}
	if c.SeedBalance.IsNegative() {
		return fmt.Errorf("invalid SEED_BALANCE: %s, must be >= 0", c.SeedBalance)
	}
	if err := domain.CheckPrecision(c.SeedBalance, c.Currency); err != nil {
		return fmt.Errorf("invalid SEED_BALANCE: %w", err)
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("invalid LOCK_TIMEOUT: %v, must be > 0", c.LockTimeout)
	}
	if c.HistoryMaxLimit < 1 {
		return fmt.Errorf("invalid HISTORY_MAX_LIMIT: %d, must be >= 1", c.HistoryMaxLimit)
	}
	if c.HistoryDefaultLimit < 1 || c.HistoryDefaultLimit > c.HistoryMaxLimit {
		return fmt.Errorf("invalid HISTORY_DEFAULT_LIMIT: %d, must be between 1 and %d", c.HistoryDefaultLimit, c.HistoryMaxLimit)
	}
	switch c.ValuationFallback {
	case "last_known", "zero":
	default:
		return fmt.Errorf("invalid VALUATION_FALLBACK: %q, must be one of: last_known, zero", c.ValuationFallback)
	}
	if c.ValuationConcurrency < 1 {
		return fmt.Errorf("invalid VALUATION_CONCURRENCY: %d, must be >= 1", c.ValuationConcurrency)
	}
	if c.SnapshotsEnabled() {
		if _, err := scheduleParser.Parse(c.SnapshotSchedule); err != nil {
			return fmt.Errorf("invalid SNAPSHOT_SCHEDULE: %w", err)
		}
	}
	if c.SimulationMaxStep < 0 || c.SimulationMaxStep > 0.5 {
		return fmt.Errorf("invalid SIMULATION_MAX_STEP: %v, must be between 0 and 0.5", c.SimulationMaxStep)
	}
	if c.MarketEventsEnabled() {
		if _, err := scheduleParser.Parse(c.MarketEventSchedule); err != nil {
			return fmt.Errorf("invalid MARKET_EVENT_SCHEDULE: %w", err)
		}
	}
	if c.MarketEventKeep < 0 {
		return fmt.Errorf("invalid MARKET_EVENT_KEEP: %d, must be >= 0", c.MarketEventKeep)
	}
	if c.SnapshotRetention < 0 {
		return fmt.Errorf("invalid SNAPSHOT_RETENTION: %v, must be >= 0", c.SnapshotRetention)
	}
	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
