// Package config defines the top-level configuration for the revenue service
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by LLREV_* environment variables.
type Config struct {
	Database    DatabaseConfig    `toml:"database"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Hyperliquid HyperliquidConfig `toml:"hyperliquid"`
	Fees        FeesConfig        `toml:"fees"`
	Payout      PayoutConfig      `toml:"payout"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Server      ServerConfig      `toml:"server"`
	Notify      NotifyConfig      `toml:"notify"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for report export.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// HyperliquidConfig holds Hyperliquid API endpoints.
type HyperliquidConfig struct {
	APIURL string `toml:"api_url"`
	WsURL  string `toml:"ws_url"`
	// WsEnabled turns on the live fill stream alongside the polling cycle.
	WsEnabled bool `toml:"ws_enabled"`
}

// FeesConfig holds fee rates and revenue split ratios. Values are decimal
// strings so they survive TOML round-trips without float drift.
type FeesConfig struct {
	SpotFeeRate          string `toml:"spot_fee_rate"`
	PerpFeeRate          string `toml:"perp_fee_rate"`
	TradingPlatformRatio string `toml:"trading_platform_ratio"`
	OnrampPlatformRatio  string `toml:"onramp_platform_ratio"`
}

// PayoutConfig holds monthly payout parameters.
type PayoutConfig struct {
	// MinPayout is the threshold below which earnings roll forward instead of
	// producing a payout record. Decimal string.
	MinPayout string `toml:"min_payout"`
	// ExecutorURL is the distribution service endpoint. Empty selects the
	// record-only executor.
	ExecutorURL string `toml:"executor_url"`
	ExecutorKey string `toml:"executor_key"`
	// Cron fires the monthly payout preparation run.
	Cron string `toml:"cron"`
}

// PipelineConfig holds ingestion and reporting schedule parameters.
type PipelineConfig struct {
	Enabled bool `toml:"enabled"`
	// IngestInterval is the gap between polling cycles.
	IngestInterval duration `toml:"ingest_interval"`
	// IngestCron overrides IngestInterval when set.
	IngestCron string `toml:"ingest_cron"`
	// MaxConcurrent caps simultaneous per-platform venue calls.
	MaxConcurrent int `toml:"max_concurrent"`
	// LockTTL bounds how long a crashed instance can hold the cycle lock.
	LockTTL duration `toml:"lock_ttl"`
	// ReportCron fires the monthly ledger export.
	ReportCron   string `toml:"report_cron"`
	RunOnStartup bool   `toml:"run_on_startup"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// AdminKey guards the mutating admin endpoints. Empty disables them.
	AdminKey string `toml:"admin_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "liquidlab",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "liquidlab-reports",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Hyperliquid: HyperliquidConfig{
			APIURL:    "https://api.hyperliquid.xyz",
			WsURL:     "wss://api.hyperliquid.xyz/ws",
			WsEnabled: false,
		},
		Fees: FeesConfig{
			SpotFeeRate:          "0.0004",
			PerpFeeRate:          "0.00025",
			TradingPlatformRatio: "0.7",
			OnrampPlatformRatio:  "0.5",
		},
		Payout: PayoutConfig{
			MinPayout: "10",
			Cron:      "0 6 1 * *",
		},
		Pipeline: PipelineConfig{
			Enabled:         true,
			IngestInterval:  duration{5 * time.Minute},
			MaxConcurrent:   4,
			LockTTL: duration{10 * time.Minute},
			ReportCron:      "0 3 1 * *",
			RunOnStartup:    true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"payout_failed", "invariant_violation", "ingest_error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"full":     true,
	"pipeline": true,
	"server":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: full, pipeline, server)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Endpoint == "" {
		errs = append(errs, "s3: endpoint must not be empty")
	}
	if c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	// Hyperliquid
	if c.Hyperliquid.APIURL == "" {
		errs = append(errs, "hyperliquid: api_url must not be empty")
	}
	if c.Hyperliquid.WsEnabled && c.Hyperliquid.WsURL == "" {
		errs = append(errs, "hyperliquid: ws_url is required when ws_enabled is set")
	}

	// Fees. Rates and ratios must be decimals in [0, 1].
	one := decimal.NewFromInt(1)
	checkRatio := func(name, v string) {
		d, err := decimal.NewFromString(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("fees: %s %q is not a decimal", name, v))
			return
		}
		if d.IsNegative() || d.GreaterThan(one) {
			errs = append(errs, fmt.Sprintf("fees: %s must be in [0, 1], got %s", name, v))
		}
	}
	checkRatio("spot_fee_rate", c.Fees.SpotFeeRate)
	checkRatio("perp_fee_rate", c.Fees.PerpFeeRate)
	checkRatio("trading_platform_ratio", c.Fees.TradingPlatformRatio)
	checkRatio("onramp_platform_ratio", c.Fees.OnrampPlatformRatio)

	// Payout
	if minPayout, err := decimal.NewFromString(c.Payout.MinPayout); err != nil {
		errs = append(errs, fmt.Sprintf("payout: min_payout %q is not a decimal", c.Payout.MinPayout))
	} else if minPayout.IsNegative() {
		errs = append(errs, "payout: min_payout must be >= 0")
	}

	// Pipeline
	if c.Pipeline.Enabled {
		if c.Pipeline.IngestCron == "" && c.Pipeline.IngestInterval.Duration < time.Second {
			errs = append(errs, "pipeline: ingest_interval must be at least 1s (or set ingest_cron)")
		}
		if c.Pipeline.MaxConcurrent < 1 {
			errs = append(errs, "pipeline: max_concurrent must be >= 1")
		}
		if c.Pipeline.LockTTL.Duration < time.Second {
			errs = append(errs, "pipeline: lock_ttl must be at least 1s")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
