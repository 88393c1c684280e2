package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies LLREV_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known LLREV_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "LLREV_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "LLREV_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "LLREV_DATABASE_HOST")
	setInt(&cfg.Database.Port, "LLREV_DATABASE_PORT")
	setStr(&cfg.Database.Database, "LLREV_DATABASE_NAME")
	setStr(&cfg.Database.User, "LLREV_DATABASE_USER")
	setStr(&cfg.Database.Password, "LLREV_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "LLREV_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "LLREV_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "LLREV_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "LLREV_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "LLREV_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "LLREV_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "LLREV_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "LLREV_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "LLREV_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "LLREV_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "LLREV_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "LLREV_S3_REGION")
	setStr(&cfg.S3.Bucket, "LLREV_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "LLREV_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "LLREV_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "LLREV_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "LLREV_S3_FORCE_PATH_STYLE")

	// ── Hyperliquid ──
	setStr(&cfg.Hyperliquid.APIURL, "LLREV_HYPERLIQUID_API_URL")
	setStr(&cfg.Hyperliquid.WsURL, "LLREV_HYPERLIQUID_WS_URL")
	setBool(&cfg.Hyperliquid.WsEnabled, "LLREV_HYPERLIQUID_WS_ENABLED")

	// ── Fees ──
	setStr(&cfg.Fees.SpotFeeRate, "LLREV_FEES_SPOT_FEE_RATE")
	setStr(&cfg.Fees.PerpFeeRate, "LLREV_FEES_PERP_FEE_RATE")
	setStr(&cfg.Fees.TradingPlatformRatio, "LLREV_FEES_TRADING_PLATFORM_RATIO")
	setStr(&cfg.Fees.OnrampPlatformRatio, "LLREV_FEES_ONRAMP_PLATFORM_RATIO")

	// ── Payout ──
	setStr(&cfg.Payout.MinPayout, "LLREV_PAYOUT_MIN_PAYOUT")
	setStr(&cfg.Payout.ExecutorURL, "LLREV_PAYOUT_EXECUTOR_URL")
	setStr(&cfg.Payout.ExecutorKey, "LLREV_PAYOUT_EXECUTOR_KEY")
	setStr(&cfg.Payout.Cron, "LLREV_PAYOUT_CRON")

	// ── Pipeline ──
	setBool(&cfg.Pipeline.Enabled, "LLREV_PIPELINE_ENABLED")
	setDuration(&cfg.Pipeline.IngestInterval, "LLREV_PIPELINE_INGEST_INTERVAL")
	setStr(&cfg.Pipeline.IngestCron, "LLREV_PIPELINE_INGEST_CRON")
	setInt(&cfg.Pipeline.MaxConcurrent, "LLREV_PIPELINE_MAX_CONCURRENT")
	setDuration(&cfg.Pipeline.LockTTL, "LLREV_PIPELINE_LOCK_TTL")
	setStr(&cfg.Pipeline.ReportCron, "LLREV_PIPELINE_REPORT_CRON")
	setBool(&cfg.Pipeline.RunOnStartup, "LLREV_PIPELINE_RUN_ON_STARTUP")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "LLREV_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "LLREV_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "LLREV_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.AdminKey, "LLREV_SERVER_ADMIN_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "LLREV_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "LLREV_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "LLREV_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "LLREV_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "LLREV_MODE")
	setStr(&cfg.LogLevel, "LLREV_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
