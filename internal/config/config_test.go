package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "https://api.hyperliquid.xyz", cfg.Hyperliquid.APIURL)
	assert.Equal(t, 5*time.Minute, cfg.Pipeline.IngestInterval.Duration)
	assert.Equal(t, "0 6 1 * *", cfg.Payout.Cron)
	assert.Empty(t, cfg.Server.AdminKey)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Run("collects every problem", func(t *testing.T) {
		cfg := Defaults()
		cfg.Mode = "turbo"
		cfg.Redis.Addr = ""
		cfg.Fees.SpotFeeRate = "2"
		cfg.Payout.MinPayout = "abc"

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown mode")
		assert.Contains(t, err.Error(), "redis: addr")
		assert.Contains(t, err.Error(), "spot_fee_rate")
		assert.Contains(t, err.Error(), "min_payout")
	})

	t.Run("dsn replaces host fields", func(t *testing.T) {
		cfg := Defaults()
		cfg.Database.Host = ""
		cfg.Database.Database = ""
		cfg.Database.DSN = "postgres://user:pass@db:5432/liquidlab"
		require.NoError(t, cfg.Validate())
	})

	t.Run("ws url required when stream enabled", func(t *testing.T) {
		cfg := Defaults()
		cfg.Hyperliquid.WsEnabled = true
		cfg.Hyperliquid.WsURL = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ws_url")
	})

	t.Run("pipeline checks skipped when disabled", func(t *testing.T) {
		cfg := Defaults()
		cfg.Pipeline.Enabled = false
		cfg.Pipeline.MaxConcurrent = 0
		require.NoError(t, cfg.Validate())
	})
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
mode = "server"
log_level = "debug"

[server]
port = 9090
admin_key = "sekret"

[pipeline]
ingest_interval = "30s"

[fees]
trading_platform_ratio = "0.8"
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "server", cfg.Mode)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "sekret", cfg.Server.AdminKey)
		assert.Equal(t, 30*time.Second, cfg.Pipeline.IngestInterval.Duration)
		assert.Equal(t, "0.8", cfg.Fees.TradingPlatformRatio)
		// Untouched sections keep their defaults.
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	})

	t.Run("env overrides file", func(t *testing.T) {
		path := writeConfigFile(t, `
[server]
port = 9090
`)
		t.Setenv("LLREV_SERVER_PORT", "7777")
		t.Setenv("LLREV_DATABASE_PASSWORD", "env-secret")
		t.Setenv("LLREV_MODE", "pipeline")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 7777, cfg.Server.Port)
		assert.Equal(t, "env-secret", cfg.Database.Password)
		assert.Equal(t, "pipeline", cfg.Mode)
	})

	t.Run("database url alias", func(t *testing.T) {
		path := writeConfigFile(t, "")
		t.Setenv("LLREV_DATABASE_URL", "postgres://u:p@h:5432/db")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "postgres://u:p@h:5432/db", cfg.Database.DSN)
	})

	t.Run("cors origins split on commas", func(t *testing.T) {
		path := writeConfigFile(t, "")
		t.Setenv("LLREV_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		require.Error(t, err)
	})
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Database.Password = "dbpass"
	cfg.Server.AdminKey = "adminkey"
	cfg.Payout.ExecutorKey = "payoutkey"
	cfg.Notify.TelegramToken = "tg-token"

	red := RedactedConfig(&cfg)
	assert.NotContains(t, red.Database.Password, "dbpass")
	assert.NotContains(t, red.Server.AdminKey, "adminkey")
	assert.NotContains(t, red.Payout.ExecutorKey, "payoutkey")
	assert.NotContains(t, red.Notify.TelegramToken, "tg-token")

	// Redaction never mutates the source.
	assert.Equal(t, "dbpass", cfg.Database.Password)
}
