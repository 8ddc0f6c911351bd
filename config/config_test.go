package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Feed.APIKey = "test-key"
	return cfg
}

func TestDefaultNeedsAPIKey(t *testing.T) {
	err := Default().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")

	require.NoError(t, validConfig().Validate())
}

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "BTC/USD", cfg.Symbol)
	assert.Equal(t, "15min", cfg.Timeframe)
	assert.Equal(t, 2.0, cfg.Strategy.RR)
	assert.Equal(t, 0.02, cfg.Strategy.StopLossPct)
	assert.Equal(t, 0.65, cfg.Confidence.BuyThreshold)
	assert.Equal(t, 0.35, cfg.Confidence.SellThreshold)
	assert.Equal(t, 15*time.Minute, cfg.Schedule.Interval.Duration)
	assert.False(t, cfg.Exit.TrendInvalidation)
	assert.True(t, cfg.Notify.Log)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty symbol", func(c *Config) { c.Symbol = " " }, "symbol"},
		{"bad timeframe", func(c *Config) { c.Timeframe = "7x" }, "timeframe"},
		{"unknown strategy", func(c *Config) { c.Strategy.Name = "nope" }, "strategy"},
		{"zero rr", func(c *Config) { c.Strategy.RR = 0 }, "strategy.rr"},
		{"stop too wide", func(c *Config) { c.Strategy.StopLossPct = 1 }, "stop_loss_pct"},
		{"bad indicators", func(c *Config) { c.Indicators.BandPeriod = 0 }, "indicators"},
		{"negative risk", func(c *Config) { c.Risk.MinRR = -1 }, "risk"},
		{"confidence without url", func(c *Config) { c.Confidence.Enabled = true }, "confidence.url"},
		{"inverted gate", func(c *Config) {
			c.Confidence.Enabled = true
			c.Confidence.URL = "http://scorer"
			c.Confidence.BuyThreshold = 0.3
		}, "confidence"},
		{"small output size", func(c *Config) { c.Feed.OutputSize = 5 }, "output_size"},
		{"csv without path", func(c *Config) { c.Feed.Provider = "csv" }, "csv_path"},
		{"unknown feed", func(c *Config) { c.Feed.Provider = "oanda" }, "feed.provider"},
		{"sqlite without path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"postgres without dsn", func(c *Config) { c.Store.Backend = "postgres" }, "postgres"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "mongo" }, "store.backend"},
		{"lock without redis", func(c *Config) {
			c.Store.Lock = true
			c.Store.Redis.Addr = ""
		}, "store.lock"},
		{"telegram half set", func(c *Config) { c.Notify.TelegramToken = "t" }, "telegram"},
		{"unknown kind", func(c *Config) { c.Notify.Kinds = []string{"entry", "fill"} }, "fill"},
		{"zero interval", func(c *Config) { c.Schedule.Interval = Duration{} }, "interval"},
		{"offset past interval", func(c *Config) { c.Schedule.Offset = Duration{time.Hour} }, "offset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateAlternatives(t *testing.T) {
	cfg := Default()
	cfg.Feed.Provider = "csv"
	cfg.Feed.CSVPath = "candles.csv"
	cfg.Store.Backend = "memory"
	cfg.Notify.TelegramToken = "t"
	cfg.Notify.TelegramChatID = "42"
	require.NoError(t, cfg.Validate())

	cfg.Store.Backend = "postgres"
	cfg.Store.Postgres.Host = "db"
	require.NoError(t, cfg.Validate())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	for _, ext := range []string{".yaml", ".json", ".toml"} {
		t.Run(ext, func(t *testing.T) {
			cfg := validConfig()
			cfg.Symbol = "ETH/USD"
			cfg.Strategy.Name = "trend_rejection"
			cfg.Strategy.RequireMACD = true
			cfg.Exit.TrendInvalidation = true
			cfg.Confidence.Enabled = true
			cfg.Confidence.URL = "http://scorer:9000/score"
			cfg.Confidence.BuyThreshold = 0.7
			cfg.Notify.Kinds = []string{"entry", "exit"}
			cfg.Schedule.Interval = Duration{5 * time.Minute}

			path := filepath.Join(t.TempDir(), "signalbot"+ext)
			require.NoError(t, cfg.SaveToFile(path))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

			got, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, got)
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbol: EUR/USD\nfeed:\n  api_key: abc\nschedule:\n  interval: 1h\n"), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "EUR/USD", cfg.Symbol)
	assert.Equal(t, "abc", cfg.Feed.APIKey)
	assert.Equal(t, time.Hour, cfg.Schedule.Interval.Duration)
	assert.Equal(t, "twelvedata", cfg.Feed.Provider)
	assert.Equal(t, 50, cfg.Feed.OutputSize)
	assert.Equal(t, 20, cfg.Indicators.BandPeriod)
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("symbol: [unterminated"), 0o600))
	_, err = LoadFromFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")

	badToml := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(badToml, []byte("symbol = "), 0o600))
	_, err = LoadFromFile(badToml)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse toml")

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("symbol: BTC/USD\n"), 0o600))
	_, err = LoadFromFile(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TWELVE_API_KEY", "legacy-key")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.test/hook")
	t.Setenv("PORT", "9090")
	t.Setenv("SIGNALBOT_SYMBOL", "XAU/USD")
	t.Setenv("SIGNALBOT_STRATEGY_RR", "3")
	t.Setenv("SIGNALBOT_FEED_OUTPUT_SIZE", "120")
	t.Setenv("SIGNALBOT_STORE_BACKEND", "memory")
	t.Setenv("SIGNALBOT_EXIT_TREND_INVALIDATION", "true")
	t.Setenv("SIGNALBOT_NOTIFY_KINDS", " entry , ,exit")
	t.Setenv("SIGNALBOT_SCHEDULE_INTERVAL", "30m")
	t.Setenv("SIGNALBOT_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "legacy-key", cfg.Feed.APIKey)
	assert.Equal(t, "https://discord.test/hook", cfg.Notify.DiscordWebhookURL)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.Equal(t, "XAU/USD", cfg.Symbol)
	assert.Equal(t, 3.0, cfg.Strategy.RR)
	assert.Equal(t, 120, cfg.Feed.OutputSize)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.True(t, cfg.Exit.TrendInvalidation)
	assert.Equal(t, []string{"entry", "exit"}, cfg.Notify.Kinds)
	assert.Equal(t, 30*time.Minute, cfg.Schedule.Interval.Duration)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEnvPrefixedWinsOverLegacy(t *testing.T) {
	t.Setenv("TWELVE_API_KEY", "legacy")
	t.Setenv("SIGNALBOT_FEED_API_KEY", "prefixed")
	t.Setenv("SIGNALBOT_FEED_OUTPUT_SIZE", "not-a-number")

	cfg := Default()
	ApplyEnv(cfg)
	assert.Equal(t, "prefixed", cfg.Feed.APIKey)
	assert.Equal(t, 50, cfg.Feed.OutputSize, "unparsable values are ignored")
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.toml")
	cfg := validConfig()
	require.NoError(t, cfg.SaveToFile(path))

	t.Setenv("SIGNALBOT_SYMBOL", "SOL/USD")
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "SOL/USD", got.Symbol)
	assert.Equal(t, "test-key", got.Feed.APIKey)
}

func TestRedacted(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Redis.Password = "redis-pw"
	cfg.Store.Postgres.DSN = "postgres://bot:secret@db:5432/signals"
	cfg.Notify.DiscordWebhookURL = "https://discord.com/api/webhooks/1/abc"
	cfg.Notify.TelegramToken = "123:xyz"
	cfg.Notify.TelegramChatID = "42"
	cfg.Notify.Kinds = []string{"entry"}

	r := Redacted(cfg)
	assert.Equal(t, "****", r.Feed.APIKey)
	assert.Equal(t, "****", r.Store.Redis.Password)
	assert.Equal(t, "", r.Store.Postgres.Password)
	assert.Equal(t, "postgres://db:5432/****", r.Store.Postgres.DSN)
	assert.Equal(t, "https://discord.com/****", r.Notify.DiscordWebhookURL)
	assert.Equal(t, "****", r.Notify.TelegramToken)
	assert.Equal(t, "42", r.Notify.TelegramChatID)

	assert.Equal(t, "test-key", cfg.Feed.APIKey, "input untouched")
	r.Notify.Kinds[0] = "exit"
	assert.Equal(t, "entry", cfg.Notify.Kinds[0])
}
