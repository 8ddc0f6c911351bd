package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SIGNALBOT_"

// Load merges the file at path (YAML with a JSON fallback, or TOML for a
// .toml extension) over Default, loads .env if present, applies the
// environment overrides and validates the result. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// a missing .env is fine
	_ = godotenv.Load()

	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile reads path without touching the environment.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse toml config: %w", err)
		}
		return nil
	}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return nil
}

// ApplyEnv overwrites fields from SIGNALBOT_* variables. The legacy names
// TWELVE_API_KEY, DISCORD_WEBHOOK_URL and PORT are honoured too; the
// prefixed form wins when both are set.
func ApplyEnv(cfg *Config) {
	setStr(&cfg.Feed.APIKey, "TWELVE_API_KEY")
	setStr(&cfg.Notify.DiscordWebhookURL, "DISCORD_WEBHOOK_URL")
	if port := os.Getenv("PORT"); port != "" {
		cfg.Metrics.Addr = ":" + port
	}

	// ── Market ──
	setStr(&cfg.Symbol, EnvPrefix+"SYMBOL")
	setStr(&cfg.Timeframe, EnvPrefix+"TIMEFRAME")

	// ── Strategy ──
	setStr(&cfg.Strategy.Name, EnvPrefix+"STRATEGY_NAME")
	setFloat64(&cfg.Strategy.RR, EnvPrefix+"STRATEGY_RR")
	setFloat64(&cfg.Strategy.StopLossPct, EnvPrefix+"STRATEGY_STOP_LOSS_PCT")
	setBool(&cfg.Exit.TrendInvalidation, EnvPrefix+"EXIT_TREND_INVALIDATION")

	// ── Confidence ──
	setBool(&cfg.Confidence.Enabled, EnvPrefix+"CONFIDENCE_ENABLED")
	setStr(&cfg.Confidence.URL, EnvPrefix+"CONFIDENCE_URL")

	// ── Feed ──
	setStr(&cfg.Feed.Provider, EnvPrefix+"FEED_PROVIDER")
	setStr(&cfg.Feed.APIKey, EnvPrefix+"FEED_API_KEY")
	setStr(&cfg.Feed.BaseURL, EnvPrefix+"FEED_BASE_URL")
	setInt(&cfg.Feed.OutputSize, EnvPrefix+"FEED_OUTPUT_SIZE")
	setStr(&cfg.Feed.CSVPath, EnvPrefix+"FEED_CSV_PATH")

	// ── Store ──
	setStr(&cfg.Store.Backend, EnvPrefix+"STORE_BACKEND")
	setStr(&cfg.Store.Path, EnvPrefix+"STORE_PATH")
	setStr(&cfg.Store.Redis.Addr, EnvPrefix+"REDIS_ADDR")
	setStr(&cfg.Store.Redis.Password, EnvPrefix+"REDIS_PASSWORD")
	setInt(&cfg.Store.Redis.DB, EnvPrefix+"REDIS_DB")
	setStr(&cfg.Store.Postgres.DSN, EnvPrefix+"POSTGRES_DSN")
	setStr(&cfg.Store.Postgres.Password, EnvPrefix+"POSTGRES_PASSWORD")
	setBool(&cfg.Store.Lock, EnvPrefix+"STORE_LOCK")

	// ── Notify ──
	setStr(&cfg.Notify.DiscordWebhookURL, EnvPrefix+"NOTIFY_DISCORD_WEBHOOK_URL")
	setStr(&cfg.Notify.TelegramToken, EnvPrefix+"NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, EnvPrefix+"NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.WebhookURL, EnvPrefix+"NOTIFY_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Kinds, EnvPrefix+"NOTIFY_KINDS")

	// ── Schedule / serving ──
	setDuration(&cfg.Schedule.Interval, EnvPrefix+"SCHEDULE_INTERVAL")
	setStr(&cfg.Metrics.Addr, EnvPrefix+"METRICS_ADDR")
	setStr(&cfg.Journal.CSVPath, EnvPrefix+"JOURNAL_CSV_PATH")

	// ── Log ──
	setStr(&cfg.Log.Level, EnvPrefix+"LOG_LEVEL")
	setStr(&cfg.Log.Format, EnvPrefix+"LOG_FORMAT")
}

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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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

func setDuration(dst *Duration, key string) {
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
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
