package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/signalbot/indicators"
	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/risk"
	"github.com/rustyeddy/signalbot/store/postgres"
	"github.com/rustyeddy/signalbot/store/redis"
	"github.com/rustyeddy/signalbot/strategies"
)

// Config is the complete bot configuration.
type Config struct {
	Symbol     string               `json:"symbol" yaml:"symbol" toml:"symbol"`
	Timeframe  string               `json:"timeframe" yaml:"timeframe" toml:"timeframe"`
	Strategy   StrategyConfig       `json:"strategy" yaml:"strategy" toml:"strategy"`
	Indicators indicators.Params    `json:"indicators" yaml:"indicators" toml:"indicators"`
	Exit       strategies.ExitRules `json:"exit" yaml:"exit" toml:"exit"`
	Confidence ConfidenceConfig     `json:"confidence" yaml:"confidence" toml:"confidence"`
	Risk       risk.Policy          `json:"risk" yaml:"risk" toml:"risk"`
	Feed       FeedConfig           `json:"feed" yaml:"feed" toml:"feed"`
	Store      StoreConfig          `json:"store" yaml:"store" toml:"store"`
	Journal    JournalConfig        `json:"journal" yaml:"journal" toml:"journal"`
	Notify     NotifyConfig         `json:"notify" yaml:"notify" toml:"notify"`
	Schedule   ScheduleConfig       `json:"schedule" yaml:"schedule" toml:"schedule"`
	Metrics    MetricsConfig        `json:"metrics" yaml:"metrics" toml:"metrics"`
	Log        LogConfig            `json:"log" yaml:"log" toml:"log"`
}

// StrategyConfig picks the entry rule and its risk/reward.
type StrategyConfig struct {
	Name               string  `json:"name" yaml:"name" toml:"name"`
	RR                 float64 `json:"rr" yaml:"rr" toml:"rr"`
	strategies.Options `yaml:",inline"`
}

// ConfidenceConfig enables the external scorer and its gate.
type ConfidenceConfig struct {
	Enabled                   bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	URL                       string   `json:"url" yaml:"url" toml:"url"`
	Window                    int      `json:"window" yaml:"window" toml:"window"`
	Timeout                   Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
	strategies.ConfidenceGate `yaml:",inline"`
}

type FeedConfig struct {
	Provider   string   `json:"provider" yaml:"provider" toml:"provider"` // "twelvedata" or "csv"
	APIKey     string   `json:"api_key" yaml:"api_key" toml:"api_key"`
	BaseURL    string   `json:"base_url,omitempty" yaml:"base_url,omitempty" toml:"base_url"`
	OutputSize int      `json:"output_size" yaml:"output_size" toml:"output_size"`
	CSVPath    string   `json:"csv_path,omitempty" yaml:"csv_path,omitempty" toml:"csv_path"`
	Timeout    Duration `json:"timeout" yaml:"timeout" toml:"timeout"`
}

type StoreConfig struct {
	Backend  string                `json:"backend" yaml:"backend" toml:"backend"` // sqlite, redis, postgres or memory
	Path     string                `json:"path,omitempty" yaml:"path,omitempty" toml:"path"`
	Redis    redis.ClientConfig    `json:"redis" yaml:"redis" toml:"redis"`
	Postgres postgres.ClientConfig `json:"postgres" yaml:"postgres" toml:"postgres"`
	// Migrate applies the embedded postgres migrations on start.
	Migrate bool `json:"migrate" yaml:"migrate" toml:"migrate"`
	// Lock serializes cycles across processes through a Redis lock.
	Lock bool `json:"lock" yaml:"lock" toml:"lock"`
}

// JournalConfig mirrors closed trades into a CSV file when CSVPath is set.
type JournalConfig struct {
	CSVPath string `json:"csv_path,omitempty" yaml:"csv_path,omitempty" toml:"csv_path"`
}

type NotifyConfig struct {
	DiscordWebhookURL string   `json:"discord_webhook_url,omitempty" yaml:"discord_webhook_url,omitempty" toml:"discord_webhook_url"`
	TelegramToken     string   `json:"telegram_token,omitempty" yaml:"telegram_token,omitempty" toml:"telegram_token"`
	TelegramChatID    string   `json:"telegram_chat_id,omitempty" yaml:"telegram_chat_id,omitempty" toml:"telegram_chat_id"`
	WebhookURL        string   `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty" toml:"webhook_url"`
	Log               bool     `json:"log" yaml:"log" toml:"log"`
	Kinds             []string `json:"kinds,omitempty" yaml:"kinds,omitempty" toml:"kinds"`
}

type ScheduleConfig struct {
	Interval   Duration `json:"interval" yaml:"interval" toml:"interval"`
	Align      bool     `json:"align" yaml:"align" toml:"align"`
	Offset     Duration `json:"offset" yaml:"offset" toml:"offset"`
	RunOnStart bool     `json:"run_on_start" yaml:"run_on_start" toml:"run_on_start"`
	LockTTL    Duration `json:"lock_ttl" yaml:"lock_ttl" toml:"lock_ttl"`
}

// MetricsConfig serves /metrics and /healthz on Addr; empty disables it.
type MetricsConfig struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
}

// Duration reads "15m" style strings from YAML, JSON and TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns BTC/USD on 15 minute candles, Bollinger
// re-entry with a 2% stop and a 4% target.
func Default() *Config {
	return &Config{
		Symbol:    "BTC/USD",
		Timeframe: "15min",
		Strategy: StrategyConfig{
			Name:    strategies.ReentryName,
			RR:      2,
			Options: strategies.DefaultOptions(),
		},
		Indicators: indicators.DefaultParams(),
		Confidence: ConfidenceConfig{
			Window:         100,
			Timeout:        Duration{10 * time.Second},
			ConfidenceGate: strategies.DefaultGate(),
		},
		Risk: risk.DefaultPolicy(),
		Feed: FeedConfig{
			Provider:   "twelvedata",
			OutputSize: 50,
			Timeout:    Duration{30 * time.Second},
		},
		Store: StoreConfig{
			Backend: "sqlite",
			Path:    "./signalbot.db",
			Redis:   redis.ClientConfig{Addr: "localhost:6379", Prefix: "signalbot"},
			Migrate: true,
		},
		Notify: NotifyConfig{Log: true},
		Schedule: ScheduleConfig{
			Interval:   Duration{15 * time.Minute},
			Align:      true,
			Offset:     Duration{5 * time.Second},
			RunOnStart: true,
			LockTTL:    Duration{2 * time.Minute},
		},
		Metrics: MetricsConfig{Addr: ":8080"},
		Log:     LogConfig{Level: "info", Format: "json"},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if _, err := market.ParseTimeframe(c.Timeframe); err != nil {
		return fmt.Errorf("timeframe: %w", err)
	}
	if _, err := strategies.Lookup(c.Strategy.Name, c.Strategy.Options); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	if c.Strategy.RR <= 0 {
		return fmt.Errorf("strategy.rr must be positive")
	}
	if c.Strategy.StopLossPct <= 0 || c.Strategy.StopLossPct >= 1 {
		return fmt.Errorf("strategy.stop_loss_pct must be between 0 and 1")
	}
	if err := c.Indicators.Validate(); err != nil {
		return fmt.Errorf("indicators: %w", err)
	}
	if c.Risk.MinRR < 0 || c.Risk.MaxStopPct < 0 {
		return fmt.Errorf("risk limits must not be negative")
	}
	if c.Confidence.Enabled {
		if c.Confidence.URL == "" {
			return fmt.Errorf("confidence.url is required when confidence is enabled")
		}
		if err := c.Confidence.ConfidenceGate.Validate(); err != nil {
			return fmt.Errorf("confidence: %w", err)
		}
	}

	switch c.Feed.Provider {
	case "twelvedata":
		if c.Feed.APIKey == "" {
			return fmt.Errorf("feed.api_key is required for twelvedata (or set TWELVE_API_KEY)")
		}
		if c.Feed.OutputSize < c.Indicators.Warmup() {
			return fmt.Errorf("feed.output_size %d is below the indicator warmup %d", c.Feed.OutputSize, c.Indicators.Warmup())
		}
	case "csv":
		if c.Feed.CSVPath == "" {
			return fmt.Errorf("feed.csv_path is required for the csv provider")
		}
	default:
		return fmt.Errorf("feed.provider must be 'twelvedata' or 'csv'")
	}

	switch c.Store.Backend {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for sqlite")
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for redis")
		}
	case "postgres":
		if c.Store.Postgres.DSN == "" && c.Store.Postgres.Host == "" {
			return fmt.Errorf("store.postgres needs a dsn or host")
		}
	case "memory":
	default:
		return fmt.Errorf("store.backend must be 'sqlite', 'redis', 'postgres' or 'memory'")
	}
	if c.Store.Lock && c.Store.Redis.Addr == "" {
		return fmt.Errorf("store.lock needs store.redis.addr")
	}

	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		return fmt.Errorf("notify.telegram_token and notify.telegram_chat_id go together")
	}
	for _, k := range c.Notify.Kinds {
		if k != "entry" && k != "exit" {
			return fmt.Errorf("notify.kinds: unknown kind %q", k)
		}
	}

	if c.Schedule.Interval.Duration <= 0 {
		return fmt.Errorf("schedule.interval must be positive")
	}
	if c.Schedule.Offset.Duration < 0 || c.Schedule.Offset.Duration >= c.Schedule.Interval.Duration {
		return fmt.Errorf("schedule.offset must be within [0, interval)")
	}
	return nil
}

// SaveToFile writes the configuration as YAML, TOML or JSON depending on
// the file extension.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".toml":
		var b strings.Builder
		err = toml.NewEncoder(&b).Encode(c)
		data = []byte(b.String())
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
