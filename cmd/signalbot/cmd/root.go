package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/signalbot/config"
	"github.com/rustyeddy/signalbot/logging"
)

var rootCmd = &cobra.Command{
	Use:   "signalbot",
	Short: "Single-symbol trading signal bot",
	Long: `Signalbot fetches candles for one symbol on a schedule, evaluates a
Bollinger / EMA / RSI / MACD strategy and publishes entry and exit signals
to Discord, Telegram or a webhook.

It tracks at most one open position, books every closed trade in a
persistent journal (SQLite, Redis or PostgreSQL) and never re-sends a
signal it already emitted.

Settings come from a YAML, JSON or TOML file, a .env file and SIGNALBOT_*
environment variables, in that order.`,
	SilenceUsage: true,
}

var (
	cfgFile  string
	logLevel string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML, JSON or TOML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

// loadConfig reads the --config file plus environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Writer:  cmd.ErrOrStderr(),
		Service: "signalbot",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	slog.SetDefault(logger)
	return logger, nil
}
