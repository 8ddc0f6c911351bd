package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/signalbot/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate, validate or show configuration",
	Long: `Manage signalbot configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate a configuration file plus environment
  show     - Print the effective configuration with secrets masked

Examples:
  signalbot config init -o signalbot.yaml
  signalbot config validate -c signalbot.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings. The format
follows the extension: .yaml/.yml, .toml or .json.

Example:
  signalbot config init -o signalbot.toml`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitOutput string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "signalbot.yaml", "output config file path")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nSet feed.api_key (or TWELVE_API_KEY) and run with:")
	fmt.Fprintf(out, "  signalbot run -c %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid\n")
	fmt.Fprintf(out, "  Symbol: %s (%s)\n", cfg.Symbol, cfg.Timeframe)
	fmt.Fprintf(out, "  Strategy: %s (RR %.1f, stop %.1f%%)\n", cfg.Strategy.Name, cfg.Strategy.RR, cfg.Strategy.StopLossPct*100)
	fmt.Fprintf(out, "  Feed: %s\n", cfg.Feed.Provider)
	fmt.Fprintf(out, "  Store: %s\n", cfg.Store.Backend)
	fmt.Fprintf(out, "  Schedule: every %s\n", cfg.Schedule.Interval.Duration)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(config.Redacted(cfg))
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
