package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/signalbot/position"
)

var positionCmd = &cobra.Command{
	Use:   "position",
	Short: "Show the open position, if any",
	Args:  cobra.NoArgs,
	RunE:  runPosition,
}

func init() {
	rootCmd.AddCommand(positionCmd)
}

func runPosition(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	be, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer be.Close()

	p, err := position.NewTracker(be, cfg.Symbol, cfg.Timeframe).Current(cmd.Context())
	if err != nil {
		return fmt.Errorf("load position: %w", err)
	}

	out := cmd.OutOrStdout()
	if p == nil {
		fmt.Fprintf(out, "%s: flat\n", cfg.Symbol)
		return nil
	}
	fmt.Fprintf(out, "%s: %s since %s (%s)\n", p.Symbol, strings.ToUpper(string(p.Direction)),
		p.EntryTime.UTC().Format("2006-01-02 15:04:05"), p.ID)
	fmt.Fprintf(out, "  Entry: %.2f\n", p.EntryPrice)
	fmt.Fprintf(out, "  SL:    %.2f\n", p.StopLoss)
	fmt.Fprintf(out, "  TP:    %.2f\n", p.TakeProfit)
	fmt.Fprintf(out, "  Strategy: %s\n", p.Strategy)
	return nil
}
