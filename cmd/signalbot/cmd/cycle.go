package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/signalbot/engine"
	"github.com/rustyeddy/signalbot/notify"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run a single cycle and exit",
	Long: `Fetch candles, evaluate once, deliver any signal and persist the
result. Useful from cron or to check a new configuration.

Example:
  signalbot cycle -c signalbot.yaml --json`,
	Args: cobra.NoArgs,
	RunE: runCycle,
}

var cycleJSON bool

func init() {
	rootCmd.AddCommand(cycleCmd)
	cycleCmd.Flags().BoolVar(&cycleJSON, "json", false, "print the result as JSON")
}

func runCycle(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	b, err := buildBot(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	res, err := b.engine.Cycle(cmd.Context())
	if err != nil {
		return fmt.Errorf("cycle: %w", err)
	}
	if cycleJSON {
		return writeResultJSON(cmd.OutOrStdout(), res)
	}
	writeResult(cmd.OutOrStdout(), res)
	return nil
}

func writeResult(w io.Writer, res engine.Result) {
	fmt.Fprintf(w, "Cycle %s: %s\n", res.CycleID, strings.ToUpper(string(res.Outcome)))
	if !res.Candle.IsZero() {
		fmt.Fprintf(w, "  Candle: %s\n", res.Candle.UTC().Format("2006-01-02 15:04:05"))
	}
	if res.Cause != nil {
		fmt.Fprintf(w, "  Reason: %s\n", res.Cause)
	}
	if res.Signal != nil {
		fmt.Fprintf(w, "  Delivered: %t\n\n", res.Delivered)
		fmt.Fprintln(w, notify.FormatSignal(*res.Signal))
	}
	if res.Trade != nil {
		fmt.Fprintf(w, "\n  Trade %s closed %s, pnl %.2f\n", res.Trade.TradeID, res.Trade.Result, res.Trade.PnL)
	}
}

type resultJSON struct {
	engine.Result
	Cause string `json:"cause,omitempty"`
}

func writeResultJSON(w io.Writer, res engine.Result) error {
	out := resultJSON{Result: res}
	if res.Cause != nil {
		out.Cause = res.Cause.Error()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
