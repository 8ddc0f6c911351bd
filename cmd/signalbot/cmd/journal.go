package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/signalbot/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the trade journal",
	Long: `Query and display closed trades from the configured store.

Subcommands:
  list     - All trades in booking order
  trade    - Details of a specific trade by ID
  today    - Trades closed today
  day      - Trades closed on a specific day
  summary  - Win rate, PnL and profit factor
  export   - Write all trades as CSV

Examples:
  signalbot journal trade BTCUSD-20250301T101500-001
  signalbot journal day 2025-03-01
  signalbot journal export -o trades.csv`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all trades",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize all trades",
	Args:  cobra.NoArgs,
	RunE:  runJournalSummary,
}

var journalExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all trades as CSV",
	Args:  cobra.NoArgs,
	RunE:  runJournalExport,
}

var (
	journalUTC       bool
	journalExportOut string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalSummaryCmd)
	journalCmd.AddCommand(journalExportCmd)

	journalCmd.PersistentFlags().BoolVar(&journalUTC, "utc", false, "use UTC day boundaries instead of local time")
	journalExportCmd.Flags().StringVarP(&journalExportOut, "output", "o", "", "output file (default stdout)")
}

// withLedger opens the configured store for the duration of fn.
func withLedger(ctx context.Context, fn func(journal.Ledger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	be, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer be.Close()
	return fn(be)
}

func runJournalList(cmd *cobra.Command, args []string) error {
	return withLedger(cmd.Context(), func(l journal.Ledger) error {
		recs, err := l.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list trades: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
		return nil
	})
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	return withLedger(cmd.Context(), func(l journal.Ledger) error {
		rec, err := l.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get trade: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
		return nil
	})
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	loc := journalLocation()
	return listDay(cmd, time.Now().In(loc).Format("2006-01-02"), loc)
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return listDay(cmd, args[0], journalLocation())
}

func listDay(cmd *cobra.Command, day string, loc *time.Location) error {
	start, end, err := dayBounds(loc, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	return withLedger(cmd.Context(), func(l journal.Ledger) error {
		recs, err := l.ListClosedBetween(cmd.Context(), start, end)
		if err != nil {
			return fmt.Errorf("query trades: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
		return nil
	})
}

func runJournalSummary(cmd *cobra.Command, args []string) error {
	return withLedger(cmd.Context(), func(l journal.Ledger) error {
		recs, err := l.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list trades: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), journal.FormatStatsOrg("Summary", journal.Summarize(recs)))
		return nil
	})
}

func runJournalExport(cmd *cobra.Command, args []string) error {
	return withLedger(cmd.Context(), func(l journal.Ledger) error {
		recs, err := l.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list trades: %w", err)
		}
		var w io.Writer = cmd.OutOrStdout()
		if journalExportOut != "" {
			f, err := os.Create(journalExportOut)
			if err != nil {
				return fmt.Errorf("create %s: %w", journalExportOut, err)
			}
			defer f.Close()
			w = f
		}
		return journal.WriteCSV(w, recs)
	})
}

func journalLocation() *time.Location {
	if journalUTC {
		return time.UTC
	}
	return time.Local
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
