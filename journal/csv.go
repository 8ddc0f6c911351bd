package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/signals"
)

var csvHeader = []string{
	"trade_id", "symbol", "timeframe", "direction",
	"entry_price", "stop_loss", "take_profit", "exit_price",
	"risk", "reward", "pnl", "result",
	"entry_time", "exit_time", "strategy",
}

func csvRow(t TradeRecord) []string {
	return []string{
		t.TradeID,
		t.Symbol,
		t.Timeframe,
		string(t.Direction),
		f(t.EntryPrice),
		f(t.StopLoss),
		f(t.TakeProfit),
		f(t.ExitPrice),
		f(t.Risk),
		f(t.Reward),
		f(t.PnL),
		string(t.Result),
		t.EntryTime.UTC().Format(time.RFC3339),
		t.ExitTime.UTC().Format(time.RFC3339),
		t.Strategy,
	}
}

// WriteCSV writes a header and one row per trade.
func WriteCSV(w io.Writer, trades []TradeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range trades {
		if err := cw.Write(csvRow(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVJournal mirrors closed trades into a CSV file opened in append mode.
// The header is written only when the file is new or empty.
type CSVJournal struct {
	w  *csv.Writer
	fh *os.File
}

func NewCSV(path string) (*CSVJournal, error) {
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	st, err := fh.Stat()
	if err != nil {
		_ = fh.Close()
		return nil, err
	}

	w := csv.NewWriter(fh)
	if st.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			_ = fh.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			_ = fh.Close()
			return nil, err
		}
	}
	return &CSVJournal{w: w, fh: fh}, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	if err := j.w.Write(csvRow(t)); err != nil {
		return fmt.Errorf("csv journal: %w", err)
	}
	j.w.Flush()
	return j.w.Error()
}

func (j *CSVJournal) Close() error {
	j.w.Flush()
	return errors.Join(j.w.Error(), j.fh.Close())
}

// ReadCSV parses a file produced by WriteCSV or CSVJournal.
func ReadCSV(r io.Reader) ([]TradeRecord, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var out []TradeRecord
	for i, row := range rows[1:] {
		if len(row) != len(csvHeader) {
			return nil, fmt.Errorf("csv row %d: want %d fields, got %d", i+2, len(csvHeader), len(row))
		}
		var t TradeRecord
		t.TradeID, t.Symbol, t.Timeframe = row[0], row[1], row[2]
		t.Direction = market.Direction(row[3])
		nums := []*float64{&t.EntryPrice, &t.StopLoss, &t.TakeProfit, &t.ExitPrice, &t.Risk, &t.Reward, &t.PnL}
		for k, p := range nums {
			v, err := strconv.ParseFloat(row[4+k], 64)
			if err != nil {
				return nil, fmt.Errorf("csv row %d field %s: %w", i+2, csvHeader[4+k], err)
			}
			*p = v
		}
		t.Result = signals.Result(row[11])
		if t.EntryTime, err = time.Parse(time.RFC3339, row[12]); err != nil {
			return nil, fmt.Errorf("csv row %d entry_time: %w", i+2, err)
		}
		if t.ExitTime, err = time.Parse(time.RFC3339, row[13]); err != nil {
			return nil, fmt.Errorf("csv row %d exit_time: %w", i+2, err)
		}
		t.Strategy = row[14]
		out = append(out, t)
	}
	return out, nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}
