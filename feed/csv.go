package feed

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/signalbot/market"
)

const csvSource = "csv"

// CSVFile reads candles from a text file with one candle per line:
//
//	time,open,high,low,close[,volume]
//
// Fields may be separated by ',' or ';'. Time is RFC3339, "2006-01-02
// 15:04:05" (UTC) or unix seconds. A header line starting with "time" is
// skipped. The file is re-read on every call, so an external process can
// keep appending to it.
type CSVFile struct {
	Path  string
	Limit int // last N candles; 0 returns all
}

func (f *CSVFile) Name() string { return csvSource }

func (f *CSVFile) Candles(ctx context.Context) ([]market.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Source: csvSource, Err: err}
	}

	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, &FetchError{Source: csvSource, Err: err}
	}
	defer fh.Close()

	var candles []market.Candle
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(strings.ToLower(line), "time") {
			continue
		}
		c, err := parseCSVLine(line)
		if err != nil {
			return nil, fetchErr(csvSource, "%s:%d: %w", f.Path, lineNo, err)
		}
		candles = append(candles, c)
	}
	if err := sc.Err(); err != nil {
		return nil, &FetchError{Source: csvSource, Err: err}
	}
	return Tail(Normalize(candles), f.Limit), nil
}

func parseCSVLine(line string) (market.Candle, error) {
	sep := ","
	if strings.Contains(line, ";") {
		sep = ";"
	}
	parts := strings.Split(line, sep)
	if len(parts) < 5 {
		return market.Candle{}, fmt.Errorf("want at least 5 fields, got %d", len(parts))
	}

	t, err := parseCSVTime(strings.TrimSpace(parts[0]))
	if err != nil {
		return market.Candle{}, err
	}

	var prices [4]float64
	for i := 0; i < 4; i++ {
		p, err := strconv.ParseFloat(strings.TrimSpace(parts[i+1]), 64)
		if err != nil {
			return market.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		prices[i] = p
	}

	c := market.Candle{Time: t, Open: prices[0], High: prices[1], Low: prices[2], Close: prices[3]}
	if len(parts) > 5 && strings.TrimSpace(parts[5]) != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[5]), 64)
		if err != nil {
			return market.Candle{}, fmt.Errorf("volume: %w", err)
		}
		c.Volume = &v
	}
	if err := c.Validate(); err != nil {
		return market.Candle{}, err
	}
	return c, nil
}

func parseCSVTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC); err == nil {
		return t, nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("parse time %q", s)
}
