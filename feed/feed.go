// Package feed supplies candle series to the engine. A feed hands back a
// normalized series: ascending by time with one candle per timestamp.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rustyeddy/signalbot/market"
)

// ErrDataFetch matches every *FetchError.
var ErrDataFetch = errors.New("data fetch failed")

// FetchError reports an unavailable or malformed upstream. The cycle that
// hits it is skipped and retried on the next tick.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: fetch candles: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrDataFetch }

func fetchErr(source string, format string, args ...any) error {
	return &FetchError{Source: source, Err: fmt.Errorf(format, args...)}
}

// Feed returns the most recent candles for the configured symbol.
type Feed interface {
	Name() string
	Candles(ctx context.Context) ([]market.Candle, error)
}

// Normalize sorts candles ascending and keeps the first candle seen for a
// repeated timestamp.
func Normalize(candles []market.Candle) []market.Candle {
	out := make([]market.Candle, len(candles))
	copy(out, candles)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	n := 0
	for i, c := range out {
		if i > 0 && c.Time.Equal(out[n-1].Time) {
			continue
		}
		out[n] = c
		n++
	}
	return out[:n]
}

// Tail returns the last n candles, or all of them when n <= 0.
func Tail(candles []market.Candle, n int) []market.Candle {
	if n <= 0 || n >= len(candles) {
		return candles
	}
	return candles[len(candles)-n:]
}

// Static serves a fixed series. Tests and the cycle command use it.
type Static struct {
	Series []market.Candle
	Err    error
}

func (s *Static) Name() string { return "static" }

func (s *Static) Candles(ctx context.Context) ([]market.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Source: s.Name(), Err: err}
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return Normalize(s.Series), nil
}
