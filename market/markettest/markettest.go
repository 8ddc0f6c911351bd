// Package markettest builds candle series for tests.
package markettest

import (
	"math"
	"time"

	"github.com/rustyeddy/signalbot/market"
)

// Start is the time of the first candle built by Series.
var Start = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

// Series returns one candle per close spaced by step. Each candle opens at
// the previous close and its wicks extend 0.25 beyond the body.
func Series(step time.Duration, closes ...float64) []market.Candle {
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		out[i] = market.Candle{
			Time:  Start.Add(time.Duration(i) * step),
			Open:  open,
			High:  math.Max(open, c) + 0.25,
			Low:   math.Min(open, c) - 0.25,
			Close: c,
		}
	}
	return out
}

// Alternating returns n closes swinging between mid-amp and mid+amp.
func Alternating(n int, mid, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = mid - amp
		} else {
			out[i] = mid + amp
		}
	}
	return out
}

// ReentryBuy is 25 closes around 100 with bands near [89, 109]: the 24th
// close (89) is below the lower band and the last (91) is back inside.
func ReentryBuy() []float64 {
	return append(Alternating(23, 100, 4), 89, 91)
}

// ReentrySell mirrors ReentryBuy on the upper band: 111 then 109.
func ReentrySell() []float64 {
	return append(Alternating(23, 100, 4), 111, 109)
}

// Flat is n identical closes.
func Flat(n int, c float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = c
	}
	return out
}
