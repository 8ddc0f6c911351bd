package market

import (
	"fmt"
	"math"
	"time"
)

// Candle represents OHLC(V) data for one fixed interval. Volume is nil when
// the feed does not report it.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume *float64  `json:"volume,omitempty"`
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Bearish reports whether the candle closed below its open.
func (c Candle) Bearish() bool { return c.Close < c.Open }

// Body is the absolute distance between open and close.
func (c Candle) Body() float64 { return math.Abs(c.Close - c.Open) }

// Range is high minus low.
func (c Candle) Range() float64 { return c.High - c.Low }

// Validate checks that the prices are finite, positive and consistent.
func (c Candle) Validate() error {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("candle %s: bad price %v", c.Time.Format(time.RFC3339), v)
		}
	}
	if c.High < c.Low {
		return fmt.Errorf("candle %s: high %v below low %v", c.Time.Format(time.RFC3339), c.High, c.Low)
	}
	for _, v := range []float64{c.Open, c.Close} {
		if v < c.Low || v > c.High {
			return fmt.Errorf("candle %s: body price %v outside [%v, %v]", c.Time.Format(time.RFC3339), v, c.Low, c.High)
		}
	}
	if c.Time.IsZero() {
		return fmt.Errorf("candle has zero time")
	}
	return nil
}

// ValidateSeries checks every candle and that times are strictly increasing.
// Feeds are expected to hand over a normalized series, so a failure here is a
// caller bug rather than something to repair.
func ValidateSeries(candles []Candle) error {
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return err
		}
		if i > 0 && !c.Time.After(candles[i-1].Time) {
			return fmt.Errorf("candles not strictly ascending at index %d (%s after %s)",
				i, c.Time.Format(time.RFC3339), candles[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

// Closes returns the close prices of candles.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
