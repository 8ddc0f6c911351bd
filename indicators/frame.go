package indicators

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/signalbot/market"
)

// ErrInsufficientData means the series is shorter than the indicator warmup.
// The cycle should be skipped; nothing downstream may run on a partial frame.
var ErrInsufficientData = errors.New("insufficient data")

// Params selects the windows used by Compute.
type Params struct {
	BandPeriod int     `json:"band_period" yaml:"band_period" toml:"band_period"`
	BandK      float64 `json:"band_k" yaml:"band_k" toml:"band_k"`
	EMAFast    int     `json:"ema_fast" yaml:"ema_fast" toml:"ema_fast"`
	EMASlow    int     `json:"ema_slow" yaml:"ema_slow" toml:"ema_slow"`
	RSIPeriod  int     `json:"rsi_period" yaml:"rsi_period" toml:"rsi_period"`
	MACDFast   int     `json:"macd_fast" yaml:"macd_fast" toml:"macd_fast"`
	MACDSlow   int     `json:"macd_slow" yaml:"macd_slow" toml:"macd_slow"`
	MACDSignal int     `json:"macd_signal" yaml:"macd_signal" toml:"macd_signal"`
}

// DefaultParams are the classic 20/2 bands, 9/20 EMAs, RSI(14) and MACD(12,26,9).
func DefaultParams() Params {
	return Params{
		BandPeriod: 20,
		BandK:      2,
		EMAFast:    9,
		EMASlow:    20,
		RSIPeriod:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
	}
}

func (p Params) Validate() error {
	if p.BandPeriod < 2 {
		return fmt.Errorf("band_period must be >= 2, got %d", p.BandPeriod)
	}
	if p.BandK <= 0 {
		return fmt.Errorf("band_k must be positive, got %v", p.BandK)
	}
	if p.EMAFast <= 0 || p.EMASlow <= 0 {
		return fmt.Errorf("ema periods must be positive")
	}
	if p.EMAFast >= p.EMASlow {
		return fmt.Errorf("ema_fast (%d) must be below ema_slow (%d)", p.EMAFast, p.EMASlow)
	}
	if p.RSIPeriod <= 0 {
		return fmt.Errorf("rsi_period must be positive, got %d", p.RSIPeriod)
	}
	if p.MACDFast <= 0 || p.MACDSlow <= p.MACDFast || p.MACDSignal <= 0 {
		return fmt.Errorf("macd periods must satisfy 0 < fast < slow and signal > 0")
	}
	return nil
}

// Warmup is the minimum number of candles Compute accepts: the bands, the
// slow EMA and RSI all have a value on the last candle. MACD may need more
// and is reported through Row.MACDReady instead.
func (p Params) Warmup() int {
	w := p.BandPeriod
	if p.EMASlow > w {
		w = p.EMASlow
	}
	if p.RSIPeriod+1 > w {
		w = p.RSIPeriod + 1
	}
	if w < 2 {
		w = 2
	}
	return w
}

// Row holds the derived values for one candle. Values in a group whose Ready
// flag is false are zero and must not be used.
type Row struct {
	market.Candle

	BandsReady bool
	MA         float64
	StdDev     float64
	Upper      float64
	Lower      float64

	EMAReady bool
	EMAFast  float64
	EMASlow  float64

	RSIReady bool
	RSI      float64

	MACDReady  bool
	MACD       float64
	MACDSignal float64
	MACDHist   float64
}

// Frame is aligned 1:1 with the candles it was computed from.
type Frame struct {
	Params Params
	Rows   []Row
}

// Len returns the number of rows.
func (f Frame) Len() int { return len(f.Rows) }

// Last returns the latest two rows (previous, current). ok is false when the
// frame has fewer than two rows.
func (f Frame) Last() (prev, cur Row, ok bool) {
	n := len(f.Rows)
	if n < 2 {
		return Row{}, Row{}, false
	}
	return f.Rows[n-2], f.Rows[n-1], true
}

// Compute derives bands, EMAs, RSI and MACD for an ascending candle series.
func Compute(candles []market.Candle, p Params) (Frame, error) {
	if err := p.Validate(); err != nil {
		return Frame{}, fmt.Errorf("indicator params: %w", err)
	}
	if need := p.Warmup(); len(candles) < need {
		return Frame{}, fmt.Errorf("%w: need %d candles, got %d", ErrInsufficientData, need, len(candles))
	}
	if err := market.ValidateSeries(candles); err != nil {
		return Frame{}, err
	}

	ma := NewMA(p.BandPeriod)
	fast := NewEMA(p.EMAFast)
	slow := NewEMA(p.EMASlow)
	rsi := NewRSI(p.RSIPeriod)
	macd := NewMACD(p.MACDFast, p.MACDSlow, p.MACDSignal)

	rows := make([]Row, len(candles))
	for i, c := range candles {
		ma.Update(c)
		fast.Update(c)
		slow.Update(c)
		rsi.Update(c)
		macd.Update(c)

		r := Row{Candle: c}
		if ma.Ready() {
			r.BandsReady = true
			r.MA = ma.Value()
			r.StdDev = ma.StdDev()
			r.Upper = r.MA + p.BandK*r.StdDev
			r.Lower = r.MA - p.BandK*r.StdDev
		}
		if fast.Ready() && slow.Ready() {
			r.EMAReady = true
			r.EMAFast = fast.Value()
			r.EMASlow = slow.Value()
		}
		if rsi.Ready() {
			r.RSIReady = true
			r.RSI = rsi.Value()
		}
		if macd.Ready() {
			r.MACDReady = true
			r.MACD = macd.Value()
			r.MACDSignal = macd.Signal()
			r.MACDHist = r.MACD - r.MACDSignal
		}
		rows[i] = r
	}

	return Frame{Params: p, Rows: rows}, nil
}
