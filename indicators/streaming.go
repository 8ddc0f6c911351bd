package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/signalbot/market"
)

// SimpleMA is a streaming Simple Moving Average that also tracks the sample
// standard deviation of the same window.
type SimpleMA struct {
	period int
	window []float64
}

// NewMA creates a new Simple Moving Average indicator with the given period
func NewMA(period int) *SimpleMA {
	return &SimpleMA{
		period: period,
		window: make([]float64, 0, period),
	}
}

func (m *SimpleMA) Name() string {
	return fmt.Sprintf("MA(%d)", m.period)
}

func (m *SimpleMA) Warmup() int { return m.period }

func (m *SimpleMA) Reset() {
	m.window = m.window[:0]
}

func (m *SimpleMA) Update(c market.Candle) { m.Add(c.Close) }

// Add pushes a raw value into the window.
func (m *SimpleMA) Add(x float64) {
	if len(m.window) == m.period {
		copy(m.window, m.window[1:])
		m.window = m.window[:m.period-1]
	}
	m.window = append(m.window, x)
}

func (m *SimpleMA) Ready() bool {
	return len(m.window) >= m.period
}

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	sum := 0.0
	for _, x := range m.window {
		sum += x
	}
	return sum / float64(len(m.window))
}

// StdDev returns the sample (n-1) standard deviation of the window.
func (m *SimpleMA) StdDev() float64 {
	if !m.Ready() || m.period < 2 {
		return 0
	}
	mean := m.Value()
	sq := 0.0
	for _, x := range m.window {
		d := x - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(m.window)-1))
}

// ExponentialMA is a streaming Exponential Moving Average.
// It is seeded with the first value and becomes ready after period updates.
type ExponentialMA struct {
	period int
	alpha  float64
	value  float64
	seen   int
}

// NewEMA creates a new Exponential Moving Average indicator with the given period
func NewEMA(period int) *ExponentialMA {
	return &ExponentialMA{
		period: period,
		alpha:  2.0 / float64(period+1),
	}
}

func (e *ExponentialMA) Name() string {
	return fmt.Sprintf("EMA(%d)", e.period)
}

func (e *ExponentialMA) Warmup() int { return e.period }

func (e *ExponentialMA) Reset() {
	e.value = 0
	e.seen = 0
}

func (e *ExponentialMA) Update(c market.Candle) { e.Add(c.Close) }

// Add feeds a raw value; used for the MACD signal line.
func (e *ExponentialMA) Add(x float64) {
	e.seen++
	if e.seen == 1 {
		e.value = x
		return
	}
	e.value = e.alpha*x + (1.0-e.alpha)*e.value
}

func (e *ExponentialMA) Ready() bool { return e.seen >= e.period }

func (e *ExponentialMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.value
}

// RSI calculates the Relative Strength Index using Wilder's smoothing.
type RSI struct {
	period    int
	count     int
	prevClose float64
	avgGain   float64
	avgLoss   float64
	current   float64
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string { return fmt.Sprintf("RSI(%d)", r.period) }

func (r *RSI) Warmup() int { return r.period + 1 }

func (r *RSI) Reset() { *r = RSI{period: r.period} }

func (r *RSI) Update(c market.Candle) {
	price := c.Close
	r.count++

	if r.count == 1 {
		r.prevClose = price
		return
	}

	delta := price - r.prevClose
	r.prevClose = price

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if r.count <= r.period+1 {
		// seed phase: simple average of the first period changes
		r.avgGain += gain
		r.avgLoss += loss
		if r.count == r.period+1 {
			r.avgGain /= float64(r.period)
			r.avgLoss /= float64(r.period)
			r.current = rsiValue(r.avgGain, r.avgLoss)
		}
		return
	}

	p := float64(r.period)
	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
	r.current = rsiValue(r.avgGain, r.avgLoss)
}

func (r *RSI) Ready() bool { return r.count > r.period }

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	return r.current
}

// rsiValue is 100 when there were no losses, including a flat series.
func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD tracks the fast/slow EMA spread and its signal line.
type MACD struct {
	fast, slow *ExponentialMA
	signal     *ExponentialMA
	line       float64
}

func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast:   NewEMA(fast),
		slow:   NewEMA(slow),
		signal: NewEMA(signal),
	}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD(%d,%d,%d)", m.fast.period, m.slow.period, m.signal.period)
}

func (m *MACD) Warmup() int { return m.slow.period + m.signal.period - 1 }

func (m *MACD) Reset() {
	m.fast.Reset()
	m.slow.Reset()
	m.signal.Reset()
	m.line = 0
}

func (m *MACD) Update(c market.Candle) {
	m.fast.Update(c)
	m.slow.Update(c)
	if !m.slow.Ready() {
		return
	}
	m.line = m.fast.value - m.slow.value
	m.signal.Add(m.line)
}

func (m *MACD) Ready() bool { return m.slow.Ready() && m.signal.Ready() }

// Value returns the MACD line.
func (m *MACD) Value() float64 {
	if !m.slow.Ready() {
		return 0
	}
	return m.line
}

// Signal returns the signal line.
func (m *MACD) Signal() float64 {
	if !m.Ready() {
		return 0
	}
	return m.signal.value
}
