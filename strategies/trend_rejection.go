package strategies

import (
	"math"

	"github.com/rustyeddy/signalbot/indicators"
	"github.com/rustyeddy/signalbot/market"
)

const TrendRejectionName = "trend_rejection"

// TrendRejection trades an engulfing candle that rejects the fast EMA in the
// direction of the EMA trend. The stop goes beyond the two pattern candles.
type TrendRejection struct {
	LevelTolerance float64
	RequireMACD    bool
}

func (TrendRejection) Name() string { return TrendRejectionName }

func (t TrendRejection) Warmup(p indicators.Params) int {
	w := p.EMASlow
	if p.RSIPeriod+1 > w {
		w = p.RSIPeriod + 1
	}
	if t.RequireMACD && p.MACDSlow+p.MACDSignal-1 > w {
		w = p.MACDSlow + p.MACDSignal - 1
	}
	return w + 1
}

// engulfs reports whether cur has a strong body opposite to prev and covers
// prev's body.
func engulfs(prev, cur market.Candle, dir market.Direction) bool {
	if cur.Range() <= 0 || cur.Body() <= 0.5*cur.Range() {
		return false
	}
	if dir == market.Buy {
		return prev.Bearish() && cur.Bullish() && cur.Open <= prev.Close && cur.Close >= prev.Open
	}
	return prev.Bullish() && cur.Bearish() && cur.Open >= prev.Close && cur.Close <= prev.Open
}

func (t TrendRejection) Evaluate(prev, cur indicators.Row) (Setup, bool) {
	if !cur.EMAReady || !cur.RSIReady {
		return Setup{}, false
	}
	if t.RequireMACD && !cur.MACDReady {
		return Setup{}, false
	}

	tol := t.LevelTolerance * cur.EMAFast
	touchedBelow := math.Min(prev.Low, cur.Low) <= cur.EMAFast+tol
	touchedAbove := math.Max(prev.High, cur.High) >= cur.EMAFast-tol

	if cur.EMAFast > cur.EMASlow &&
		engulfs(prev.Candle, cur.Candle, market.Buy) &&
		touchedBelow && cur.Close > cur.EMAFast &&
		cur.RSI < 70 &&
		(!t.RequireMACD || cur.MACDHist > 0) {
		return Setup{
			Direction: market.Buy,
			Entry:     cur.Close,
			StopLoss:  math.Min(prev.Low, cur.Low),
			Reason:    "bullish engulfing rejected the fast EMA in an uptrend",
		}, true
	}

	if cur.EMAFast < cur.EMASlow &&
		engulfs(prev.Candle, cur.Candle, market.Sell) &&
		touchedAbove && cur.Close < cur.EMAFast &&
		cur.RSI > 30 &&
		(!t.RequireMACD || cur.MACDHist < 0) {
		return Setup{
			Direction: market.Sell,
			Entry:     cur.Close,
			StopLoss:  math.Max(prev.High, cur.High),
			Reason:    "bearish engulfing rejected the fast EMA in a downtrend",
		}, true
	}
	return Setup{}, false
}
