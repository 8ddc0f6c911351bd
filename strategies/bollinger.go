package strategies

import (
	"github.com/rustyeddy/signalbot/indicators"
	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/risk"
)

const (
	ReentryName  = "bollinger_reentry"
	BreakoutName = "bollinger_breakout"
)

// BollingerReentry is the mean-reversion rule: the previous close was outside
// a band and the current close is back inside it. The stop sits StopLossPct
// away from entry.
type BollingerReentry struct {
	StopLossPct float64
}

func (BollingerReentry) Name() string { return ReentryName }

func (BollingerReentry) Warmup(p indicators.Params) int { return p.BandPeriod + 1 }

func (r BollingerReentry) Evaluate(prev, cur indicators.Row) (Setup, bool) {
	if !prev.BandsReady || !cur.BandsReady {
		return Setup{}, false
	}
	if prev.Close < prev.Lower && cur.Close > cur.Lower {
		return Setup{
			Direction: market.Buy,
			Entry:     cur.Close,
			StopLoss:  risk.PercentStop(market.Buy, cur.Close, r.StopLossPct),
			Reason:    "close re-entered the lower band",
		}, true
	}
	if prev.Close > prev.Upper && cur.Close < cur.Upper {
		return Setup{
			Direction: market.Sell,
			Entry:     cur.Close,
			StopLoss:  risk.PercentStop(market.Sell, cur.Close, r.StopLossPct),
			Reason:    "close re-entered the upper band",
		}, true
	}
	return Setup{}, false
}

// BollingerBreakout follows a close that breaks out beyond a band. The stop
// is the middle band.
type BollingerBreakout struct{}

func (BollingerBreakout) Name() string { return BreakoutName }

func (BollingerBreakout) Warmup(p indicators.Params) int { return p.BandPeriod + 1 }

func (BollingerBreakout) Evaluate(prev, cur indicators.Row) (Setup, bool) {
	if !prev.BandsReady || !cur.BandsReady {
		return Setup{}, false
	}
	if prev.Close <= prev.Upper && cur.Close > cur.Upper {
		return Setup{
			Direction: market.Buy,
			Entry:     cur.Close,
			StopLoss:  cur.MA,
			Reason:    "close broke above the upper band",
		}, true
	}
	if prev.Close >= prev.Lower && cur.Close < cur.Lower {
		return Setup{
			Direction: market.Sell,
			Entry:     cur.Close,
			StopLoss:  cur.MA,
			Reason:    "close broke below the lower band",
		}, true
	}
	return Setup{}, false
}
