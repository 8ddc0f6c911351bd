package strategies

import (
	"time"

	"github.com/rustyeddy/signalbot/indicators"
	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/position"
	"github.com/rustyeddy/signalbot/signals"
)

// Exit is a decision to close the open position at Price.
type Exit struct {
	Price  float64
	Time   time.Time
	Result signals.Result
	Reason string
	// Realized is set for rule exits whose PnL is the realized move rather
	// than the stop or target distance.
	Realized bool
}

type ExitRules struct {
	// TrendInvalidation closes a position when the close crosses the middle
	// band against it.
	TrendInvalidation bool `json:"trend_invalidation" yaml:"trend_invalidation" toml:"trend_invalidation"`
}

// Evaluate checks stop and target on the current close, inclusive of the
// boundary, then the optional trend invalidation.
func (r ExitRules) Evaluate(p position.Position, prev, cur indicators.Row) (Exit, bool) {
	px := cur.Close
	ex := Exit{Price: px, Time: cur.Time}

	switch p.Direction {
	case market.Buy:
		if px <= p.StopLoss {
			ex.Result, ex.Reason = signals.StopLoss, "close at or below stop loss"
			return ex, true
		}
		if px >= p.TakeProfit {
			ex.Result, ex.Reason = signals.TakeProfit, "close at or above take profit"
			return ex, true
		}
	case market.Sell:
		if px >= p.StopLoss {
			ex.Result, ex.Reason = signals.StopLoss, "close at or above stop loss"
			return ex, true
		}
		if px <= p.TakeProfit {
			ex.Result, ex.Reason = signals.TakeProfit, "close at or below take profit"
			return ex, true
		}
	}

	if !r.TrendInvalidation || !prev.BandsReady || !cur.BandsReady {
		return Exit{}, false
	}

	crossed := false
	switch p.Direction {
	case market.Buy:
		crossed = prev.Close >= prev.MA && px < cur.MA
	case market.Sell:
		crossed = prev.Close <= prev.MA && px > cur.MA
	}
	if !crossed {
		return Exit{}, false
	}

	move := market.RoundPrice(p.Direction.Sign() * (px - p.EntryPrice))
	switch {
	case move > 0:
		ex.Result = signals.TakeProfit
	case move < 0:
		ex.Result = signals.StopLoss
	default:
		return Exit{}, false
	}
	ex.Reason = "close crossed the middle band against the position"
	ex.Realized = true
	return ex, true
}
