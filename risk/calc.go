package risk

import (
	"math"

	"github.com/rustyeddy/signalbot/market"
)

// Distance is the absolute price distance between entry and stop.
func Distance(entry, stop float64) float64 {
	return math.Abs(entry - stop)
}

// RR is the reward/risk multiple of a planned trade, 0 when risk is 0.
func RR(entry, stop, takeProfit float64) float64 {
	risk := Distance(entry, stop)
	reward := math.Abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

// PercentStop places the stop pct of entry away against dir.
// PercentStop(Buy, 91, 0.02) == 89.18.
func PercentStop(dir market.Direction, entry, pct float64) float64 {
	return entry - dir.Sign()*pct*entry
}

// TakeProfit is entry ± rr·|entry−stop|, oriented by dir.
func TakeProfit(dir market.Direction, entry, stop, rr float64) float64 {
	return entry + dir.Sign()*rr*Distance(entry, stop)
}

// Levels holds rounded entry, stop and target prices for one direction.
type Levels struct {
	Direction  market.Direction
	Entry      float64
	StopLoss   float64
	TakeProfit float64
}

// NewLevels derives the target from the stop and rounds all three prices to
// the price increment. The target is computed from the unrounded inputs.
func NewLevels(dir market.Direction, entry, stop, rr float64) Levels {
	tp := TakeProfit(dir, entry, stop, rr)
	return Levels{
		Direction:  dir,
		Entry:      market.RoundPrice(entry),
		StopLoss:   market.RoundPrice(stop),
		TakeProfit: market.RoundPrice(tp),
	}
}

// Outcome is the booked result of a closed trade.
type Outcome struct {
	Risk   float64
	Reward float64
	PnL    float64
}

// TargetOutcome books a trade that exited at its stop or target: risk is the
// stop distance, reward the target distance, and PnL is +reward on a win and
// -risk on a loss. Values are rounded to the price increment.
func TargetOutcome(l Levels, win bool) Outcome {
	o := Outcome{
		Risk:   market.RoundPrice(Distance(l.Entry, l.StopLoss)),
		Reward: market.RoundPrice(math.Abs(l.TakeProfit - l.Entry)),
	}
	if win {
		o.PnL = o.Reward
	} else {
		o.PnL = -o.Risk
	}
	return o
}

// RealizedOutcome books a trade closed by a rule other than stop or target.
// The realized move replaces the leg it lands on: a winning exit books its
// move as reward, a losing exit books it as risk. ok is false when the move
// rounds to zero, since such a trade is neither a win nor a loss.
func RealizedOutcome(l Levels, exit float64) (o Outcome, win bool, ok bool) {
	move := market.RoundPrice(l.Direction.Sign() * (exit - l.Entry))
	if move == 0 {
		return Outcome{}, false, false
	}
	o = TargetOutcome(l, move > 0)
	if move > 0 {
		o.Reward = move
		o.PnL = move
	} else {
		o.Risk = -move
		o.PnL = move
	}
	return o, move > 0, true
}
