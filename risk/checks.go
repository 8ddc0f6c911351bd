package risk

import (
	"fmt"
	"math"
)

type Violation struct {
	Code string
	Msg  string
}

func (v Violation) String() string { return v.Code + ": " + v.Msg }

type Decision struct {
	Allowed    bool
	Violations []Violation

	PlannedRisk float64
	PlannedRR   float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Err folds the violations into one error, nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("risk check failed: %v", d.Violations)
}

// CheckLevels enforces the position invariant: for a buy SL < entry < TP, for
// a sell TP < entry < SL, all prices finite and positive.
func CheckLevels(l Levels) error {
	for _, v := range []float64{l.Entry, l.StopLoss, l.TakeProfit} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("levels: non-positive or non-finite price %v", v)
		}
	}
	switch {
	case !l.Direction.Valid():
		return fmt.Errorf("levels: invalid direction %q", l.Direction)
	case l.Direction.Sign() > 0 && !(l.StopLoss < l.Entry && l.Entry < l.TakeProfit):
		return fmt.Errorf("levels: buy needs sl < entry < tp (sl %.2f entry %.2f tp %.2f)", l.StopLoss, l.Entry, l.TakeProfit)
	case l.Direction.Sign() < 0 && !(l.TakeProfit < l.Entry && l.Entry < l.StopLoss):
		return fmt.Errorf("levels: sell needs tp < entry < sl (tp %.2f entry %.2f sl %.2f)", l.TakeProfit, l.Entry, l.StopLoss)
	}
	return nil
}

// Evaluate checks planned levels against the policy.
func Evaluate(p Policy, l Levels) Decision {
	d := Decision{Allowed: true}

	// Basic sanity
	if err := CheckLevels(l); err != nil {
		d.add("LEVELS_INVALID", err.Error())
		return d
	}

	d.PlannedRisk = Distance(l.Entry, l.StopLoss)
	d.PlannedRR = RR(l.Entry, l.StopLoss, l.TakeProfit)

	// compared at 2dp so a configured 2.0 survives price rounding
	if math.Round(d.PlannedRR*100) < math.Round(p.MinRR*100) {
		d.add("RR_TOO_LOW",
			fmt.Sprintf("RR %.2f below minimum %.2f", d.PlannedRR, p.MinRR))
	}
	if p.MaxStopPct > 0 && d.PlannedRisk/l.Entry > p.MaxStopPct {
		d.add("STOP_TOO_WIDE",
			fmt.Sprintf("stop distance %.2f%% exceeds max %.2f%%",
				100*d.PlannedRisk/l.Entry, 100*p.MaxStopPct))
	}

	return d
}
