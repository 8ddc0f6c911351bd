package strategies

import (
	"fmt"
	"log/slog"

	"github.com/rustyeddy/signalbot/indicators"
	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/position"
	"github.com/rustyeddy/signalbot/risk"
	"github.com/rustyeddy/signalbot/signals"
)

// Generator produces at most one candidate signal per evaluation.
type Generator struct {
	Rule      EntryRule
	Exit      ExitRules
	Gate      ConfidenceGate
	Policy    risk.Policy
	RR        float64
	Symbol    string
	Timeframe string
	Logger    *slog.Logger
}

func (g *Generator) log() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// EvaluateEntry applies the entry rule to the last two rows. It returns nil
// when nothing qualifies and an error only for an invalid score.
func (g *Generator) EvaluateEntry(f indicators.Frame, score *float64) (*signals.Signal, error) {
	if err := CheckScore(score); err != nil {
		return nil, err
	}
	if f.Len() < g.Rule.Warmup(f.Params) {
		return nil, nil
	}
	prev, cur, ok := f.Last()
	if !ok {
		return nil, nil
	}

	setup, ok := g.Rule.Evaluate(prev, cur)
	if !ok {
		return nil, nil
	}

	levels := risk.NewLevels(setup.Direction, setup.Entry, setup.StopLoss, g.RR)
	if d := risk.Evaluate(g.Policy, levels); !d.Allowed {
		g.log().Debug("setup rejected by risk policy",
			"direction", setup.Direction, "entry", levels.Entry, "violations", fmt.Sprint(d.Violations))
		return nil, nil
	}
	if !g.Gate.Allow(setup.Direction, score) {
		g.log().Debug("setup rejected by confidence gate",
			"direction", setup.Direction, "score", *score)
		return nil, nil
	}

	sig := &signals.Signal{
		Kind:       signals.Entry,
		Symbol:     g.Symbol,
		Timeframe:  g.Timeframe,
		Direction:  setup.Direction,
		Entry:      levels.Entry,
		StopLoss:   levels.StopLoss,
		TakeProfit: levels.TakeProfit,
		Time:       cur.Time,
		Reason:     setup.Reason,
		Strategy:   g.Rule.Name(),
	}
	if score != nil {
		c := *score
		sig.Confidence = &c
	}
	return sig, nil
}

// EvaluateExit checks the open position against the latest row.
func (g *Generator) EvaluateExit(f indicators.Frame, p position.Position) (*Exit, bool) {
	prev, cur, ok := f.Last()
	if !ok {
		return nil, false
	}
	ex, ok := g.Exit.Evaluate(p, prev, cur)
	if !ok {
		return nil, false
	}
	return &ex, true
}

// PositionFor converts an entry signal into the position to open.
func PositionFor(s signals.Signal) position.Position {
	return position.Position{
		Symbol:     s.Symbol,
		Timeframe:  s.Timeframe,
		Direction:  s.Direction,
		EntryPrice: s.Entry,
		StopLoss:   s.StopLoss,
		TakeProfit: s.TakeProfit,
		EntryTime:  s.Time,
		Strategy:   s.Strategy,
	}
}

// ExitSignal describes a closed trade for notification.
func ExitSignal(p position.Position, ex Exit, pnl float64) signals.Signal {
	return signals.Signal{
		Kind:       signals.Exit,
		Symbol:     p.Symbol,
		Timeframe:  p.Timeframe,
		Direction:  p.Direction,
		Entry:      p.EntryPrice,
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
		ExitPrice:  market.RoundPrice(ex.Price),
		Result:     ex.Result,
		Time:       ex.Time,
		Reason:     fmt.Sprintf("%s (pnl %.2f)", ex.Reason, pnl),
		Strategy:   p.Strategy,
	}
}
