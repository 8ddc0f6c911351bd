// Package signals defines the Signal handed to notifiers and the rules for
// suppressing repeats of the last emitted one.
package signals

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/signalbot/market"
)

type Kind string

const (
	Entry Kind = "entry"
	Exit  Kind = "exit"
)

// Result of a closed trade.
type Result string

const (
	TakeProfit Result = "TP"
	StopLoss   Result = "SL"
)

func (r Result) Valid() bool { return r == TakeProfit || r == StopLoss }

// Signal is a fixed-shape trade notification. Time is the time of the candle
// that produced it, so evaluating unchanged data yields an identical Signal.
type Signal struct {
	Kind       Kind             `json:"kind"`
	Symbol     string           `json:"symbol"`
	Timeframe  string           `json:"timeframe"`
	Direction  market.Direction `json:"direction"`
	Entry      float64          `json:"entry"`
	StopLoss   float64          `json:"sl"`
	TakeProfit float64          `json:"tp"`
	ExitPrice  float64          `json:"exit_price,omitempty"`
	Result     Result           `json:"result,omitempty"`
	Time       time.Time        `json:"time"`
	Reason     string           `json:"reason"`
	Strategy   string           `json:"strategy,omitempty"`
	Confidence *float64         `json:"confidence,omitempty"`
}

func (s Signal) String() string {
	if s.Kind == Exit {
		return fmt.Sprintf("%s %s %s exit %.2f (%s)", s.Symbol, s.Timeframe, s.Direction, s.ExitPrice, s.Result)
	}
	return fmt.Sprintf("%s %s %s entry %.2f sl %.2f tp %.2f", s.Symbol, s.Timeframe, s.Direction, s.Entry, s.StopLoss, s.TakeProfit)
}

// Equal compares every field. Times are compared as instants and confidence
// by value.
func (s Signal) Equal(o Signal) bool {
	if s.Kind != o.Kind || s.Symbol != o.Symbol || s.Timeframe != o.Timeframe ||
		s.Direction != o.Direction || s.Reason != o.Reason || s.Strategy != o.Strategy ||
		s.Result != o.Result {
		return false
	}
	if s.Entry != o.Entry || s.StopLoss != o.StopLoss || s.TakeProfit != o.TakeProfit || s.ExitPrice != o.ExitPrice {
		return false
	}
	if !s.Time.Equal(o.Time) {
		return false
	}
	switch {
	case s.Confidence == nil && o.Confidence == nil:
		return true
	case s.Confidence == nil || o.Confidence == nil:
		return false
	default:
		return *s.Confidence == *o.Confidence
	}
}

// ShouldEmit reports whether candidate is worth delivering: it must exist
// and differ from the last emitted signal in at least one field.
func ShouldEmit(candidate, lastEmitted *Signal) bool {
	if candidate == nil {
		return false
	}
	if lastEmitted == nil {
		return true
	}
	return !candidate.Equal(*lastEmitted)
}

// Cache persists the last emitted signal. LastSignal returns nil, nil when
// nothing has been emitted yet.
type Cache interface {
	LastSignal(ctx context.Context) (*Signal, error)
	SaveLastSignal(ctx context.Context, s Signal) error
}
