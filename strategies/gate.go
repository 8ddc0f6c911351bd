package strategies

import (
	"fmt"
	"math"

	"github.com/rustyeddy/signalbot/market"
)

// ConfidenceGate filters setups by an external probability that price goes
// up. Buys need a high score, sells a low one.
type ConfidenceGate struct {
	BuyThreshold  float64 `json:"buy_threshold" yaml:"buy_threshold" toml:"buy_threshold"`
	SellThreshold float64 `json:"sell_threshold" yaml:"sell_threshold" toml:"sell_threshold"`
}

func DefaultGate() ConfidenceGate {
	return ConfidenceGate{BuyThreshold: 0.65, SellThreshold: 0.35}
}

func (g ConfidenceGate) Validate() error {
	if g.BuyThreshold < 0 || g.BuyThreshold > 1 || g.SellThreshold < 0 || g.SellThreshold > 1 {
		return fmt.Errorf("confidence thresholds must be within [0,1]")
	}
	if g.SellThreshold >= g.BuyThreshold {
		return fmt.Errorf("sell threshold %.2f must be below buy threshold %.2f", g.SellThreshold, g.BuyThreshold)
	}
	return nil
}

// CheckScore rejects scores outside [0,1].
func CheckScore(score *float64) error {
	if score == nil {
		return nil
	}
	if s := *score; math.IsNaN(s) || s < 0 || s > 1 {
		return fmt.Errorf("confidence score %v outside [0,1]", s)
	}
	return nil
}

// Allow reports whether a setup in dir passes. A nil score always passes.
func (g ConfidenceGate) Allow(dir market.Direction, score *float64) bool {
	if score == nil {
		return true
	}
	if dir == market.Buy {
		return *score >= g.BuyThreshold
	}
	return *score <= g.SellThreshold
}
