// Package strategies turns indicator rows into entry and exit decisions.
// Entry rules are interchangeable and looked up by name.
package strategies

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rustyeddy/signalbot/indicators"
	"github.com/rustyeddy/signalbot/market"
)

// Setup is a structurally valid entry before rounding and gating.
type Setup struct {
	Direction market.Direction
	Entry     float64
	StopLoss  float64
	Reason    string
}

// EntryRule inspects the previous and current rows. Buy conditions are
// checked before sell conditions, so a rule that sees both returns the buy.
// Rows whose required indicator groups are not ready never produce a setup.
type EntryRule interface {
	Name() string
	// Warmup is the number of candles needed before the previous row is ready.
	Warmup(p indicators.Params) int
	Evaluate(prev, cur indicators.Row) (Setup, bool)
}

// Options configure rules built from the registry.
type Options struct {
	// StopLossPct places the stop for percentage-stop rules, 0.02 is 2%.
	StopLossPct float64 `json:"stop_loss_pct" yaml:"stop_loss_pct" toml:"stop_loss_pct"`
	// LevelTolerance is how close, as a fraction of price, a wick must come
	// to the fast EMA to count as a touch.
	LevelTolerance float64 `json:"level_tolerance" yaml:"level_tolerance" toml:"level_tolerance"`
	// RequireMACD makes trend_rejection wait for MACD confirmation.
	RequireMACD bool `json:"require_macd" yaml:"require_macd" toml:"require_macd"`
}

func DefaultOptions() Options {
	return Options{
		StopLossPct:    0.02,
		LevelTolerance: 0.002,
	}
}

type Factory func(Options) EntryRule

var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

func init() {
	Register(ReentryName, func(o Options) EntryRule { return BollingerReentry{StopLossPct: o.StopLossPct} })
	Register(BreakoutName, func(Options) EntryRule { return BollingerBreakout{} })
	Register(TrendRejectionName, func(o Options) EntryRule {
		return TrendRejection{LevelTolerance: o.LevelTolerance, RequireMACD: o.RequireMACD}
	})
}

func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(name)] = f
}

// Lookup builds the named rule.
func Lookup(name string, o Options) (EntryRule, error) {
	mu.RLock()
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return f(o), nil
}

// Names lists registered rules in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
