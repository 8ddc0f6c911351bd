package position

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/pkg/id"
	"github.com/rustyeddy/signalbot/risk"
	"github.com/rustyeddy/signalbot/signals"
)

// Tracker owns every transition of the stored position. The store is the
// single source of truth; the tracker keeps no copy between calls.
type Tracker struct {
	mu        sync.Mutex
	store     Store
	symbol    string
	timeframe string
}

func NewTracker(store Store, symbol, timeframe string) *Tracker {
	return &Tracker{store: store, symbol: symbol, timeframe: timeframe}
}

// Current returns the open position or nil.
func (t *Tracker) Current(ctx context.Context) (*Position, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.LoadPosition(ctx)
}

// Open stores p as the open position and returns the stored copy with its
// id and status set.
func (t *Tracker) Open(ctx context.Context, p Position) (Position, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p.Symbol == "" {
		p.Symbol = t.symbol
	}
	if p.Timeframe == "" {
		p.Timeframe = t.timeframe
	}
	if err := p.Validate(); err != nil {
		return Position{}, err
	}

	cur, err := t.store.LoadPosition(ctx)
	if err != nil {
		return Position{}, err
	}
	if cur != nil {
		return Position{}, fmt.Errorf("%w: %s %s since %s", ErrAlreadyOpen, cur.Direction, cur.ID, cur.EntryTime.Format(time.RFC3339))
	}

	p.ID = id.At(p.EntryTime)
	p.Status = StatusOpen
	if err := t.store.SavePosition(ctx, p); err != nil {
		return Position{}, err
	}
	return p, nil
}

// Close settles the open position at its stop or target. TP books the target
// distance as PnL, SL books minus the stop distance.
func (t *Tracker) Close(ctx context.Context, exitPrice float64, exitTime time.Time, result signals.Result) (journal.TradeRecord, error) {
	if !result.Valid() {
		return journal.TradeRecord{}, fmt.Errorf("close: invalid result %q", result)
	}
	return t.settle(ctx, exitPrice, exitTime, func(p Position) (risk.Outcome, signals.Result, error) {
		return risk.TargetOutcome(p.Levels(), result == signals.TakeProfit), result, nil
	})
}

// CloseRealized settles the open position at a price chosen by an exit rule
// other than stop or target. The result follows the sign of the realized
// move and the move itself is booked as reward or risk.
func (t *Tracker) CloseRealized(ctx context.Context, exitPrice float64, exitTime time.Time) (journal.TradeRecord, error) {
	return t.settle(ctx, exitPrice, exitTime, func(p Position) (risk.Outcome, signals.Result, error) {
		o, win, ok := risk.RealizedOutcome(p.Levels(), exitPrice)
		if !ok {
			return risk.Outcome{}, "", ErrNoMove
		}
		if win {
			return o, signals.TakeProfit, nil
		}
		return o, signals.StopLoss, nil
	})
}

func (t *Tracker) settle(ctx context.Context, exitPrice float64, exitTime time.Time,
	book func(Position) (risk.Outcome, signals.Result, error)) (journal.TradeRecord, error) {

	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.store.LoadPosition(ctx)
	if err != nil {
		return journal.TradeRecord{}, err
	}
	if p == nil {
		return journal.TradeRecord{}, ErrNoOpenPosition
	}

	o, result, err := book(*p)
	if err != nil {
		return journal.TradeRecord{}, err
	}

	n, err := t.store.CountTrades(ctx)
	if err != nil {
		return journal.TradeRecord{}, err
	}

	rec := journal.TradeRecord{
		TradeID:    journal.TradeID(p.Symbol, p.EntryTime, n+1),
		Symbol:     p.Symbol,
		Timeframe:  p.Timeframe,
		Direction:  p.Direction,
		EntryPrice: p.EntryPrice,
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
		ExitPrice:  journal.Round2(exitPrice),
		Risk:       o.Risk,
		Reward:     o.Reward,
		PnL:        o.PnL,
		Result:     result,
		EntryTime:  p.EntryTime,
		ExitTime:   exitTime,
		Strategy:   p.Strategy,
	}
	if err := rec.Validate(); err != nil {
		return journal.TradeRecord{}, err
	}

	if err := t.store.Settle(ctx, rec); err != nil {
		if errors.Is(err, journal.ErrDuplicateTradeID) {
			// position is cleared, the earlier record stands
			return rec, err
		}
		return journal.TradeRecord{}, err
	}
	return rec, nil
}
