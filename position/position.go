// Package position tracks the single simulated position of a symbol through
// its FLAT -> OPEN -> FLAT lifecycle.
package position

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/risk"
)

var (
	ErrAlreadyOpen    = errors.New("position already open")
	ErrNoOpenPosition = errors.New("no open position")
	// ErrNoMove is returned when a rule exit would book a zero PnL.
	ErrNoMove = errors.New("exit price equals entry")
)

type Status string

const StatusOpen Status = "open"

// Position is the one live trade. It only exists while open.
type Position struct {
	ID         string           `json:"id"`
	Symbol     string           `json:"symbol"`
	Timeframe  string           `json:"timeframe"`
	Direction  market.Direction `json:"direction"`
	EntryPrice float64          `json:"entry_price"`
	StopLoss   float64          `json:"stop_loss"`
	TakeProfit float64          `json:"take_profit"`
	EntryTime  time.Time        `json:"entry_time"`
	Strategy   string           `json:"strategy"`
	Status     Status           `json:"status"`
}

func (p Position) Levels() risk.Levels {
	return risk.Levels{
		Direction:  p.Direction,
		Entry:      p.EntryPrice,
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
	}
}

// Validate enforces SL < entry < TP for buys and TP < entry < SL for sells.
func (p Position) Validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("position: empty symbol")
	}
	if p.EntryTime.IsZero() {
		return fmt.Errorf("position: zero entry time")
	}
	if err := risk.CheckLevels(p.Levels()); err != nil {
		return fmt.Errorf("position: %w", err)
	}
	return nil
}

// Store persists the open position together with the trade ledger so that
// closing a position and recording its trade happen in one transaction.
type Store interface {
	// LoadPosition returns nil, nil when flat.
	LoadPosition(ctx context.Context) (*Position, error)
	// SavePosition stores p, failing with ErrAlreadyOpen if one is stored.
	SavePosition(ctx context.Context, p Position) error
	// Settle clears the position and appends rec atomically. When the trade
	// id is already recorded the position is still cleared, nothing is
	// appended and journal.ErrDuplicateTradeID is returned.
	Settle(ctx context.Context, rec journal.TradeRecord) error
	CountTrades(ctx context.Context) (int, error)
}
