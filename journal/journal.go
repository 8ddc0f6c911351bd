// Package journal records closed trades. The ledger is append-only: a record
// is never rewritten or removed once stored.
package journal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/signals"
)

var (
	// ErrDuplicateTradeID is returned by Append when the id is already stored.
	ErrDuplicateTradeID = errors.New("duplicate trade id")
	// ErrTradeNotFound is returned by Get.
	ErrTradeNotFound = errors.New("trade not found")
)

// TradeRecord is one closed simulated trade.
type TradeRecord struct {
	TradeID    string           `json:"trade_id"`
	Symbol     string           `json:"symbol"`
	Timeframe  string           `json:"timeframe"`
	Direction  market.Direction `json:"direction"`
	EntryPrice float64          `json:"entry_price"`
	StopLoss   float64          `json:"stop_loss"`
	TakeProfit float64          `json:"take_profit"`
	ExitPrice  float64          `json:"exit_price"`
	Risk       float64          `json:"risk"`
	Reward     float64          `json:"reward"`
	PnL        float64          `json:"pnl"`
	Result     signals.Result   `json:"result"`
	EntryTime  time.Time        `json:"entry_time"`
	ExitTime   time.Time        `json:"exit_time"`
	Strategy   string           `json:"strategy"`
}

// Validate enforces the PnL sign law: a TP trade books its positive reward,
// an SL trade books its negative risk.
func (t TradeRecord) Validate() error {
	if t.TradeID == "" {
		return fmt.Errorf("trade record: empty trade id")
	}
	if !t.Direction.Valid() {
		return fmt.Errorf("trade %s: invalid direction %q", t.TradeID, t.Direction)
	}
	switch t.Result {
	case signals.TakeProfit:
		if !(t.Reward > 0) || t.PnL != t.Reward {
			return fmt.Errorf("trade %s: TP requires pnl == reward > 0 (pnl %v, reward %v)", t.TradeID, t.PnL, t.Reward)
		}
	case signals.StopLoss:
		if !(t.Risk > 0) || t.PnL != -t.Risk {
			return fmt.Errorf("trade %s: SL requires pnl == -risk < 0 (pnl %v, risk %v)", t.TradeID, t.PnL, t.Risk)
		}
	default:
		return fmt.Errorf("trade %s: invalid result %q", t.TradeID, t.Result)
	}
	if t.ExitTime.Before(t.EntryTime) {
		return fmt.Errorf("trade %s: exit before entry", t.TradeID)
	}
	return nil
}

// Ledger is the persistent, append-only trade history.
type Ledger interface {
	// Append stores rec. It fails with ErrDuplicateTradeID and leaves the
	// existing record untouched if the id is taken.
	Append(ctx context.Context, rec TradeRecord) error
	// List returns all records in append order.
	List(ctx context.Context) ([]TradeRecord, error)
	Get(ctx context.Context, tradeID string) (TradeRecord, error)
	// ListClosedBetween returns records with ExitTime in [start, end).
	ListClosedBetween(ctx context.Context, start, end time.Time) ([]TradeRecord, error)
	CountTrades(ctx context.Context) (int, error)
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// TradeID builds the deterministic id SYMBOL-YYYYMMDDTHHMMSS-NNN from the
// symbol with separators removed, the UTC entry time and a 1-based sequence.
func TradeID(symbol string, entry time.Time, seq int) string {
	sym := strings.ToUpper(nonAlnum.ReplaceAllString(symbol, ""))
	return fmt.Sprintf("%s-%s-%03d", sym, entry.UTC().Format("20060102T150405"), seq)
}

// Round2 rounds money values written into a record.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return market.RoundPrice(x)
}
