package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/store"
)

const tradeColumns = `trade_id, symbol, timeframe, direction, entry_price, stop_loss, take_profit, exit_price,
	risk, reward, pnl, result, entry_time, exit_time, strategy`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(row scanner) (journal.TradeRecord, error) {
	var (
		rec         journal.TradeRecord
		entry, exit int64
	)
	err := row.Scan(
		&rec.TradeID,
		&rec.Symbol,
		&rec.Timeframe,
		&rec.Direction,
		&rec.EntryPrice,
		&rec.StopLoss,
		&rec.TakeProfit,
		&rec.ExitPrice,
		&rec.Risk,
		&rec.Reward,
		&rec.PnL,
		&rec.Result,
		&entry,
		&exit,
		&rec.Strategy,
	)
	if err != nil {
		return journal.TradeRecord{}, err
	}
	rec.EntryTime = fromNanos(entry)
	rec.ExitTime = fromNanos(exit)
	return rec, nil
}

// Get returns a single trade record by ID.
func (s *Store) Get(ctx context.Context, tradeID string) (journal.TradeRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE trade_id = ? AND symbol = ?`, tradeID, s.symbol)

	rec, err := scanTrade(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return journal.TradeRecord{}, fmt.Errorf("%w: %q", journal.ErrTradeNotFound, tradeID)
		}
		return journal.TradeRecord{}, store.Wrap(backend, "get trade", err)
	}
	return rec, nil
}

// List returns the symbol's trades in append order.
func (s *Store) List(ctx context.Context) ([]journal.TradeRecord, error) {
	return s.query(ctx, "list trades", `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE symbol = ?
		ORDER BY seq ASC`, s.symbol)
}

// ListClosedBetween returns trades whose exit_time is within [start, end).
func (s *Store) ListClosedBetween(ctx context.Context, start, end time.Time) ([]journal.TradeRecord, error) {
	return s.query(ctx, "list trades between", `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE symbol = ? AND exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC, seq ASC`, s.symbol, start.UnixNano(), end.UnixNano())
}

func (s *Store) CountTrades(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades WHERE symbol = ?`, s.symbol).Scan(&n); err != nil {
		return 0, store.Wrap(backend, "count trades", err)
	}
	return n, nil
}

func (s *Store) query(ctx context.Context, op, q string, args ...any) ([]journal.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, store.Wrap(backend, op, err)
	}
	defer rows.Close()

	var out []journal.TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, store.Wrap(backend, op, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Wrap(backend, op, err)
	}
	return out, nil
}
