package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/position"
	"github.com/rustyeddy/signalbot/signals"
	"github.com/rustyeddy/signalbot/store"
)

const backend = "postgres"

type Store struct {
	pool   *pgxpool.Pool
	symbol string
	owned  bool
}

var _ store.Backend = (*Store)(nil)

// New connects, migrates and returns a store for symbol.
func New(ctx context.Context, cfg ClientConfig, symbol string) (*Store, error) {
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool, symbol: symbol, owned: true}, nil
}

// NewWithPool shares an existing, migrated pool; Close leaves it open.
func NewWithPool(pool *pgxpool.Pool, symbol string) *Store {
	return &Store{pool: pool, symbol: symbol}
}

func (s *Store) Close() error {
	if s.owned {
		s.pool.Close()
	}
	return nil
}

const positionSelectCols = `id, symbol, timeframe, direction, entry_price, stop_loss, take_profit,
	entry_time, strategy, status`

func (s *Store) LoadPosition(ctx context.Context) (*position.Position, error) {
	var (
		p                 position.Position
		direction, status string
	)
	err := s.pool.QueryRow(ctx, `SELECT `+positionSelectCols+` FROM positions WHERE symbol = $1`, s.symbol).Scan(
		&p.ID, &p.Symbol, &p.Timeframe, &direction, &p.EntryPrice, &p.StopLoss, &p.TakeProfit,
		&p.EntryTime, &p.Strategy, &status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, store.Wrap(backend, "load position", err)
	}
	p.Direction = market.Direction(direction)
	p.Status = position.Status(status)
	p.EntryTime = p.EntryTime.UTC()
	return &p, nil
}

func (s *Store) SavePosition(ctx context.Context, p position.Position) error {
	if err := store.CheckContext(ctx, backend, "save position"); err != nil {
		return err
	}
	const query = `
		INSERT INTO positions (
			symbol, id, timeframe, direction, entry_price, stop_loss, take_profit,
			entry_time, strategy, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (symbol) DO NOTHING`

	tag, err := s.pool.Exec(ctx, query,
		s.symbol, p.ID, p.Timeframe, string(p.Direction), p.EntryPrice, p.StopLoss, p.TakeProfit,
		p.EntryTime, p.Strategy, string(p.Status),
	)
	if err != nil {
		return store.Wrap(backend, "save position", err)
	}
	if tag.RowsAffected() == 0 {
		return position.ErrAlreadyOpen
	}
	return nil
}

const insertTrade = `
	INSERT INTO trades (
		trade_id, symbol, timeframe, direction, entry_price, stop_loss, take_profit, exit_price,
		risk, reward, pnl, result, entry_time, exit_time, strategy
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (trade_id) DO NOTHING`

func tradeArgs(t journal.TradeRecord) []any {
	return []any{
		t.TradeID, t.Symbol, t.Timeframe, string(t.Direction), t.EntryPrice, t.StopLoss, t.TakeProfit,
		t.ExitPrice, t.Risk, t.Reward, t.PnL, string(t.Result), t.EntryTime, t.ExitTime, t.Strategy,
	}
}

// Settle deletes the position and inserts the trade in one transaction.
func (s *Store) Settle(ctx context.Context, rec journal.TradeRecord) error {
	if err := store.CheckContext(ctx, backend, "settle"); err != nil {
		return err
	}
	var inserted bool
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM positions WHERE symbol = $1`, s.symbol)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return position.ErrNoOpenPosition
		}
		tag, err = tx.Exec(ctx, insertTrade, tradeArgs(rec)...)
		if err != nil {
			return err
		}
		inserted = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return store.Wrap(backend, "settle", err)
	}
	if !inserted {
		return fmt.Errorf("%w: %s", journal.ErrDuplicateTradeID, rec.TradeID)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, rec journal.TradeRecord) error {
	if err := store.CheckContext(ctx, backend, "append"); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, insertTrade, tradeArgs(rec)...)
	if err != nil {
		return store.Wrap(backend, "append", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", journal.ErrDuplicateTradeID, rec.TradeID)
	}
	return nil
}

const tradeSelectCols = `trade_id, symbol, timeframe, direction, entry_price, stop_loss, take_profit,
	exit_price, risk, reward, pnl, result, entry_time, exit_time, strategy`

func scanTrade(row pgx.Row) (journal.TradeRecord, error) {
	var (
		t                 journal.TradeRecord
		direction, result string
	)
	err := row.Scan(
		&t.TradeID, &t.Symbol, &t.Timeframe, &direction, &t.EntryPrice, &t.StopLoss, &t.TakeProfit,
		&t.ExitPrice, &t.Risk, &t.Reward, &t.PnL, &result, &t.EntryTime, &t.ExitTime, &t.Strategy,
	)
	if err != nil {
		return journal.TradeRecord{}, err
	}
	t.Direction = market.Direction(direction)
	t.Result = signals.Result(result)
	t.EntryTime = t.EntryTime.UTC()
	t.ExitTime = t.ExitTime.UTC()
	return t, nil
}

func (s *Store) Get(ctx context.Context, tradeID string) (journal.TradeRecord, error) {
	t, err := scanTrade(s.pool.QueryRow(ctx, `SELECT `+tradeSelectCols+` FROM trades WHERE trade_id = $1 AND symbol = $2`, tradeID, s.symbol))
	if errors.Is(err, pgx.ErrNoRows) {
		return journal.TradeRecord{}, fmt.Errorf("%w: %q", journal.ErrTradeNotFound, tradeID)
	}
	if err != nil {
		return journal.TradeRecord{}, store.Wrap(backend, "get trade", err)
	}
	return t, nil
}

func (s *Store) List(ctx context.Context) ([]journal.TradeRecord, error) {
	return s.query(ctx, "list trades",
		`SELECT `+tradeSelectCols+` FROM trades WHERE symbol = $1 ORDER BY seq ASC`, s.symbol)
}

func (s *Store) ListClosedBetween(ctx context.Context, start, end time.Time) ([]journal.TradeRecord, error) {
	return s.query(ctx, "list trades between",
		`SELECT `+tradeSelectCols+` FROM trades
		 WHERE symbol = $1 AND exit_time >= $2 AND exit_time < $3
		 ORDER BY exit_time ASC, seq ASC`, s.symbol, start, end)
}

func (s *Store) query(ctx context.Context, op, q string, args ...any) ([]journal.TradeRecord, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, store.Wrap(backend, op, err)
	}
	defer rows.Close()

	var out []journal.TradeRecord
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, store.Wrap(backend, op, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Wrap(backend, op, err)
	}
	return out, nil
}

func (s *Store) CountTrades(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM trades WHERE symbol = $1`, s.symbol).Scan(&n); err != nil {
		return 0, store.Wrap(backend, "count trades", err)
	}
	return n, nil
}

func (s *Store) LastSignal(ctx context.Context) (*signals.Signal, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM last_signal WHERE symbol = $1`, s.symbol).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, store.Wrap(backend, "last signal", err)
	}
	var sig signals.Signal
	if err := json.Unmarshal(payload, &sig); err != nil {
		return nil, store.Wrap(backend, "decode last signal", err)
	}
	return &sig, nil
}

func (s *Store) SaveLastSignal(ctx context.Context, sig signals.Signal) error {
	if err := store.CheckContext(ctx, backend, "save last signal"); err != nil {
		return err
	}
	payload, err := json.Marshal(sig)
	if err != nil {
		return store.Wrap(backend, "encode last signal", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO last_signal (symbol, payload) VALUES ($1, $2)
		ON CONFLICT (symbol) DO UPDATE SET payload = EXCLUDED.payload`, s.symbol, payload)
	return store.Wrap(backend, "save last signal", err)
}
