// Package sqlite is the default backend: one database file, rows keyed by
// symbol.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/position"
	"github.com/rustyeddy/signalbot/signals"
	"github.com/rustyeddy/signalbot/store"
)

const backend = "sqlite"

type Store struct {
	db     *sql.DB
	symbol string
}

var _ store.Backend = (*Store)(nil)

// New opens (creating if needed) the database at path for symbol.
func New(path, symbol string) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &Store{db: db, symbol: symbol}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) LoadPosition(ctx context.Context) (*position.Position, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, timeframe, direction, entry_price, stop_loss, take_profit, entry_time, strategy, status
		FROM positions
		WHERE symbol = ?`, s.symbol)

	var (
		p     position.Position
		entry int64
	)
	err := row.Scan(&p.ID, &p.Symbol, &p.Timeframe, &p.Direction, &p.EntryPrice,
		&p.StopLoss, &p.TakeProfit, &entry, &p.Strategy, &p.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, store.Wrap(backend, "load position", err)
	}
	p.EntryTime = fromNanos(entry)
	return &p, nil
}

func (s *Store) SavePosition(ctx context.Context, p position.Position) error {
	if err := store.CheckContext(ctx, backend, "save position"); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO positions
		(symbol, id, timeframe, direction, entry_price, stop_loss, take_profit, entry_time, strategy, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO NOTHING`,
		s.symbol, p.ID, p.Timeframe, string(p.Direction), p.EntryPrice,
		p.StopLoss, p.TakeProfit, p.EntryTime.UnixNano(), p.Strategy, string(p.Status),
	)
	if err != nil {
		return store.Wrap(backend, "save position", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Wrap(backend, "save position", err)
	}
	if n == 0 {
		return position.ErrAlreadyOpen
	}
	return nil
}

// Settle deletes the position row and inserts the trade in one transaction.
// A duplicate trade id still commits the delete.
func (s *Store) Settle(ctx context.Context, rec journal.TradeRecord) error {
	if err := store.CheckContext(ctx, backend, "settle"); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Wrap(backend, "settle begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE symbol = ?`, s.symbol)
	if err != nil {
		return store.Wrap(backend, "settle delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Wrap(backend, "settle delete", err)
	}
	if n == 0 {
		return position.ErrNoOpenPosition
	}

	inserted, err := insertTrade(ctx, tx, rec)
	if err != nil {
		return store.Wrap(backend, "settle insert", err)
	}
	if err := tx.Commit(); err != nil {
		return store.Wrap(backend, "settle commit", err)
	}
	if !inserted {
		return fmt.Errorf("%w: %s", journal.ErrDuplicateTradeID, rec.TradeID)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTrade(ctx context.Context, db execer, t journal.TradeRecord) (bool, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO trades
		(trade_id, symbol, timeframe, direction, entry_price, stop_loss, take_profit, exit_price,
		 risk, reward, pnl, result, entry_time, exit_time, strategy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trade_id) DO NOTHING`,
		t.TradeID, t.Symbol, t.Timeframe, string(t.Direction), t.EntryPrice, t.StopLoss, t.TakeProfit,
		t.ExitPrice, t.Risk, t.Reward, t.PnL, string(t.Result),
		t.EntryTime.UnixNano(), t.ExitTime.UnixNano(), t.Strategy,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) Append(ctx context.Context, rec journal.TradeRecord) error {
	if err := store.CheckContext(ctx, backend, "append"); err != nil {
		return err
	}
	inserted, err := insertTrade(ctx, s.db, rec)
	if err != nil {
		return store.Wrap(backend, "append", err)
	}
	if !inserted {
		return fmt.Errorf("%w: %s", journal.ErrDuplicateTradeID, rec.TradeID)
	}
	return nil
}

func (s *Store) LastSignal(ctx context.Context) (*signals.Signal, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM last_signal WHERE symbol = ?`, s.symbol).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, store.Wrap(backend, "last signal", err)
	}
	var sig signals.Signal
	if err := json.Unmarshal([]byte(payload), &sig); err != nil {
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
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO last_signal (symbol, payload) VALUES (?, ?)
		ON CONFLICT(symbol) DO UPDATE SET payload = excluded.payload`, s.symbol, string(payload))
	return store.Wrap(backend, "save last signal", err)
}

func fromNanos(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
