// Package memory is an in-process backend used by tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/position"
	"github.com/rustyeddy/signalbot/signals"
	"github.com/rustyeddy/signalbot/store"
)

const backend = "memory"

type Store struct {
	mu     sync.Mutex
	pos    *position.Position
	trades []journal.TradeRecord
	byID   map[string]int
	last   *signals.Signal
}

var _ store.Backend = (*Store)(nil)

func New() *Store {
	return &Store{byID: make(map[string]int)}
}

func (s *Store) LoadPosition(ctx context.Context) (*position.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos == nil {
		return nil, nil
	}
	p := *s.pos
	return &p, nil
}

func (s *Store) SavePosition(ctx context.Context, p position.Position) error {
	if err := store.CheckContext(ctx, backend, "save position"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos != nil {
		return position.ErrAlreadyOpen
	}
	s.pos = &p
	return nil
}

func (s *Store) Settle(ctx context.Context, rec journal.TradeRecord) error {
	if err := store.CheckContext(ctx, backend, "settle"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos == nil {
		return position.ErrNoOpenPosition
	}
	s.pos = nil
	return s.appendLocked(rec)
}

func (s *Store) Append(ctx context.Context, rec journal.TradeRecord) error {
	if err := store.CheckContext(ctx, backend, "append"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(rec)
}

func (s *Store) appendLocked(rec journal.TradeRecord) error {
	if _, ok := s.byID[rec.TradeID]; ok {
		return fmt.Errorf("%w: %s", journal.ErrDuplicateTradeID, rec.TradeID)
	}
	s.byID[rec.TradeID] = len(s.trades)
	s.trades = append(s.trades, rec)
	return nil
}

func (s *Store) List(ctx context.Context) ([]journal.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]journal.TradeRecord(nil), s.trades...), nil
}

func (s *Store) Get(ctx context.Context, tradeID string) (journal.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byID[tradeID]
	if !ok {
		return journal.TradeRecord{}, fmt.Errorf("%w: %q", journal.ErrTradeNotFound, tradeID)
	}
	return s.trades[i], nil
}

func (s *Store) ListClosedBetween(ctx context.Context, start, end time.Time) ([]journal.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []journal.TradeRecord
	for _, t := range s.trades {
		if !t.ExitTime.Before(start) && t.ExitTime.Before(end) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) CountTrades(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trades), nil
}

func (s *Store) LastSignal(ctx context.Context) (*signals.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, nil
	}
	return copySignal(*s.last), nil
}

func (s *Store) SaveLastSignal(ctx context.Context, sig signals.Signal) error {
	if err := store.CheckContext(ctx, backend, "save last signal"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = copySignal(sig)
	return nil
}

func (s *Store) Close() error { return nil }

func copySignal(sig signals.Signal) *signals.Signal {
	if sig.Confidence != nil {
		c := *sig.Confidence
		sig.Confidence = &c
	}
	return &sig
}
