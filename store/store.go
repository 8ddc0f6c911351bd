// Package store holds the shared contract of the persistence backends. Each
// backend keeps the open position, the trade ledger and the last emitted
// signal for one symbol.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/position"
	"github.com/rustyeddy/signalbot/signals"
)

// Backend is implemented by store/memory, store/sqlite, store/redis and
// store/postgres.
type Backend interface {
	position.Store
	journal.Ledger
	signals.Cache
	Close() error
}

// PersistenceError marks a failed read or write. The cycle that hit it must
// be treated as failed; nothing it computed is committed.
type PersistenceError struct {
	Backend string
	Op      string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s store: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Wrap converts a driver error into a *PersistenceError. Domain sentinels
// such as position.ErrAlreadyOpen or journal.ErrDuplicateTradeID pass
// through unchanged, as does nil.
func Wrap(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Backend: backend, Op: op, Err: err}
}

// IsDomain reports whether err is a state error rather than a storage fault.
func IsDomain(err error) bool {
	return errors.Is(err, position.ErrAlreadyOpen) ||
		errors.Is(err, position.ErrNoOpenPosition) ||
		errors.Is(err, journal.ErrDuplicateTradeID) ||
		errors.Is(err, journal.ErrTradeNotFound)
}

// IsPersistence reports whether err came from a storage fault.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// Contexts are checked before every write so a cancelled cycle leaves the
// stored state untouched.
func CheckContext(ctx context.Context, backend, op string) error {
	if err := ctx.Err(); err != nil {
		return &PersistenceError{Backend: backend, Op: op, Err: err}
	}
	return nil
}

// ErrLockHeld is returned by a Locker when another process holds the lock.
var ErrLockHeld = errors.New("lock held")

// Locker serializes cycles across processes sharing a backend.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}
