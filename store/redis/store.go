package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/position"
	"github.com/rustyeddy/signalbot/signals"
	"github.com/rustyeddy/signalbot/store"
)

const backend = "redis"

// KEYS: position, trades hash, trades order list, exit-time zset.
// ARGV: trade id, record json, exit score.
// Returns -1 when flat, 0 when the id is taken, 1 when appended.
const settleLua = `
if redis.call('EXISTS', KEYS[1]) == 0 then
    return -1
end
redis.call('DEL', KEYS[1])
if redis.call('HSETNX', KEYS[2], ARGV[1], ARGV[2]) == 0 then
    return 0
end
redis.call('RPUSH', KEYS[3], ARGV[1])
redis.call('ZADD', KEYS[4], ARGV[3], ARGV[1])
return 1
`

// Same as settleLua without the position key.
const appendLua = `
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 0 then
    return 0
end
redis.call('RPUSH', KEYS[2], ARGV[1])
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
return 1
`

// Store implements store.Backend with keys under "<prefix>:<symbol>:".
type Store struct {
	rdb      *redis.Client
	prefix   string
	settleSc *redis.Script
	appendSc *redis.Script
	owned    bool
}

var _ store.Backend = (*Store)(nil)

// New dials Redis and returns a store for symbol.
func New(ctx context.Context, cfg ClientConfig, symbol string) (*Store, error) {
	rdb, err := Dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := NewWithClient(rdb, cfg.Prefix, symbol)
	s.owned = true
	return s, nil
}

// NewWithClient shares an existing client; Close leaves it open.
func NewWithClient(rdb *redis.Client, prefix, symbol string) *Store {
	if prefix == "" {
		prefix = "signalbot"
	}
	return &Store{
		rdb:      rdb,
		prefix:   prefix + ":" + strings.ToUpper(symbol) + ":",
		settleSc: redis.NewScript(settleLua),
		appendSc: redis.NewScript(appendLua),
	}
}

func (s *Store) key(name string) string { return s.prefix + name }

func (s *Store) Close() error {
	if s.owned {
		return s.rdb.Close()
	}
	return nil
}

// exit times are scored in milliseconds to stay inside float64 precision
func exitScore(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func (s *Store) LoadPosition(ctx context.Context) (*position.Position, error) {
	raw, err := s.rdb.Get(ctx, s.key("position")).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, store.Wrap(backend, "load position", err)
	}
	var p position.Position
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, store.Wrap(backend, "decode position", err)
	}
	return &p, nil
}

func (s *Store) SavePosition(ctx context.Context, p position.Position) error {
	if err := store.CheckContext(ctx, backend, "save position"); err != nil {
		return err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return store.Wrap(backend, "encode position", err)
	}
	ok, err := s.rdb.SetNX(ctx, s.key("position"), raw, 0).Result()
	if err != nil {
		return store.Wrap(backend, "save position", err)
	}
	if !ok {
		return position.ErrAlreadyOpen
	}
	return nil
}

func (s *Store) Settle(ctx context.Context, rec journal.TradeRecord) error {
	if err := store.CheckContext(ctx, backend, "settle"); err != nil {
		return err
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return store.Wrap(backend, "encode trade", err)
	}
	keys := []string{s.key("position"), s.key("trades"), s.key("trades:order"), s.key("trades:exit")}
	n, err := s.settleSc.Run(ctx, s.rdb, keys, rec.TradeID, string(raw), exitScore(rec.ExitTime)).Int()
	if err != nil {
		return store.Wrap(backend, "settle", err)
	}
	switch n {
	case -1:
		return position.ErrNoOpenPosition
	case 0:
		return fmt.Errorf("%w: %s", journal.ErrDuplicateTradeID, rec.TradeID)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, rec journal.TradeRecord) error {
	if err := store.CheckContext(ctx, backend, "append"); err != nil {
		return err
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return store.Wrap(backend, "encode trade", err)
	}
	keys := []string{s.key("trades"), s.key("trades:order"), s.key("trades:exit")}
	n, err := s.appendSc.Run(ctx, s.rdb, keys, rec.TradeID, string(raw), exitScore(rec.ExitTime)).Int()
	if err != nil {
		return store.Wrap(backend, "append", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", journal.ErrDuplicateTradeID, rec.TradeID)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]journal.TradeRecord, error) {
	ids, err := s.rdb.LRange(ctx, s.key("trades:order"), 0, -1).Result()
	if err != nil {
		return nil, store.Wrap(backend, "list trades", err)
	}
	return s.load(ctx, "list trades", ids)
}

func (s *Store) Get(ctx context.Context, tradeID string) (journal.TradeRecord, error) {
	raw, err := s.rdb.HGet(ctx, s.key("trades"), tradeID).Bytes()
	if errors.Is(err, redis.Nil) {
		return journal.TradeRecord{}, fmt.Errorf("%w: %q", journal.ErrTradeNotFound, tradeID)
	}
	if err != nil {
		return journal.TradeRecord{}, store.Wrap(backend, "get trade", err)
	}
	var rec journal.TradeRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return journal.TradeRecord{}, store.Wrap(backend, "decode trade", err)
	}
	return rec, nil
}

func (s *Store) ListClosedBetween(ctx context.Context, start, end time.Time) ([]journal.TradeRecord, error) {
	ids, err := s.rdb.ZRangeByScore(ctx, s.key("trades:exit"), &redis.ZRangeBy{
		Min: exitScore(start),
		Max: "(" + exitScore(end),
	}).Result()
	if err != nil {
		return nil, store.Wrap(backend, "list trades between", err)
	}
	return s.load(ctx, "list trades between", ids)
}

func (s *Store) CountTrades(ctx context.Context) (int, error) {
	n, err := s.rdb.LLen(ctx, s.key("trades:order")).Result()
	if err != nil {
		return 0, store.Wrap(backend, "count trades", err)
	}
	return int(n), nil
}

func (s *Store) load(ctx context.Context, op string, ids []string) ([]journal.TradeRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	vals, err := s.rdb.HMGet(ctx, s.key("trades"), ids...).Result()
	if err != nil {
		return nil, store.Wrap(backend, op, err)
	}
	out := make([]journal.TradeRecord, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			return nil, store.Wrap(backend, op, fmt.Errorf("trade %s missing from hash", ids[i]))
		}
		var rec journal.TradeRecord
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			return nil, store.Wrap(backend, op, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) LastSignal(ctx context.Context) (*signals.Signal, error) {
	raw, err := s.rdb.Get(ctx, s.key("last_signal")).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, store.Wrap(backend, "last signal", err)
	}
	var sig signals.Signal
	if err := json.Unmarshal(raw, &sig); err != nil {
		return nil, store.Wrap(backend, "decode last signal", err)
	}
	return &sig, nil
}

func (s *Store) SaveLastSignal(ctx context.Context, sig signals.Signal) error {
	if err := store.CheckContext(ctx, backend, "save last signal"); err != nil {
		return err
	}
	raw, err := json.Marshal(sig)
	if err != nil {
		return store.Wrap(backend, "encode last signal", err)
	}
	return store.Wrap(backend, "save last signal", s.rdb.Set(ctx, s.key("last_signal"), raw, 0).Err())
}
