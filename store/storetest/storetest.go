// Package storetest is a conformance suite run against every backend.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/position"
	"github.com/rustyeddy/signalbot/signals"
	"github.com/rustyeddy/signalbot/store"
)

var (
	entryT = time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	exitT  = time.Date(2025, 3, 1, 9, 15, 0, 0, time.UTC)
)

// OpenBuy is a valid open buy position.
func OpenBuy() position.Position {
	return position.Position{
		ID:         "01JNB0000000000000000000AA",
		Symbol:     "BTC/USD",
		Timeframe:  "15min",
		Direction:  market.Buy,
		EntryPrice: 100,
		StopLoss:   98,
		TakeProfit: 104,
		EntryTime:  entryT,
		Strategy:   "bollinger_reentry",
		Status:     position.StatusOpen,
	}
}

// Trade is a valid SL record with the given id and exit time.
func Trade(id string, exit time.Time) journal.TradeRecord {
	return journal.TradeRecord{
		TradeID:    id,
		Symbol:     "BTC/USD",
		Timeframe:  "15min",
		Direction:  market.Buy,
		EntryPrice: 100,
		StopLoss:   98,
		TakeProfit: 104,
		ExitPrice:  97.5,
		Risk:       2,
		Reward:     4,
		PnL:        -2,
		Result:     signals.StopLoss,
		EntryTime:  entryT,
		ExitTime:   exit,
		Strategy:   "bollinger_reentry",
	}
}

// Run exercises the backend contract. newBackend must return an empty store.
func Run(t *testing.T, newBackend func(t *testing.T) store.Backend) {
	t.Run("PositionLifecycle", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)

		p, err := b.LoadPosition(ctx)
		require.NoError(t, err)
		assert.Nil(t, p)

		require.NoError(t, b.SavePosition(ctx, OpenBuy()))

		p, err = b.LoadPosition(ctx)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, OpenBuy().ID, p.ID)
		assert.Equal(t, market.Buy, p.Direction)
		assert.Equal(t, 98.0, p.StopLoss)
		assert.True(t, entryT.Equal(p.EntryTime))
		assert.Equal(t, position.StatusOpen, p.Status)

		second := OpenBuy()
		second.ID = "01JNB0000000000000000000BB"
		err = b.SavePosition(ctx, second)
		assert.True(t, errors.Is(err, position.ErrAlreadyOpen), "got %v", err)

		p, err = b.LoadPosition(ctx)
		require.NoError(t, err)
		assert.Equal(t, OpenBuy().ID, p.ID)
	})

	t.Run("SettleIsAtomic", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)

		err := b.Settle(ctx, Trade("T-001", exitT))
		assert.True(t, errors.Is(err, position.ErrNoOpenPosition), "got %v", err)
		n, err := b.CountTrades(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		require.NoError(t, b.SavePosition(ctx, OpenBuy()))
		require.NoError(t, b.Settle(ctx, Trade("T-001", exitT)))

		p, err := b.LoadPosition(ctx)
		require.NoError(t, err)
		assert.Nil(t, p)

		n, err = b.CountTrades(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("SettleDuplicateStillClears", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)

		require.NoError(t, b.Append(ctx, Trade("T-001", exitT)))
		require.NoError(t, b.SavePosition(ctx, OpenBuy()))

		dup := Trade("T-001", exitT.Add(time.Hour))
		dup.ExitPrice = 104
		err := b.Settle(ctx, dup)
		assert.True(t, errors.Is(err, journal.ErrDuplicateTradeID), "got %v", err)

		p, err := b.LoadPosition(ctx)
		require.NoError(t, err)
		assert.Nil(t, p)

		got, err := b.Get(ctx, "T-001")
		require.NoError(t, err)
		assert.Equal(t, 97.5, got.ExitPrice)
	})

	t.Run("LedgerAppendOnly", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)

		ids := []string{"T-003", "T-001", "T-002"}
		for i, id := range ids {
			require.NoError(t, b.Append(ctx, Trade(id, exitT.Add(time.Duration(i)*time.Hour))))
		}

		err := b.Append(ctx, Trade("T-001", exitT))
		assert.True(t, errors.Is(err, journal.ErrDuplicateTradeID), "got %v", err)

		all, err := b.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		for i, id := range ids {
			assert.Equal(t, id, all[i].TradeID)
		}
		assert.Equal(t, Trade("T-002", exitT).Symbol, all[2].Symbol)
		assert.Equal(t, signals.StopLoss, all[2].Result)
		assert.Equal(t, -2.0, all[2].PnL)
		assert.True(t, exitT.Add(2*time.Hour).Equal(all[2].ExitTime))

		got, err := b.Get(ctx, "T-002")
		require.NoError(t, err)
		assert.Equal(t, "bollinger_reentry", got.Strategy)

		_, err = b.Get(ctx, "missing")
		assert.True(t, errors.Is(err, journal.ErrTradeNotFound), "got %v", err)

		between, err := b.ListClosedBetween(ctx, exitT.Add(30*time.Minute), exitT.Add(2*time.Hour))
		require.NoError(t, err)
		require.Len(t, between, 1)
		assert.Equal(t, "T-001", between[0].TradeID)
	})

	t.Run("LastSignal", func(t *testing.T) {
		ctx := context.Background()
		b := newBackend(t)

		last, err := b.LastSignal(ctx)
		require.NoError(t, err)
		assert.Nil(t, last)

		conf := 0.8
		sig := signals.Signal{
			Kind:       signals.Entry,
			Symbol:     "BTC/USD",
			Timeframe:  "15min",
			Direction:  market.Buy,
			Entry:      91,
			StopLoss:   89.18,
			TakeProfit: 94.64,
			Time:       entryT,
			Reason:     "close re-entered lower band",
			Strategy:   "bollinger_reentry",
			Confidence: &conf,
		}
		require.NoError(t, b.SaveLastSignal(ctx, sig))

		last, err = b.LastSignal(ctx)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.False(t, signals.ShouldEmit(&sig, last))

		sig.Kind = signals.Exit
		sig.ExitPrice = 94.7
		sig.Result = signals.TakeProfit
		require.NoError(t, b.SaveLastSignal(ctx, sig))
		last, err = b.LastSignal(ctx)
		require.NoError(t, err)
		assert.Equal(t, signals.Exit, last.Kind)
	})

	t.Run("CancelledContextWritesNothing", func(t *testing.T) {
		b := newBackend(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := b.SavePosition(ctx, OpenBuy())
		require.Error(t, err)
		assert.False(t, store.IsDomain(err))

		p, err := b.LoadPosition(context.Background())
		require.NoError(t, err)
		assert.Nil(t, p)
	})
}
