package position_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/market"
	"github.com/rustyeddy/signalbot/position"
	"github.com/rustyeddy/signalbot/signals"
	"github.com/rustyeddy/signalbot/store/memory"
)

var entryT = time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)

func buy() position.Position {
	return position.Position{
		Direction:  market.Buy,
		EntryPrice: 100,
		StopLoss:   98,
		TakeProfit: 104,
		EntryTime:  entryT,
		Strategy:   "bollinger_reentry",
	}
}

func sell() position.Position {
	return position.Position{
		Direction:  market.Sell,
		EntryPrice: 100,
		StopLoss:   102,
		TakeProfit: 96,
		EntryTime:  entryT,
		Strategy:   "bollinger_reentry",
	}
}

func newTracker() (*position.Tracker, *memory.Store) {
	st := memory.New()
	return position.NewTracker(st, "BTC/USD", "15min"), st
}

func TestTracker_OpenAssignsIdentity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tr, _ := newTracker()

	cur, err := tr.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)

	p, err := tr.Open(ctx, buy())
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, position.StatusOpen, p.Status)
	assert.Equal(t, "BTC/USD", p.Symbol)
	assert.Equal(t, "15min", p.Timeframe)

	cur, err = tr.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, p, *cur)
}

func TestTracker_AtMostOneOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tr, _ := newTracker()

	_, err := tr.Open(ctx, buy())
	require.NoError(t, err)

	_, err = tr.Open(ctx, sell())
	assert.True(t, errors.Is(err, position.ErrAlreadyOpen))

	cur, err := tr.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, market.Buy, cur.Direction)
}

func TestTracker_ConcurrentOpenOnlyOneWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tr, _ := newTracker()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tr.Open(ctx, buy()); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestTracker_OpenRejectsInvertedLevels(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tr, _ := newTracker()

	bad := buy()
	bad.StopLoss = 101
	_, err := tr.Open(ctx, bad)
	require.Error(t, err)

	cur, err := tr.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestTracker_CloseWithoutPosition(t *testing.T) {
	t.Parallel()
	tr, _ := newTracker()

	_, err := tr.Close(context.Background(), 100, entryT, signals.StopLoss)
	assert.ErrorIs(t, err, position.ErrNoOpenPosition)
}

func TestTracker_CloseStopLoss(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tr, st := newTracker()

	_, err := tr.Open(ctx, buy())
	require.NoError(t, err)

	exit := entryT.Add(45 * time.Minute)
	rec, err := tr.Close(ctx, 97.5, exit, signals.StopLoss)
	require.NoError(t, err)

	assert.Equal(t, "BTCUSD-20250301T060000-001", rec.TradeID)
	assert.Equal(t, signals.StopLoss, rec.Result)
	assert.Equal(t, 2.0, rec.Risk)
	assert.Equal(t, 4.0, rec.Reward)
	assert.Equal(t, -2.0, rec.PnL)
	assert.Equal(t, 97.5, rec.ExitPrice)
	assert.Equal(t, exit, rec.ExitTime)
	assert.Equal(t, "bollinger_reentry", rec.Strategy)

	cur, err := tr.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)

	all, err := st.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []journal.TradeRecord{rec}, all)
}

func TestTracker_CloseTakeProfitSell(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tr, _ := newTracker()

	_, err := tr.Open(ctx, sell())
	require.NoError(t, err)

	rec, err := tr.Close(ctx, 96, entryT.Add(time.Hour), signals.TakeProfit)
	require.NoError(t, err)
	assert.Equal(t, 4.0, rec.PnL)
	assert.Equal(t, rec.Reward, rec.PnL)
}

func TestTracker_SequenceFollowsLedger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tr, _ := newTracker()

	for i := 1; i <= 3; i++ {
		p := buy()
		p.EntryTime = entryT.Add(time.Duration(i) * time.Hour)
		_, err := tr.Open(ctx, p)
		require.NoError(t, err)
		rec, err := tr.Close(ctx, 104, p.EntryTime.Add(time.Minute), signals.TakeProfit)
		require.NoError(t, err)
		assert.Equal(t, journal.TradeID("BTC/USD", p.EntryTime, i), rec.TradeID)
	}
}

func TestTracker_DuplicateTradeIDStillClears(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tr, st := newTracker()

	pre := journal.TradeRecord{
		TradeID: journal.TradeID("BTC/USD", entryT, 1), Symbol: "BTC/USD", Direction: market.Buy,
		EntryPrice: 100, StopLoss: 98, TakeProfit: 104, ExitPrice: 104, Risk: 2, Reward: 4, PnL: 4,
		Result: signals.TakeProfit, EntryTime: entryT, ExitTime: entryT,
	}
	require.NoError(t, st.Append(ctx, pre))

	pre.TradeID = journal.TradeID("BTC/USD", entryT, 2)
	require.NoError(t, st.Append(ctx, pre))

	_, err := tr.Open(ctx, buy())
	require.NoError(t, err)

	// count is now 2, id -003 is free
	_, err = tr.Close(ctx, 97, entryT.Add(time.Hour), signals.StopLoss)
	require.NoError(t, err)

	_, err = tr.Open(ctx, buy())
	require.NoError(t, err)
	require.NoError(t, st.Append(ctx, journal.TradeRecord{
		TradeID: journal.TradeID("BTC/USD", entryT, 5), Symbol: "BTC/USD", Direction: market.Buy,
		EntryPrice: 100, StopLoss: 98, TakeProfit: 104, ExitPrice: 97, Risk: 2, Reward: 4, PnL: -2,
		Result: signals.StopLoss, EntryTime: entryT, ExitTime: entryT,
	}))
	// count is 4: -005 collides
	rec, err := tr.Close(ctx, 97, entryT.Add(2*time.Hour), signals.StopLoss)
	assert.ErrorIs(t, err, journal.ErrDuplicateTradeID)
	assert.Equal(t, journal.TradeID("BTC/USD", entryT, 5), rec.TradeID)

	cur, err := tr.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur)

	n, err := st.CountTrades(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestTracker_CloseRealized(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tr, _ := newTracker()

	_, err := tr.Open(ctx, buy())
	require.NoError(t, err)

	_, err = tr.CloseRealized(ctx, 100, entryT.Add(time.Hour))
	assert.ErrorIs(t, err, position.ErrNoMove)

	rec, err := tr.CloseRealized(ctx, 99.25, entryT.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, signals.StopLoss, rec.Result)
	assert.Equal(t, 0.75, rec.Risk)
	assert.Equal(t, -0.75, rec.PnL)
	require.NoError(t, rec.Validate())
}
