package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/signalbot/journal"
	"github.com/rustyeddy/signalbot/store"
	"github.com/rustyeddy/signalbot/store/storetest"
)

func newTestSQLite(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	s, err := New(path, "BTC/USD")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestSQLiteBackend(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend {
		s, _ := newTestSQLite(t)
		return s
	})
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	s, path := newTestSQLite(t)
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('positions','trades','last_signal')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["positions"])
	assert.True(t, found["trades"])
	assert.True(t, found["last_signal"])
}

func TestSQLiteStateSurvivesReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "state.db")
	s, err := New(path, "BTC/USD")
	require.NoError(t, err)
	require.NoError(t, s.SavePosition(ctx, storetest.OpenBuy()))
	require.NoError(t, s.Append(ctx, storetest.Trade("T-1", storetest.OpenBuy().EntryTime)))
	require.NoError(t, s.Close())

	s, err = New(path, "BTC/USD")
	require.NoError(t, err)
	defer s.Close()

	p, err := s.LoadPosition(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, storetest.OpenBuy().ID, p.ID)

	n, err := s.CountTrades(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteSymbolsAreIndependent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "multi.db")
	btc, err := New(path, "BTC/USD")
	require.NoError(t, err)
	defer btc.Close()
	eth, err := New(path, "ETH/USD")
	require.NoError(t, err)
	defer eth.Close()

	require.NoError(t, btc.SavePosition(ctx, storetest.OpenBuy()))

	p, err := eth.LoadPosition(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)
	require.NoError(t, eth.SavePosition(ctx, storetest.OpenBuy()))
}

func TestSQLiteGetIsScopedBySymbol(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "scoped.db")
	btc, err := New(path, "BTC/USD")
	require.NoError(t, err)
	defer btc.Close()
	eth, err := New(path, "ETH/USD")
	require.NoError(t, err)
	defer eth.Close()

	rec := storetest.Trade("BTCUSD-20250301T000000-001", storetest.OpenBuy().EntryTime)
	require.NoError(t, btc.Append(ctx, rec))

	got, err := btc.Get(ctx, rec.TradeID)
	require.NoError(t, err)
	assert.Equal(t, rec.TradeID, got.TradeID)

	_, err = eth.Get(ctx, rec.TradeID)
	assert.ErrorIs(t, err, journal.ErrTradeNotFound)
}
