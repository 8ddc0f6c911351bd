package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/signalbot/store"
	"github.com/rustyeddy/signalbot/store/storetest"
)

func TestDSN(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "postgres://bot:pw@db:5432/signals?sslmode=disable",
		DSN(ClientConfig{Host: "db", User: "bot", Password: "pw", Database: "signals"}))
	assert.Equal(t, "postgres://x", DSN(ClientConfig{DSN: "postgres://x", Host: "ignored"}))
	assert.Contains(t, DSN(ClientConfig{Host: "h", Port: 6543, SSLMode: "require"}), ":6543/?sslmode=require")
}

// Runs only against a live database:
// SIGNALBOT_TEST_POSTGRES_DSN=postgres://... go test ./store/postgres
func TestPostgresBackend(t *testing.T) {
	dsn := os.Getenv("SIGNALBOT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SIGNALBOT_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	storetest.Run(t, func(t *testing.T) store.Backend {
		s, err := New(ctx, ClientConfig{DSN: dsn}, "BTC/USD")
		require.NoError(t, err)
		_, err = s.pool.Exec(ctx, `TRUNCATE positions, trades, last_signal`)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
