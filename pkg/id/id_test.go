package id

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAt_MonotonicWithinSameTime(t *testing.T) {
	ts := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	prev := At(ts)
	for i := 0; i < 100; i++ {
		next := At(ts)
		assert.Len(t, next, 26)
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestAt_StampsTime(t *testing.T) {
	ts := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	u, err := ulid.ParseStrict(At(ts))
	require.NoError(t, err)
	assert.True(t, ts.Equal(ulid.Time(u.Time())))

	assert.Less(t, At(ts), At(ts.Add(time.Minute)))
}
