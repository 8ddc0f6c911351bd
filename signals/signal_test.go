package signals

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/signalbot/market"
)

func sample() Signal {
	return Signal{
		Kind:       Entry,
		Symbol:     "BTC/USD",
		Timeframe:  "15min",
		Direction:  market.Buy,
		Entry:      91,
		StopLoss:   89.18,
		TakeProfit: 94.64,
		Time:       time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC),
		Reason:     "close re-entered lower band",
		Strategy:   "bollinger_reentry",
	}
}

func ptr(f float64) *float64 { return &f }

func TestShouldEmit(t *testing.T) {
	t.Parallel()

	base := sample()

	tests := []struct {
		name      string
		candidate *Signal
		last      *Signal
		want      bool
	}{
		{"nil candidate", nil, &base, false},
		{"nil candidate and no history", nil, nil, false},
		{"first signal", &base, nil, true},
		{"identical", &base, func() *Signal { s := sample(); return &s }(), false},
		{"different price", func() *Signal { s := sample(); s.Entry = 92; return &s }(), &base, true},
		{"same price newer candle", func() *Signal { s := sample(); s.Time = s.Time.Add(time.Minute); return &s }(), &base, true},
		{"reason only", func() *Signal { s := sample(); s.Reason = "x"; return &s }(), &base, true},
		{"kind only", func() *Signal { s := sample(); s.Kind = Exit; return &s }(), &base, true},
		{"confidence added", func() *Signal { s := sample(); s.Confidence = ptr(0.7); return &s }(), &base, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldEmit(tt.candidate, tt.last))
		})
	}
}

func TestSignal_EqualComparesConfidenceByValue(t *testing.T) {
	t.Parallel()

	a, b := sample(), sample()
	a.Confidence = ptr(0.72)
	b.Confidence = ptr(0.72)
	assert.True(t, a.Equal(b))

	b.Confidence = ptr(0.73)
	assert.False(t, a.Equal(b))
}

func TestSignal_EqualIgnoresTimeZone(t *testing.T) {
	t.Parallel()

	a, b := sample(), sample()
	b.Time = b.Time.In(time.FixedZone("EST", -5*3600))
	assert.True(t, a.Equal(b))
}

func TestSignal_JSONRoundTripStaysEqual(t *testing.T) {
	t.Parallel()

	s := sample()
	s.Confidence = ptr(0.81)
	data, err := json.Marshal(s)
	require.NoError(t, err)

	var back Signal
	require.NoError(t, json.Unmarshal(data, &back))
	assert.False(t, ShouldEmit(&back, &s))
}
