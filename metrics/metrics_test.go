package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	m := New()

	m.ObserveCycle("entry", 150*time.Millisecond)
	m.ObserveCycle("entry", 50*time.Millisecond)
	m.ObserveCycle("skipped", time.Millisecond)
	m.SignalEmitted("entry")
	m.SignalSuppressed()
	m.NotifyFailed()
	m.TradeClosed("SL", -2)
	m.TradeClosed("TP", 4)
	m.SetPositionOpen(true)
	m.SetLastCandle(time.Unix(1740787200, 0))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Cycles.WithLabelValues("entry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Cycles.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Signals.WithLabelValues("entry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignalsSuppressed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotifyFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Trades.WithLabelValues("SL")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RealizedPnL))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PositionOpen))
	assert.Equal(t, 1740787200.0, testutil.ToFloat64(m.LastCandle))

	m.SetPositionOpen(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PositionOpen))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCycle("entry", time.Second)
		m.SignalEmitted("exit")
		m.SignalSuppressed()
		m.NotifyFailed()
		m.TradeClosed("TP", 1)
		m.SetPositionOpen(true)
		m.SetLastCandle(time.Now())
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveCycle("hold", time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `signalbot_cycles_total{outcome="hold"} 1`)
	assert.Contains(t, string(body), "signalbot_cycle_duration_seconds_bucket")
	assert.Contains(t, string(body), "go_goroutines")
}
