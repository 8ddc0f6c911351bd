// Package metrics holds the Prometheus collectors of the signal engine.
// Every method is safe on a nil *Metrics so components can run without
// metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Registry *prometheus.Registry

	Cycles            *prometheus.CounterVec // labels: outcome
	CycleDuration     prometheus.Histogram
	Signals           *prometheus.CounterVec // labels: kind
	SignalsSuppressed prometheus.Counter
	NotifyFailures    prometheus.Counter
	Trades            *prometheus.CounterVec // labels: result
	RealizedPnL       prometheus.Gauge
	PositionOpen      prometheus.Gauge
	LastCandle        prometheus.Gauge
}

// New registers all collectors on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_cycles_total",
			Help: "Evaluation cycles by outcome",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalbot_cycle_duration_seconds",
			Help:    "Wall time of one evaluation cycle, fetch included",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_signals_total",
			Help: "Signals emitted by kind",
		}, []string{"kind"}),
		SignalsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalbot_signals_suppressed_total",
			Help: "Entry candidates dropped as repeats of the last emitted signal",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalbot_notify_failures_total",
			Help: "Signals whose delivery failed on at least one channel",
		}),
		Trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_trades_total",
			Help: "Closed trades by result",
		}, []string{"result"}),
		RealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_realized_pnl",
			Help: "Sum of PnL booked since start, in price units",
		}),
		PositionOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_position_open",
			Help: "1 while a position is open, 0 when flat",
		}),
		LastCandle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_last_candle_timestamp_seconds",
			Help: "Unix time of the newest candle evaluated",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Cycles,
		m.CycleDuration,
		m.Signals,
		m.SignalsSuppressed,
		m.NotifyFailures,
		m.Trades,
		m.RealizedPnL,
		m.PositionOpen,
		m.LastCandle,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) ObserveCycle(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Cycles.WithLabelValues(outcome).Inc()
	m.CycleDuration.Observe(d.Seconds())
}

func (m *Metrics) SignalEmitted(kind string) {
	if m == nil {
		return
	}
	m.Signals.WithLabelValues(kind).Inc()
}

func (m *Metrics) SignalSuppressed() {
	if m == nil {
		return
	}
	m.SignalsSuppressed.Inc()
}

func (m *Metrics) NotifyFailed() {
	if m == nil {
		return
	}
	m.NotifyFailures.Inc()
}

func (m *Metrics) TradeClosed(result string, pnl float64) {
	if m == nil {
		return
	}
	m.Trades.WithLabelValues(result).Inc()
	m.RealizedPnL.Add(pnl)
}

func (m *Metrics) SetPositionOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.PositionOpen.Set(1)
		return
	}
	m.PositionOpen.Set(0)
}

func (m *Metrics) SetLastCandle(t time.Time) {
	if m == nil {
		return
	}
	m.LastCandle.Set(float64(t.Unix()))
}
