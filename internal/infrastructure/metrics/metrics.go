// Package metrics exposes the engine's operational counters via prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	cycleTotal    prometheus.Counter
	cycleSkipped  prometheus.Counter
	cycleDuration prometheus.Histogram
	attempted     prometheus.Counter
	resolved      prometheus.Counter
	sourceFetch   *prometheus.CounterVec

	Connections prometheus.Gauge
	Pushed      prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cycleTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "hydra_cycles_total",
			Help: "Completed aggregation cycles",
		}),
		cycleSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "hydra_cycles_skipped_total",
			Help: "Ticks skipped because the previous cycle was still running",
		}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hydra_cycle_duration_seconds",
			Help:    "Aggregation cycle wall time",
			Buckets: prometheus.DefBuckets,
		}),
		attempted: factory.NewCounter(prometheus.CounterOpts{
			Name: "hydra_symbols_attempted_total",
			Help: "Symbols attempted across cycles",
		}),
		resolved: factory.NewCounter(prometheus.CounterOpts{
			Name: "hydra_symbols_resolved_total",
			Help: "Symbols successfully resolved across cycles",
		}),
		sourceFetch: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hydra_source_fetch_total",
			Help: "Per-source fetch outcomes",
		}, []string{"source", "status"}),
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hydra_active_connections",
			Help: "Live websocket connections",
		}),
		Pushed: factory.NewCounter(prometheus.CounterOpts{
			Name: "hydra_price_updates_pushed_total",
			Help: "Price updates handed to client send buffers",
		}),
	}
}

// CycleDone implements service.CycleObserver.
func (m *Metrics) CycleDone(attempted, resolved int, elapsed time.Duration) {
	m.cycleTotal.Inc()
	m.attempted.Add(float64(attempted))
	m.resolved.Add(float64(resolved))
	m.cycleDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) CycleSkipped() { m.cycleSkipped.Inc() }

func (m *Metrics) SourceFetch(source string, symbols int, ok bool) {
	status := "ok"
	if !ok {
		status = "empty"
	}
	m.sourceFetch.WithLabelValues(source, status).Inc()
}
