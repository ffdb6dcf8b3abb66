// Package telemetry exposes Prometheus instrumentation for the scan loop.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors registered for one engine instance.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal      prometheus.Counter
	CyclesSuperseded prometheus.Counter
	SymbolFailures   *prometheus.CounterVec
	CycleDuration    prometheus.Histogram
	SymbolDuration   prometheus.Histogram
	SimDuration      prometheus.Histogram
	StrategiesFound  prometheus.Gauge
	ActiveAlerts     prometheus.Gauge
}

// New builds and registers the collector set on a private registry so
// multiple engines in one process do not collide.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optionscope",
			Name:      "scan_cycles_total",
			Help:      "Completed scan cycles.",
		}),
		CyclesSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optionscope",
			Name:      "scan_cycles_superseded_total",
			Help:      "Cycles cancelled because a newer cycle started.",
		}),
		SymbolFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "optionscope",
			Name:      "symbol_failures_total",
			Help:      "Per-symbol pipeline failures by stage.",
		}, []string{"stage"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "optionscope",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a full scan cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		SymbolDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "optionscope",
			Name:      "symbol_duration_seconds",
			Help:      "Wall time of one symbol pipeline.",
			Buckets:   prometheus.DefBuckets,
		}),
		SimDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "optionscope",
			Name:      "simulation_duration_seconds",
			Help:      "Wall time of one Monte Carlo run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		StrategiesFound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "optionscope",
			Name:      "strategies_found",
			Help:      "Strategies surviving filters in the latest cycle.",
		}),
		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "optionscope",
			Name:      "active_alerts",
			Help:      "Currently active monitoring alerts.",
		}),
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.CyclesSuperseded,
		m.SymbolFailures,
		m.CycleDuration,
		m.SymbolDuration,
		m.SimDuration,
		m.StrategiesFound,
		m.ActiveAlerts,
	)
	return m
}

// Handler returns the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSince records elapsed time on a histogram.
func ObserveSince(h prometheus.Histogram, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
