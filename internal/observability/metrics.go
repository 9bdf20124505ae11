// Package observability holds the Prometheus instrumentation for dispatch runs.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the alert dispatcher.
type Metrics struct {
	SubscribersChecked prometheus.Counter
	AlertsSent         prometheus.Counter
	SubscribersSkipped *prometheus.CounterVec // label: reason
	DispatchErrors     prometheus.Counter
	DispatchRuns       prometheus.Counter
	RunDuration        prometheus.Histogram
}

// NewMetrics creates and registers all dispatch metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SubscribersChecked,
		m.AlertsSent,
		m.SubscribersSkipped,
		m.DispatchErrors,
		m.DispatchRuns,
		m.RunDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SubscribersChecked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_alerts",
			Name:      "subscribers_checked_total",
			Help:      "Total subscribers examined by dispatch runs.",
		}),
		AlertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_alerts",
			Name:      "alerts_sent_total",
			Help:      "Total alert messages successfully delivered.",
		}),
		SubscribersSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_alerts",
			Name:      "subscribers_skipped_total",
			Help:      "Subscribers skipped without error, by reason.",
		}, []string{"reason"}),
		DispatchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_alerts",
			Name:      "dispatch_errors_total",
			Help:      "Per-subscriber failures during dispatch runs.",
		}),
		DispatchRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_alerts",
			Name:      "dispatch_runs_total",
			Help:      "Total dispatch runs started.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_alerts",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete dispatch run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}
