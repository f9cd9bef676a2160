// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	SnapshotsFetched  *prometheus.CounterVec
	SnapshotsStored   *prometheus.CounterVec
	SnapshotsSkipped  *prometheus.CounterVec
	FetchErrors       *prometheus.CounterVec
	FallbackActivated prometheus.Counter
	FetchLatency      *prometheus.HistogramVec

	// Cycle metrics
	CyclesTotal         *prometheus.CounterVec
	CycleDuration       prometheus.Histogram
	ConsecutiveFailures prometheus.Gauge
	CooldownsTotal      prometheus.Counter

	// Detection metrics
	ItemsScanned         prometheus.Counter
	ItemsSkipped         prometheus.Counter
	OpportunitiesFound   prometheus.Gauge
	SuperOpportunities   prometheus.Gauge
	OpportunitiesByGroup *prometheus.GaugeVec

	// Cache metrics
	CacheAgeSeconds prometheus.Gauge
	CatalogSize     prometheus.Gauge

	// Database metrics
	RowsPruned *prometheus.CounterVec

	// Stream metrics
	StreamSubscribers prometheus.Gauge

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "ge_market_watch"
	}

	return &Metrics{
		// Ingestion metrics
		SnapshotsFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "snapshots_fetched_total",
			Help:      "Total number of item snapshots fetched by granularity",
		}, []string{"granularity"}),
		SnapshotsStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "snapshots_stored_total",
			Help:      "Total number of snapshots appended to history",
		}, []string{"granularity"}),
		SnapshotsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "snapshots_skipped_total",
			Help:      "Total number of duplicate snapshots skipped on insert",
		}, []string{"granularity"}),
		FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "fetch_errors_total",
			Help:      "Total number of upstream fetch errors by source",
		}, []string{"source"}),
		FallbackActivated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "fallback_activated_total",
			Help:      "Total number of cycles served by the secondary source",
		}),
		FetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "fetch_latency_seconds",
			Help:      "Upstream fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),

		// Cycle metrics
		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "cycles_total",
			Help:      "Total number of cycles by status",
		}, []string{"status"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "cycle_duration_seconds",
			Help:      "Full cycle duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		ConsecutiveFailures: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "consecutive_failures",
			Help:      "Current consecutive cycle failure count",
		}),
		CooldownsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "cooldowns_total",
			Help:      "Total number of long cooldowns after repeated failures",
		}),

		// Detection metrics
		ItemsScanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "items_scanned_total",
			Help:      "Total number of items considered for detection",
		}),
		ItemsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "items_skipped_total",
			Help:      "Total number of items skipped for insufficient data",
		}),
		OpportunitiesFound: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "opportunities",
			Help:      "Opportunities found in the latest cycle",
		}),
		SuperOpportunities: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "super_opportunities",
			Help:      "Super-flagged opportunities in the latest cycle",
		}),
		OpportunitiesByGroup: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "opportunities_by_group",
			Help:      "Opportunities in the latest cycle by tier group",
		}, []string{"group"}),

		// Cache metrics
		CacheAgeSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "age_seconds",
			Help:      "Seconds since the opportunity cache was last replaced",
		}),
		CatalogSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "catalog_items",
			Help:      "Number of items in the metadata catalog",
		}),

		// Database metrics
		RowsPruned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "rows_pruned_total",
			Help:      "Total number of history rows removed by retention",
		}, []string{"granularity"}),

		// Stream metrics
		StreamSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "subscribers",
			Help:      "Current number of websocket subscribers",
		}),

		// Health metrics
		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last successful cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance. Components take a
// *Metrics and fall back to it when none is injected, so a caller-supplied
// instance sees every recording.
var DefaultMetrics = NewMetrics("")

// RecordFetch records an upstream fetch attempt.
func (m *Metrics) RecordFetch(source string, seconds float64, err error) {
	m.FetchLatency.WithLabelValues(source).Observe(seconds)
	if err != nil {
		m.FetchErrors.WithLabelValues(source).Inc()
	}
}

// RecordIngest records one cycle's ingestion outcome.
func (m *Metrics) RecordIngest(granularity string, fetched, stored, skipped int) {
	m.SnapshotsFetched.WithLabelValues(granularity).Add(float64(fetched))
	m.SnapshotsStored.WithLabelValues(granularity).Add(float64(stored))
	m.SnapshotsSkipped.WithLabelValues(granularity).Add(float64(skipped))
}

// RecordCycle records a completed or failed cycle.
func (m *Metrics) RecordCycle(status string, durationSeconds float64) {
	m.CyclesTotal.WithLabelValues(status).Inc()
	m.CycleDuration.Observe(durationSeconds)
}
