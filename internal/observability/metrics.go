package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the risk
// assessment core.
type Metrics struct {
	// Upstream provider metrics.
	UpstreamRequests *prometheus.CounterVec // labels: outcome={success,retryable_error,fatal_error}
	UpstreamRetries  prometheus.Counter
	UpstreamDuration prometheus.Histogram

	// Directional scan metrics.
	ScanDuration      prometheus.Histogram
	ScansInFlight     prometheus.Gauge
	DirectionsUnknown prometheus.Counter

	// Geo-cache metrics.
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss,stale}
	CacheEntries prometheus.Gauge

	// Background job metrics.
	PrecacheCells   prometheus.Counter
	PrecacheSkipped prometheus.Counter // quiet-hours ticks skipped entirely
	CleanupDeleted  prometheus.Counter
	CleanupFailures prometheus.Counter

	// Alert publishing.
	AlertsPublished prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UpstreamRequests,
		m.UpstreamRetries,
		m.UpstreamDuration,
		m.ScanDuration,
		m.ScansInFlight,
		m.DirectionsUnknown,
		m.CacheLookups,
		m.CacheEntries,
		m.PrecacheCells,
		m.PrecacheSkipped,
		m.CleanupDeleted,
		m.CleanupFailures,
		m.AlertsPublished,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thunderhead",
			Name:      "upstream_requests_total",
			Help:      "Atmospheric provider fetches by final outcome.",
		}, []string{"outcome"}),
		UpstreamRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "thunderhead",
			Name:      "upstream_retries_total",
			Help:      "Retried provider attempts after a transient failure.",
		}),
		UpstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "thunderhead",
			Name:      "upstream_request_duration_seconds",
			Help:      "Provider fetch duration including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "thunderhead",
			Name:      "scan_duration_seconds",
			Help:      "Duration of a full four-direction scan.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ScansInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "thunderhead",
			Name:      "scans_in_flight",
			Help:      "Directional scans currently running.",
		}),
		DirectionsUnknown: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "thunderhead",
			Name:      "scan_directions_unknown_total",
			Help:      "Directions whose every probe failed, reported as Unknown.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thunderhead",
			Name:      "geocache_lookups_total",
			Help:      "Geo-cache lookups by result.",
		}, []string{"result"}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "thunderhead",
			Name:      "geocache_entries",
			Help:      "Cache entries counted by the most recent stats scan.",
		}),
		PrecacheCells: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "thunderhead",
			Name:      "precache_cells_total",
			Help:      "Grid cells warmed by the precache scheduler.",
		}),
		PrecacheSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "thunderhead",
			Name:      "precache_ticks_skipped_total",
			Help:      "Scheduler ticks skipped due to the quiet-hours window.",
		}),
		CleanupDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "thunderhead",
			Name:      "cleanup_entries_deleted_total",
			Help:      "Expired cache entries removed by the cleanup job.",
		}),
		CleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "thunderhead",
			Name:      "cleanup_failures_total",
			Help:      "Per-entry deletion failures during cleanup.",
		}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "thunderhead",
			Name:      "alerts_published_total",
			Help:      "Risk alerts published to the notification topic.",
		}),
	}
}
