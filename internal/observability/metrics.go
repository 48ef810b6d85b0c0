package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chapter_geocoder"

// Metrics holds the Prometheus counters, histograms, and gauges for a geocoding run.
type Metrics struct {
	RecordsProcessed *prometheus.CounterVec // labels: outcome={cache,override,resolved,not_found,missing_data,error}
	PipelineRunning  prometheus.Gauge
	RunDuration      prometheus.Histogram

	// Provider metrics.
	ProviderRequests *prometheus.CounterVec   // labels: provider, outcome={hits,empty,http_error,error}
	ProviderDuration *prometheus.HistogramVec // labels: provider

	// Resolution cache metrics.
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss}
	CacheEntries prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RecordsProcessed,
		m.PipelineRunning,
		m.RunDuration,
		m.ProviderRequests,
		m.ProviderDuration,
		m.CacheLookups,
		m.CacheEntries,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_processed_total",
			Help:      "Input records processed, by resolution outcome.",
		}, []string{"outcome"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a batch run is active, 0 otherwise.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete batch run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Geocoding provider requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Geocoding provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Resolution cache lookups by result.",
		}, []string{"result"}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Entries in the resolution cache.",
		}),
	}
}
