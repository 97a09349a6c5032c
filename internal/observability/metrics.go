package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weathernft"

// Metrics holds the Prometheus counters, histograms, and gauges for the engine.
type Metrics struct {
	// Event lifecycle metrics.
	EventsGenerated *prometheus.CounterVec // labels: rarity
	EventOperations *prometheus.CounterVec // labels: operation={generate,capture,boost,deactivate}, outcome={success,rejected,error}
	EventsExpired   prometheus.Counter
	ActiveEvents    prometheus.Gauge
	SweepRunning    prometheus.Gauge

	AdminLogEntries *prometheus.CounterVec // labels: level
	RetrainJobs     *prometheus.CounterVec // labels: status={started,completed,cancelled}
	NFTOperations   *prometheus.CounterVec // labels: operation={mint,transfer}, outcome={success,rejected,error}

	// Dashboard aggregation metrics.
	DashboardUpstream      *prometheus.CounterVec   // labels: source={ai_stats,ai_algorithms,events,blockchain}, outcome={success,error,timeout}
	UpstreamDuration       *prometheus.HistogramVec // labels: source
	DashboardBuildDuration prometheus.Histogram

	// Best-effort sinks: kafka, postgres, redis.
	SinkWrites *prometheus.CounterVec // labels: sink, outcome={success,error}

	// Reverse geocoding of unmonitored coordinates.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,not_found,error}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all engine metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.EventsGenerated,
		m.EventOperations,
		m.EventsExpired,
		m.ActiveEvents,
		m.SweepRunning,
		m.AdminLogEntries,
		m.RetrainJobs,
		m.NFTOperations,
		m.DashboardUpstream,
		m.UpstreamDuration,
		m.DashboardBuildDuration,
		m.SinkWrites,
		m.GeocodeRequests,
		m.GeocodeCache,
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
		EventsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_generated_total",
			Help:      "Weather events created, by rarity tier.",
		}, []string{"rarity"}),
		EventOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_operations_total",
			Help:      "Event operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		EventsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_expired_total",
			Help:      "Events deactivated by the expiry sweep.",
		}),
		ActiveEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_events",
			Help:      "Events currently open for capture.",
		}),
		SweepRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sweep_running",
			Help:      "1 when the expiry sweep scheduler is active, 0 when shut down.",
		}),
		AdminLogEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_log_entries_total",
			Help:      "Admin log entries appended, by level.",
		}, []string{"level"}),
		RetrainJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrain_jobs_total",
			Help:      "Algorithm retraining jobs by status transition.",
		}, []string{"status"}),
		NFTOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nft_operations_total",
			Help:      "Simulated token mints and transfers by outcome.",
		}, []string{"operation", "outcome"}),
		DashboardUpstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_upstream_total",
			Help:      "Dashboard upstream queries by source and outcome.",
		}, []string{"source", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream query duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),
		DashboardBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dashboard_build_duration_seconds",
			Help:      "Duration of a complete dashboard aggregation.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		SinkWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_writes_total",
			Help:      "Best-effort writes to external sinks by sink and outcome.",
		}, []string{"sink", "outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Mapbox reverse geocoding requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
	}
}
