package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// flood-risk analysis pipeline.
type Metrics struct {
	AnalysesStarted   prometheus.Counter
	AnalysesCompleted prometheus.Counter
	AnalysisErrors    prometheus.Counter
	AnalysisDuration  prometheus.Histogram

	// Overlay and routing metrics.
	EdgesSampled      prometheus.Histogram
	SafeNodes         prometheus.Histogram
	EscapeRoutesFound prometheus.Counter
	EscapeRoutesNone  prometheus.Counter

	ReportsPublished prometheus.Counter
	ServiceReady     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.AnalysesStarted,
		m.AnalysesCompleted,
		m.AnalysisErrors,
		m.AnalysisDuration,
		m.EdgesSampled,
		m.SafeNodes,
		m.EscapeRoutesFound,
		m.EscapeRoutesNone,
		m.ReportsPublished,
		m.ServiceReady,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so
// parallel tests never hit "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		AnalysesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "analyses_started_total",
			Help:      "Total analysis requests accepted.",
		}),
		AnalysesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "analyses_completed_total",
			Help:      "Total analyses that produced a risk raster and report.",
		}),
		AnalysisErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "analysis_errors_total",
			Help:      "Total analyses aborted by an error.",
		}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_risk",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of a complete hydrology-risk-routing cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		EdgesSampled: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_risk",
			Name:      "edges_sampled",
			Help:      "Road edges risk-sampled per analysis.",
			Buckets:   []float64{100, 500, 1000, 5000, 10000, 50000, 100000},
		}),
		SafeNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_risk",
			Name:      "safe_nodes",
			Help:      "Nodes labeled safe per analysis.",
			Buckets:   []float64{0, 1, 10, 100, 1000, 10000},
		}),
		EscapeRoutesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "escape_routes_found_total",
			Help:      "Analyses that reached a safe node.",
		}),
		EscapeRoutesNone: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "escape_routes_none_total",
			Help:      "Analyses with no reachable safe node.",
		}),
		ReportsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "reports_published_total",
			Help:      "Situation reports published to the sink topic.",
		}),
		ServiceReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_risk",
			Name:      "service_ready",
			Help:      "1 once the service has completed an analysis.",
		}),
	}
}
