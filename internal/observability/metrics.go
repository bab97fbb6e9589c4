package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the enricher.
type Metrics struct {
	ActionsConsumed prometheus.Counter
	ActionsSkipped  prometheus.Counter
	ReportsProduced prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Enrichment metrics.
	Enrichments        *prometheus.CounterVec // labels: outcome={success,missing_input,transport,...}
	UpsertPaths        *prometheus.CounterVec // labels: path={in_place,replaced}
	EnrichmentDuration prometheus.Histogram

	// Forecast provider metrics.
	ForecastRequests    *prometheus.CounterVec // labels: outcome={success,error,circuit_open}
	ForecastCache       *prometheus.CounterVec // labels: result={hit,miss,expired}
	ForecastAPIDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ActionsConsumed,
		m.ActionsSkipped,
		m.ReportsProduced,
		m.PipelineRunning,
		m.Enrichments,
		m.UpsertPaths,
		m.EnrichmentDuration,
		m.ForecastRequests,
		m.ForecastCache,
		m.ForecastAPIDuration,
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
		ActionsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rain_enricher",
			Name:      "actions_consumed_total",
			Help:      "Total action requests read from the source topic.",
		}),
		ActionsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rain_enricher",
			Name:      "actions_skipped_total",
			Help:      "Action requests skipped as undecodable or addressed to another agent.",
		}),
		ReportsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rain_enricher",
			Name:      "reports_produced_total",
			Help:      "Total completion reports written to the sink topic.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rain_enricher",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		Enrichments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rain_enricher",
			Name:      "enrichments_total",
			Help:      "Enrichment runs by outcome (success or failure kind).",
		}, []string{"outcome"}),
		UpsertPaths: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rain_enricher",
			Name:      "upserts_total",
			Help:      "Committed rain facts by upsert path.",
		}, []string{"path"}),
		EnrichmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rain_enricher",
			Name:      "enrichment_duration_seconds",
			Help:      "Duration of a complete resolve-fetch-aggregate-upsert run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ForecastRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rain_enricher",
			Name:      "forecast_requests_total",
			Help:      "Forecast provider requests by outcome.",
		}, []string{"outcome"}),
		ForecastCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rain_enricher",
			Name:      "forecast_cache_total",
			Help:      "Forecast cache lookups by result.",
		}, []string{"result"}),
		ForecastAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rain_enricher",
			Name:      "forecast_api_duration_seconds",
			Help:      "Forecast provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}
