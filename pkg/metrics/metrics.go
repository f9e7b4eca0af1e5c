package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics holds Prometheus instruments for the extraction pipeline.
type PipelineMetrics struct {
	registry *prometheus.Registry

	jobsTotal       *prometheus.CounterVec
	symbolsTotal    *prometheus.CounterVec
	fetchDuration   prometheus.Histogram
	jobDuration     prometheus.Histogram
	symbolsInFlight prometheus.Gauge
	rateLimitWaits  prometheus.Counter
	upstreamRetries prometheus.Counter
	persistFailures *prometheus.CounterVec
}

// New creates a registry with all pipeline instruments registered.
func New() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	jobsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stockpulse",
			Subsystem: "pipeline",
			Name:      "jobs_total",
			Help:      "Total extraction jobs by terminal status.",
		},
		[]string{"status"},
	)
	symbolsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stockpulse",
			Subsystem: "pipeline",
			Name:      "symbols_total",
			Help:      "Total symbols processed by outcome.",
		},
		[]string{"outcome"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stockpulse",
			Subsystem: "pipeline",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream fetch duration per symbol.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	jobDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stockpulse",
			Subsystem: "pipeline",
			Name:      "job_duration_seconds",
			Help:      "End-to-end extraction job duration.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
	symbolsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stockpulse",
			Subsystem: "pipeline",
			Name:      "symbols_in_flight",
			Help:      "Number of symbol fetches currently running.",
		},
	)
	rateLimitWaits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stockpulse",
			Subsystem: "upstream",
			Name:      "rate_limit_waits_total",
			Help:      "Requests that had to wait on the rate budget.",
		},
	)
	upstreamRetries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stockpulse",
			Subsystem: "upstream",
			Name:      "retries_total",
			Help:      "Upstream request retries.",
		},
	)
	persistFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stockpulse",
			Subsystem: "persist",
			Name:      "sink_failures_total",
			Help:      "Persistence sink failures by sink name.",
		},
		[]string{"sink"},
	)

	registry.MustRegister(
		jobsTotal, symbolsTotal, fetchDuration, jobDuration,
		symbolsInFlight, rateLimitWaits, upstreamRetries, persistFailures,
	)

	return &PipelineMetrics{
		registry:        registry,
		jobsTotal:       jobsTotal,
		symbolsTotal:    symbolsTotal,
		fetchDuration:   fetchDuration,
		jobDuration:     jobDuration,
		symbolsInFlight: symbolsInFlight,
		rateLimitWaits:  rateLimitWaits,
		upstreamRetries: upstreamRetries,
		persistFailures: persistFailures,
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) JobFinished(status string, duration time.Duration) {
	m.jobsTotal.WithLabelValues(status).Inc()
	m.jobDuration.Observe(duration.Seconds())
}

func (m *PipelineMetrics) SymbolStarted() {
	m.symbolsInFlight.Inc()
}

func (m *PipelineMetrics) SymbolFinished(outcome string, duration time.Duration) {
	m.symbolsInFlight.Dec()
	m.symbolsTotal.WithLabelValues(outcome).Inc()
	m.fetchDuration.Observe(duration.Seconds())
}

func (m *PipelineMetrics) RateLimitWait() {
	m.rateLimitWaits.Inc()
}

func (m *PipelineMetrics) UpstreamRetry() {
	m.upstreamRetries.Inc()
}

func (m *PipelineMetrics) SinkFailure(sink string) {
	m.persistFailures.WithLabelValues(sink).Inc()
}
