package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for text-generation attempts.
const (
	OutcomeSuccess    = "success"
	OutcomeCallError  = "call_error"
	OutcomeParseError = "parse_error"
)

// Metrics holds Prometheus collectors for the coaching annotator.
type Metrics struct {
	registry           *prometheus.Registry
	requestsTotal      prometheus.Counter
	errorsTotal        prometheus.Counter
	videosAnnotated    prometheus.Counter
	probeFailures      prometheus.Counter
	annotationSeconds  prometheus.Histogram
	generationAttempts *prometheus.CounterVec
	fallbacksTotal     *prometheus.CounterVec
	segmentsTriggered  prometheus.Counter
	activeSessions     prometheus.Gauge
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coach_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coach_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		videosAnnotated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coach_videos_annotated_total",
			Help: "Total number of videos whose segments were fully annotated",
		}),
		probeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coach_probe_failures_total",
			Help: "Total number of uploads rejected because the video could not be probed",
		}),
		annotationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "coach_annotation_duration_seconds",
			Help:    "Wall time of one annotation pass (probe, plan, coaching fan-out)",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		generationAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coach_generation_attempts_total",
			Help: "Text generation attempts by kind (coaching, recommendations) and outcome",
		}, []string{"kind", "outcome"}),
		fallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coach_fallbacks_total",
			Help: "Number of times the deterministic fallback content was served, by kind",
		}, []string{"kind"}),
		segmentsTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coach_segments_triggered_total",
			Help: "Segments surfaced by playback sessions",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coach_active_sessions",
			Help: "Number of open playback sessions",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.videosAnnotated,
		m.probeFailures,
		m.annotationSeconds,
		m.generationAttempts,
		m.fallbacksTotal,
		m.segmentsTriggered,
		m.activeSessions,
	)

	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// ObserveAnnotation records one successful annotation pass.
func (m *Metrics) ObserveAnnotation(seconds float64) {
	m.videosAnnotated.Inc()
	m.annotationSeconds.Observe(seconds)
}

// IncProbeFailures increments the probe failure counter.
func (m *Metrics) IncProbeFailures() {
	m.probeFailures.Inc()
}

// ObserveGenerationAttempt counts one call to the text generator.
func (m *Metrics) ObserveGenerationAttempt(kind, outcome string) {
	m.generationAttempts.WithLabelValues(kind, outcome).Inc()
}

// IncFallbacks counts a fallback value served for kind.
func (m *Metrics) IncFallbacks(kind string) {
	m.fallbacksTotal.WithLabelValues(kind).Inc()
}

// AddSegmentsTriggered adds n surfaced segments.
func (m *Metrics) AddSegmentsTriggered(n int) {
	m.segmentsTriggered.Add(float64(n))
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active sessions).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
