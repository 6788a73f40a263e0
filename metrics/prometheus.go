// Package metrics provides Prometheus metrics export for the mind-map
// construction pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusExporter exports pipeline metrics in Prometheus format.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Per-stage pipeline metrics (candidate extraction, concept extraction,
	// embedding, merge, layout, group build).
	stageLatency  *prometheus.HistogramVec
	stageRequests *prometheus.CounterVec
	pipelineRuns  prometheus.Gauge

	// LLM and embedding provider metrics.
	llmLatency       *prometheus.HistogramVec
	llmTokensUsed    *prometheus.CounterVec
	embeddingLatency *prometheus.HistogramVec

	// Store metrics.
	storeOps    *prometheus.CounterVec
	storeErrors *prometheus.CounterVec

	// Output-shape metrics.
	conceptsExtracted prometheus.Histogram
	groupsProduced    prometheus.Histogram
}

// Config configures the Prometheus exporter.
type Config struct {
	Registry       *prometheus.Registry
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.stageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mindmapforge",
			Subsystem: "pipeline",
			Name:      "stage_latency_seconds",
			Help:      "Latency of each pipeline stage in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"stage"},
	)

	e.stageRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mindmapforge",
			Subsystem: "pipeline",
			Name:      "stage_requests_total",
			Help:      "Total number of pipeline stage invocations",
		},
		[]string{"stage", "status"},
	)

	e.pipelineRuns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mindmapforge",
			Subsystem: "pipeline",
			Name:      "runs_in_flight",
			Help:      "Number of vectorize requests currently being processed",
		},
	)

	e.llmLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mindmapforge",
			Subsystem: "llm",
			Name:      "request_latency_seconds",
			Help:      "Concept-extraction LLM call latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"provider"},
	)

	e.llmTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mindmapforge",
			Subsystem: "llm",
			Name:      "chunks_processed_total",
			Help:      "Total number of concept extraction calls (one per pipeline run, however many chunks it sends)",
		},
		[]string{"provider"},
	)

	e.embeddingLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mindmapforge",
			Subsystem: "embedding",
			Name:      "batch_latency_seconds",
			Help:      "Embedding batch request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"provider"},
	)

	e.storeOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mindmapforge",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of store operations",
		},
		[]string{"operation"},
	)

	e.storeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mindmapforge",
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Total number of store operation failures",
		},
		[]string{"operation"},
	)

	e.conceptsExtracted = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mindmapforge",
			Subsystem: "pipeline",
			Name:      "concepts_extracted",
			Help:      "Number of concepts extracted per run, before merging",
			Buckets:   []float64{1, 5, 10, 15, 25, 50, 100},
		},
	)

	e.groupsProduced = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mindmapforge",
			Subsystem: "pipeline",
			Name:      "groups_produced",
			Help:      "Number of concept groups produced per run, after merging",
			Buckets:   []float64{1, 3, 5, 10, 20, 40},
		},
	)

	registry.MustRegister(
		e.stageLatency,
		e.stageRequests,
		e.pipelineRuns,
		e.llmLatency,
		e.llmTokensUsed,
		e.embeddingLatency,
		e.storeOps,
		e.storeErrors,
		e.conceptsExtracted,
		e.groupsProduced,
	)

	return e
}

// RecordStage records one invocation of a named pipeline stage.
func (e *PrometheusExporter) RecordStage(stage string, latency time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	e.stageRequests.WithLabelValues(stage, status).Inc()
	e.stageLatency.WithLabelValues(stage).Observe(latency.Seconds())
}

// IncRunsInFlight marks the start of a vectorize request.
func (e *PrometheusExporter) IncRunsInFlight() { e.pipelineRuns.Inc() }

// DecRunsInFlight marks the completion of a vectorize request.
func (e *PrometheusExporter) DecRunsInFlight() { e.pipelineRuns.Dec() }

// RecordLLMCall records one concept-extraction call, which may span
// several per-chunk LLM requests.
func (e *PrometheusExporter) RecordLLMCall(provider string, latency time.Duration) {
	e.llmTokensUsed.WithLabelValues(provider).Inc()
	e.llmLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

// RecordEmbeddingBatch records one embedding batch call.
func (e *PrometheusExporter) RecordEmbeddingBatch(provider string, latency time.Duration) {
	e.embeddingLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

// RecordStoreOp records a store operation, and whether it failed.
func (e *PrometheusExporter) RecordStoreOp(operation string, err error) {
	e.storeOps.WithLabelValues(operation).Inc()
	if err != nil {
		e.storeErrors.WithLabelValues(operation).Inc()
	}
}

// RecordRunShape records the size of a completed pipeline run's output.
func (e *PrometheusExporter) RecordRunShape(conceptCount, groupCount int) {
	e.conceptsExtracted.Observe(float64(conceptCount))
	e.groupsProduced.Observe(float64(groupCount))
}

// Handler returns the HTTP handler serving metrics in Prometheus text
// exposition format.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (e *PrometheusExporter) Registry() *prometheus.Registry {
	return e.registry
}
