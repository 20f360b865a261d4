// Package telemetry provides Prometheus metrics and OpenTelemetry tracing
// for sentiment classification.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonesrussell/north-cloud/sentiment/internal/domain"
)

const (
	serviceName = "sentiment"
	namespace   = "sentiment"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	ClassificationsTotal *prometheus.CounterVec
	FailuresTotal        *prometheus.CounterVec
	ClassifyDuration     *prometheus.HistogramVec
	SegmentsPerText      *prometheus.HistogramVec
	OversizedSegments    *prometheus.CounterVec
	CacheLookups         *prometheus.CounterVec

	BatchSize     prometheus.Histogram
	BatchDuration prometheus.Histogram
	BatchProgress prometheus.Gauge

	BackendRequests *prometheus.CounterVec
	BreakerState    *prometheus.GaugeVec
}

// Provider bundles the tracer and metrics with the registry they live in.
type Provider struct {
	Tracer   trace.Tracer
	Metrics  *Metrics
	registry *prometheus.Registry
}

// NewProvider registers all metrics on a fresh registry, so providers never
// collide in tests. Process and Go runtime collectors are included.
func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Provider{
		Tracer:   otel.Tracer(serviceName),
		Metrics:  newMetrics(promauto.With(reg)),
		registry: reg,
	}
}

// Registry exposes the registry, mainly for tests.
func (p *Provider) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves /metrics from the provider's registry.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func newMetrics(f promauto.Factory) *Metrics {
	return &Metrics{
		ClassificationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Texts classified, by model and winning label",
		}, []string{"model", "label"}),

		FailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classification_failures_total",
			Help:      "Failed classifications, by model and error kind",
		}, []string{"model", "error_kind"}),

		ClassifyDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classify_duration_seconds",
			Help:      "Time to segment, infer and aggregate one text",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"model"}),

		SegmentsPerText: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "segments_per_text",
			Help:      "Segments produced per classified text",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		}, []string{"model"}),

		OversizedSegments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oversized_segments_total",
			Help:      "Single sentences that exceeded the model token budget",
		}, []string{"model"}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups, by model and outcome",
		}, []string{"model", "outcome"}),

		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Texts per batch classification",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 500, 1000, 5000},
		}),

		BatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of a batch classification",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
		}),

		BatchProgress: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_progress_ratio",
			Help:      "Completed fraction of the batch currently running",
		}),

		BackendRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Requests to inference backends, by model, endpoint and outcome",
		}, []string{"model", "endpoint", "outcome"}),

		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_circuit_state",
			Help:      "Circuit breaker state per model (0 closed, 1 open, 2 half-open)",
		}, []string{"model"}),
	}
}

// RecordClassification records one successful classification.
func (p *Provider) RecordClassification(_ context.Context, modelID string, res domain.ModelResult, oversized int, d time.Duration) {
	p.Metrics.ClassificationsTotal.WithLabelValues(modelID, string(res.Label)).Inc()
	p.Metrics.ClassifyDuration.WithLabelValues(modelID).Observe(d.Seconds())
	p.Metrics.SegmentsPerText.WithLabelValues(modelID).Observe(float64(res.Segments))
	if oversized > 0 {
		p.Metrics.OversizedSegments.WithLabelValues(modelID).Add(float64(oversized))
	}
}

// RecordClassificationFailure counts a failure under its error kind.
func (p *Provider) RecordClassificationFailure(_ context.Context, modelID string, err error) {
	p.Metrics.FailuresTotal.WithLabelValues(modelID, ErrorKind(err)).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func (p *Provider) RecordCacheLookup(_ context.Context, modelID string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	p.Metrics.CacheLookups.WithLabelValues(modelID, outcome).Inc()
}

// RecordBatch records a finished batch.
func (p *Provider) RecordBatch(_ context.Context, size int, d time.Duration) {
	p.Metrics.BatchSize.Observe(float64(size))
	p.Metrics.BatchDuration.Observe(d.Seconds())
}

// SetBatchProgress updates the progress gauge.
func (p *Provider) SetBatchProgress(done, total int) {
	if total <= 0 {
		p.Metrics.BatchProgress.Set(0)
		return
	}
	p.Metrics.BatchProgress.Set(float64(done) / float64(total))
}

// RecordBackendRequest counts one request to an inference backend.
func (p *Provider) RecordBackendRequest(modelID, endpoint string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.Metrics.BackendRequests.WithLabelValues(modelID, endpoint, outcome).Inc()
}

// SetBreakerState exports a model's circuit state as a number.
func (p *Provider) SetBreakerState(modelID string, state int) {
	p.Metrics.BreakerState.WithLabelValues(modelID).Set(float64(state))
}

// ErrorKind buckets an error into a low-cardinality metric label.
func ErrorKind(err error) string {
	var (
		unknown  *domain.UnknownModelError
		unmapped *domain.UnmappedLabelError
		infErr   *domain.InferenceError
	)
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.As(err, &unknown):
		return "unknown_model"
	case errors.As(err, &unmapped):
		return "unmapped_label"
	case errors.Is(err, domain.ErrEmptyText):
		return "empty_text"
	case errors.Is(err, domain.ErrPredictionCount):
		return "prediction_count"
	case errors.As(err, &infErr):
		return "inference"
	default:
		return "other"
	}
}
