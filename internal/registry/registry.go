// Package registry owns the set of loaded models and orchestrates
// classification of texts across all of them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/north-cloud/sentiment/internal/classifier"
	"github.com/jonesrussell/north-cloud/sentiment/internal/domain"
	"github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/logger"
)

// ErrFrozen is returned by Register once the registry serves traffic.
var ErrFrozen = errors.New("registry is frozen")

const defaultConcurrency = 4

// ResultCache memoises results per model variant and text. variant is the
// classifier's Fingerprint, so results produced under different settings
// are never served for each other.
type ResultCache interface {
	Get(ctx context.Context, modelID, variant, text string) (domain.ModelResult, bool, error)
	Set(ctx context.Context, modelID, variant, text string, res domain.ModelResult) error
}

// Recorder receives classification telemetry.
type Recorder interface {
	RecordClassification(ctx context.Context, modelID string, res domain.ModelResult, oversized int, d time.Duration)
	RecordClassificationFailure(ctx context.Context, modelID string, err error)
	RecordCacheLookup(ctx context.Context, modelID string, hit bool)
	RecordBatch(ctx context.Context, size int, d time.Duration)
	SetBatchProgress(done, total int)
}

// ProgressFunc is called after each text of a batch completes.
type ProgressFunc func(done, total int)

// BatchError reports the text that failed a batch.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("text %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Option configures a Registry.
type Option func(*Registry)

// WithConcurrency bounds how many texts a batch classifies at once.
func WithConcurrency(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithProgress sets a batch progress callback. It may be called from
// several goroutines, but never concurrently.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Registry) { r.progress = fn }
}

// WithCache enables result memoisation.
func WithCache(c ResultCache) Option {
	return func(r *Registry) { r.cache = c }
}

// WithRecorder enables metrics.
func WithRecorder(rec Recorder) Option {
	return func(r *Registry) { r.recorder = rec }
}

// WithTracer replaces the global otel tracer.
func WithTracer(t trace.Tracer) Option {
	return func(r *Registry) { r.tracer = t }
}

// WithClassifierOptions applies opts to every classifier built by Register.
func WithClassifierOptions(opts ...classifier.Option) Option {
	return func(r *Registry) { r.classifierOpts = append(r.classifierOpts, opts...) }
}

// Registry maps model IDs to classifiers. Models are registered during
// startup; after Freeze it is read-only and safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	frozen atomic.Bool
	order  []string
	models map[string]*classifier.Classifier

	logger         logger.Logger
	concurrency    int
	progress       ProgressFunc
	cache          ResultCache
	recorder       Recorder
	tracer         trace.Tracer
	classifierOpts []classifier.Option
}

// New creates an empty, unfrozen Registry.
func New(log logger.Logger, opts ...Option) *Registry {
	r := &Registry{
		models:      make(map[string]*classifier.Classifier),
		logger:      log,
		concurrency: defaultConcurrency,
		tracer:      otel.Tracer("sentiment/registry"),
	}
	if r.logger == nil {
		r.logger = logger.NewNop()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register builds a classifier for spec and adds it under spec.ID.
func (r *Registry) Register(spec domain.ModelSpec, backend classifier.Backend) error {
	if r.frozen.Load() {
		return ErrFrozen
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		return ErrFrozen
	}
	if _, exists := r.models[spec.ID]; exists {
		return &domain.DuplicateModelError{ModelID: spec.ID}
	}

	c, err := classifier.New(spec, backend, r.classifierOpts...)
	if err != nil {
		return fmt.Errorf("register %q: %w", spec.ID, err)
	}

	r.models[spec.ID] = c
	r.order = append(r.order, spec.ID)

	spec = c.Spec()
	r.logger.Info("Model registered",
		logger.String("model", spec.ID),
		logger.String("task", spec.Task),
		logger.Int("max_length", spec.MaxLength),
		logger.Int("labels", spec.LabelMap.Len()),
		logger.String("aggregation", c.Aggregation().String()),
		logger.String("variant", c.Fingerprint()),
	)
	return nil
}

// Freeze ends registration.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen.Store(true)
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// Models returns model IDs in registration order.
func (r *Registry) Models() []string {
	if !r.frozen.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Spec returns the registered spec for modelID.
func (r *Registry) Spec(modelID string) (domain.ModelSpec, bool) {
	c, ok := r.lookup(modelID)
	if !ok {
		return domain.ModelSpec{}, false
	}
	return c.Spec(), true
}

func (r *Registry) lookup(modelID string) (*classifier.Classifier, bool) {
	if !r.frozen.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	c, ok := r.models[modelID]
	return c, ok
}

// ClassifyOne classifies text with a single model.
func (r *Registry) ClassifyOne(ctx context.Context, modelID, text string) (domain.ModelResult, error) {
	c, ok := r.lookup(modelID)
	if !ok {
		return domain.ModelResult{}, &domain.UnknownModelError{ModelID: modelID}
	}

	ctx, span := r.tracer.Start(ctx, "registry.ClassifyOne", trace.WithAttributes(
		attribute.String("model", modelID),
		attribute.Int("text_length", len(text)),
	))
	defer span.End()

	log := logger.FromContextOr(ctx, r.logger)
	variant := c.Fingerprint()
	if res, hit := r.cached(ctx, log, modelID, variant, text); hit {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return res, nil
	}

	start := time.Now()
	out, err := c.ClassifyDetailed(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if r.recorder != nil {
			r.recorder.RecordClassificationFailure(ctx, modelID, err)
		}
		return domain.ModelResult{}, err
	}

	span.SetAttributes(
		attribute.String("label", string(out.Result.Label)),
		attribute.Float64("score", out.Result.Score),
		attribute.Int("segments", out.Result.Segments),
	)
	if r.recorder != nil {
		r.recorder.RecordClassification(ctx, modelID, out.Result, out.Oversized, time.Since(start))
	}
	if out.Oversized > 0 {
		log.Debug("Oversized segments sent to backend",
			logger.String("model", modelID),
			logger.Int("oversized", out.Oversized),
		)
	}

	r.store(ctx, log, modelID, variant, text, out.Result)
	return out.Result, nil
}

// cached consults the cache. Failures are logged and treated as a miss.
func (r *Registry) cached(ctx context.Context, log logger.Logger, modelID, variant, text string) (domain.ModelResult, bool) {
	if r.cache == nil {
		return domain.ModelResult{}, false
	}
	res, hit, err := r.cache.Get(ctx, modelID, variant, text)
	if err != nil {
		log.Warn("Result cache lookup failed", logger.String("model", modelID), logger.Error(err))
		return domain.ModelResult{}, false
	}
	if r.recorder != nil {
		r.recorder.RecordCacheLookup(ctx, modelID, hit)
	}
	return res, hit
}

func (r *Registry) store(ctx context.Context, log logger.Logger, modelID, variant, text string, res domain.ModelResult) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, modelID, variant, text, res); err != nil {
		log.Warn("Result cache store failed", logger.String("model", modelID), logger.Error(err))
	}
}

// ClassifyAll runs text through every model in registration order.
func (r *Registry) ClassifyAll(ctx context.Context, text string) (domain.ClassificationRecord, error) {
	models := r.Models()
	results := make(map[string]domain.ModelResult, len(models))
	for _, id := range models {
		res, err := r.ClassifyOne(ctx, id, text)
		if err != nil {
			return domain.ClassificationRecord{}, fmt.Errorf("model %q: %w", id, err)
		}
		results[id] = res
	}
	return domain.NewClassificationRecord(text, results), nil
}

// ClassifyBatch classifies every text with every model. Texts run in
// parallel up to the configured concurrency; records keep input order.
// The first failure cancels the remaining work.
func (r *Registry) ClassifyBatch(ctx context.Context, texts []string) ([]domain.ClassificationRecord, error) {
	total := len(texts)
	records := make([]domain.ClassificationRecord, total)
	if total == 0 {
		return records, nil
	}

	start := time.Now()
	r.logger.Info("Batch classification started",
		logger.Int("texts", total),
		logger.Int("models", len(r.Models())),
		logger.Int("concurrency", r.concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	var (
		progressMu sync.Mutex
		done       int
	)
	report := func() {
		progressMu.Lock()
		defer progressMu.Unlock()
		done++
		if r.progress != nil {
			r.progress(done, total)
		}
		if r.recorder != nil {
			r.recorder.SetBatchProgress(done, total)
		}
	}

	for i, text := range texts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rec, err := r.ClassifyAll(logger.WithFields(gctx, r.logger, logger.Int("text_index", i)), text)
			if err != nil {
				return &BatchError{Index: i, Err: err}
			}
			records[i] = rec
			report()
			return nil
		})
	}

	err := g.Wait()
	if r.recorder != nil {
		r.recorder.RecordBatch(ctx, total, time.Since(start))
	}
	if err != nil {
		r.logger.Error("Batch classification failed", logger.Error(err), logger.Int("completed", done))
		return nil, err
	}

	r.logger.Info("Batch classification finished",
		logger.Int("texts", total),
		logger.Duration("duration", time.Since(start)),
	)
	return records, nil
}
