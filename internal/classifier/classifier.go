// Package classifier runs one model over arbitrarily long text: segment,
// infer in one batch, normalize labels and aggregate.
package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/jonesrussell/north-cloud/sentiment/internal/domain"
	"github.com/jonesrussell/north-cloud/sentiment/internal/segmenter"
)

// Backend is the inference capability a model adapter provides.
type Backend interface {
	segmenter.TokenCounter
	// Infer returns one prediction per input, in input order.
	Infer(ctx context.Context, inputs []string) ([]domain.RawPrediction, error)
}

// ConcurrencySafe is implemented by backends that tolerate concurrent calls.
// Backends without it are serialized per Classifier.
type ConcurrencySafe interface {
	ConcurrencySafe() bool
}

var defaultSplitter = sync.OnceValues(segmenter.NewPunktSplitter)

// Option configures a Classifier.
type Option func(*options)

type options struct {
	splitter    segmenter.SentenceSplitter
	aggregation Aggregation
}

// WithSplitter replaces the default Punkt sentence splitter.
func WithSplitter(s segmenter.SentenceSplitter) Option {
	return func(o *options) { o.splitter = s }
}

// WithAggregation selects the aggregation strategy.
func WithAggregation(a Aggregation) Option {
	return func(o *options) { o.aggregation = a }
}

// Outcome is a classification with the per-segment detail behind it.
type Outcome struct {
	Result      domain.ModelResult
	Predictions []domain.SegmentPrediction
	Oversized   int
}

// Classifier classifies text with a single model.
type Classifier struct {
	spec        domain.ModelSpec
	backend     Backend
	segmenter   *segmenter.Segmenter
	normalizer  Normalizer
	aggregation Aggregation
	fingerprint string
	// mu is nil when the backend is concurrency safe.
	mu *sync.Mutex
}

// New builds a Classifier for spec backed by backend.
func New(spec domain.ModelSpec, backend Backend, opts ...Option) (*Classifier, error) {
	if backend == nil {
		return nil, fmt.Errorf("model %q: nil backend", spec.ID)
	}
	spec = spec.WithDefaults()

	o := options{aggregation: AggregationMeanConfidence}
	for _, opt := range opts {
		opt(&o)
	}
	if o.splitter == nil {
		punkt, err := defaultSplitter()
		if err != nil {
			return nil, err
		}
		o.splitter = punkt
	}

	seg, err := segmenter.New(o.splitter, backend, spec.MaxLength, segmenter.WithReservedTokens(spec.ReservedTokens))
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", spec.ID, err)
	}

	c := &Classifier{
		spec:        spec,
		backend:     backend,
		segmenter:   seg,
		normalizer:  NewNormalizer(spec.ID, spec.LabelMap),
		aggregation: o.aggregation,
		fingerprint: fingerprint(spec, o.aggregation, o.splitter),
	}
	if cs, ok := backend.(ConcurrencySafe); !ok || !cs.ConcurrencySafe() {
		c.mu = &sync.Mutex{}
	}
	return c, nil
}

// Spec returns the model spec with defaults applied.
func (c *Classifier) Spec() domain.ModelSpec {
	return c.spec
}

// Aggregation returns the configured strategy.
func (c *Classifier) Aggregation() Aggregation {
	return c.aggregation
}

// Fingerprint identifies the settings that decide this classifier's
// results: aggregation strategy, token budget, label map and splitter
// language. Results are comparable only between equal fingerprints.
func (c *Classifier) Fingerprint() string {
	return c.fingerprint
}

// languageSplitter is implemented by splitters backed by a named model.
type languageSplitter interface {
	Language() string
}

func fingerprint(spec domain.ModelSpec, agg Aggregation, splitter segmenter.SentenceSplitter) string {
	language := "custom"
	if ls, ok := splitter.(languageSplitter); ok {
		language = ls.Language()
	}
	sum := sha256.Sum256(fmt.Appendf(nil, "%d|%d|%s|%s",
		spec.MaxLength, spec.ReservedTokens, language, spec.LabelMap))
	return agg.String() + "-" + hex.EncodeToString(sum[:8])
}

// Classify returns the aggregated label and score for text.
func (c *Classifier) Classify(ctx context.Context, text string) (domain.ModelResult, error) {
	out, err := c.ClassifyDetailed(ctx, text)
	if err != nil {
		return domain.ModelResult{}, err
	}
	return out.Result, nil
}

// ClassifyDetailed is Classify plus the normalized segment predictions.
func (c *Classifier) ClassifyDetailed(ctx context.Context, text string) (Outcome, error) {
	if c.mu != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
	}

	segments, err := c.segmenter.Split(ctx, text)
	if err != nil {
		return Outcome{}, c.inferenceError(err)
	}
	if len(segments) == 0 {
		return Outcome{}, domain.ErrEmptyText
	}

	inputs := make([]string, len(segments))
	oversized := 0
	for i, s := range segments {
		inputs[i] = s.Text
		if s.Oversized {
			oversized++
		}
	}

	raw, err := c.backend.Infer(ctx, inputs)
	if err != nil {
		return Outcome{}, c.inferenceError(err)
	}
	if len(raw) != len(segments) {
		return Outcome{}, c.inferenceError(fmt.Errorf("%w: sent %d, got %d",
			domain.ErrPredictionCount, len(segments), len(raw)))
	}

	preds := make([]domain.SegmentPrediction, len(raw))
	for i, r := range raw {
		label, normErr := c.normalizer.Normalize(r.Label)
		if normErr != nil {
			return Outcome{}, normErr
		}
		preds[i] = domain.SegmentPrediction{Label: label, Score: r.Score}
	}

	label, score := Aggregate(c.aggregation, preds)
	return Outcome{
		Result:      domain.ModelResult{Label: label, Score: score, Segments: len(preds)},
		Predictions: preds,
		Oversized:   oversized,
	}, nil
}

func (c *Classifier) inferenceError(err error) error {
	var infErr *domain.InferenceError
	if errors.As(err, &infErr) {
		return err
	}
	return &domain.InferenceError{ModelID: c.spec.ID, Err: err}
}
