package domain

import "maps"

// DefaultMaxLength is the token budget used when a model does not declare one.
const DefaultMaxLength = 512

// DefaultReservedTokens leaves room for the model's special tokens.
const DefaultReservedTokens = 2

// Segment is a run of whole, contiguous sentences sized for one inference call.
type Segment struct {
	Index      int
	Text       string
	Sentences  []string
	TokenCount int
	// Oversized marks a single sentence that alone exceeds the budget.
	Oversized bool
}

// RawPrediction is the backend's top label for one segment, before mapping.
type RawPrediction struct {
	Label string
	Score float64
}

// SegmentPrediction is a segment prediction after label normalization.
type SegmentPrediction struct {
	Label Label
	Score float64
}

// ModelResult is one model's aggregated verdict on a text.
type ModelResult struct {
	Label    Label   `json:"label"`
	Score    float64 `json:"score"`
	Segments int     `json:"segments"`
}

// ClassificationRecord holds every model's result for one text.
type ClassificationRecord struct {
	Text    string
	results map[string]ModelResult
}

// NewClassificationRecord copies results so the record cannot be mutated
// through the caller's map.
func NewClassificationRecord(text string, results map[string]ModelResult) ClassificationRecord {
	return ClassificationRecord{Text: text, results: maps.Clone(results)}
}

// Result returns the result of modelID, if present.
func (r ClassificationRecord) Result(modelID string) (ModelResult, bool) {
	res, ok := r.results[modelID]
	return res, ok
}

// Results returns a copy of all results keyed by model ID.
func (r ClassificationRecord) Results() map[string]ModelResult {
	return maps.Clone(r.results)
}

// ModelSpec describes a registered model.
type ModelSpec struct {
	ID   string
	Task string
	// LabelMap must cover every label the model can emit.
	LabelMap  LabelMap
	MaxLength int
	// ReservedTokens, when zero, uses DefaultReservedTokens.
	ReservedTokens int
}

// WithDefaults returns spec with zero sizing fields filled in.
func (s ModelSpec) WithDefaults() ModelSpec {
	if s.MaxLength <= 0 {
		s.MaxLength = DefaultMaxLength
	}
	if s.ReservedTokens <= 0 {
		s.ReservedTokens = DefaultReservedTokens
	}
	return s
}

// BenchmarkMetrics compares one model's predictions with ground truth.
type BenchmarkMetrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Support   int     `json:"support"`
}
