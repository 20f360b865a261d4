package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyText is returned when a text produces no segments.
	ErrEmptyText = errors.New("text produced no segments")
	// ErrPredictionCount is returned when the backend answers a different
	// number of predictions than segments were sent.
	ErrPredictionCount = errors.New("prediction count does not match segment count")
	// ErrUnknownLabel is returned when a label is outside the canonical vocabulary.
	ErrUnknownLabel = errors.New("unknown canonical label")
)

// UnmappedLabelError reports a raw model label missing from its label map.
type UnmappedLabelError struct {
	ModelID string
	Label   string
}

func (e *UnmappedLabelError) Error() string {
	return fmt.Sprintf("model %q emitted unmapped label %q", e.ModelID, e.Label)
}

// UnknownModelError reports a request for a model that is not registered.
type UnknownModelError struct {
	ModelID string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("model %q not registered", e.ModelID)
}

// DuplicateModelError reports a second registration under the same ID.
type DuplicateModelError struct {
	ModelID string
}

func (e *DuplicateModelError) Error() string {
	return fmt.Sprintf("model %q already registered", e.ModelID)
}

// LengthMismatchError reports records and ground-truth labels of different length.
type LengthMismatchError struct {
	Records int
	Labels  int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("%d records but %d ground-truth labels", e.Records, e.Labels)
}

// InferenceError wraps a backend or tokenizer failure for one model.
type InferenceError struct {
	ModelID string
	Err     error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed for model %q: %v", e.ModelID, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
