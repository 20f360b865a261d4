// Package domain defines the sentiment vocabulary, segments, results and
// the errors shared across the classification pipeline.
package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Label is a canonical sentiment label.
type Label string

const (
	LabelPositive Label = "POSITIVE"
	LabelNegative Label = "NEGATIVE"
)

// CanonicalLabels lists every canonical label in tie-break priority order.
var CanonicalLabels = []Label{LabelPositive, LabelNegative}

// IsCanonical reports whether l is part of the canonical vocabulary.
func (l Label) IsCanonical() bool {
	for _, c := range CanonicalLabels {
		if l == c {
			return true
		}
	}
	return false
}

// Lower returns the label as the HTTP API reports it.
func (l Label) Lower() string {
	return strings.ToLower(string(l))
}

// ParseLabel parses a canonical label in any case, ignoring surrounding space.
func ParseLabel(s string) (Label, error) {
	l := Label(strings.ToUpper(strings.TrimSpace(s)))
	if !l.IsCanonical() {
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, s)
	}
	return l, nil
}

// LabelMap maps a model's raw output labels onto canonical labels.
// The zero value maps nothing.
type LabelMap struct {
	m map[string]Label
}

// NewLabelMap copies raw into a LabelMap. Every target must be canonical.
func NewLabelMap(raw map[string]string) (LabelMap, error) {
	m := make(map[string]Label, len(raw))
	for from, to := range raw {
		target, err := ParseLabel(to)
		if err != nil {
			return LabelMap{}, fmt.Errorf("label map entry %q: %w", from, err)
		}
		m[from] = target
	}
	return LabelMap{m: m}, nil
}

// Lookup returns the canonical label for a raw label.
func (lm LabelMap) Lookup(raw string) (Label, bool) {
	l, ok := lm.m[raw]
	return l, ok
}

// Len returns the number of raw labels mapped.
func (lm LabelMap) Len() int {
	return len(lm.m)
}

// String renders the mapping sorted by raw label, for example
// "LABEL_0=NEGATIVE,LABEL_1=POSITIVE". Equal maps render identically.
func (lm LabelMap) String() string {
	var b strings.Builder
	for i, raw := range slices.Sorted(maps.Keys(lm.m)) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(raw)
		b.WriteByte('=')
		b.WriteString(string(lm.m[raw]))
	}
	return b.String()
}
