package classifier

import "github.com/jonesrussell/north-cloud/sentiment/internal/domain"

// Normalizer maps one model's raw labels to canonical labels.
type Normalizer struct {
	modelID string
	labels  domain.LabelMap
}

// NewNormalizer returns a Normalizer for modelID.
func NewNormalizer(modelID string, labels domain.LabelMap) Normalizer {
	return Normalizer{modelID: modelID, labels: labels}
}

// Normalize returns the canonical label for raw. Unknown labels are an
// error; there is no fallback label.
func (n Normalizer) Normalize(raw string) (domain.Label, error) {
	label, ok := n.labels.Lookup(raw)
	if !ok {
		return "", &domain.UnmappedLabelError{ModelID: n.modelID, Label: raw}
	}
	return label, nil
}
