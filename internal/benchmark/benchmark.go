// Package benchmark scores model predictions against ground-truth labels.
package benchmark

import (
	"github.com/jonesrussell/north-cloud/sentiment/internal/domain"
)

// PositiveClass is the class precision and recall are computed for.
const PositiveClass = domain.LabelPositive

type confusion struct {
	matches, truePos, falsePos, falseNeg int
}

// Evaluate computes accuracy, precision and recall for each model. A record
// without a result for a model counts as a miss and never as a positive.
// Metrics with a zero denominator are 0.
func Evaluate(modelIDs []string, records []domain.ClassificationRecord, truth []domain.Label) (map[string]domain.BenchmarkMetrics, error) {
	if len(records) != len(truth) {
		return nil, &domain.LengthMismatchError{Records: len(records), Labels: len(truth)}
	}

	out := make(map[string]domain.BenchmarkMetrics, len(modelIDs))
	for _, id := range modelIDs {
		var c confusion
		for i, rec := range records {
			want := truth[i]
			res, ok := rec.Result(id)

			predictedPos := ok && res.Label == PositiveClass
			if ok && res.Label == want {
				c.matches++
			}
			switch {
			case predictedPos && want == PositiveClass:
				c.truePos++
			case predictedPos:
				c.falsePos++
			case want == PositiveClass:
				c.falseNeg++
			}
		}

		out[id] = domain.BenchmarkMetrics{
			Accuracy:  ratio(c.matches, len(records)),
			Precision: ratio(c.truePos, c.truePos+c.falsePos),
			Recall:    ratio(c.truePos, c.truePos+c.falseNeg),
			Support:   len(records),
		}
	}
	return out, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
