package classifier

import (
	"fmt"
	"strings"

	"github.com/jonesrussell/north-cloud/sentiment/internal/domain"
)

// Aggregation selects how segment predictions combine into one verdict.
type Aggregation int

const (
	// AggregationMeanConfidence picks the label whose segments have the
	// highest mean score.
	AggregationMeanConfidence Aggregation = iota
	// AggregationMajorityVote picks the label predicted for the most
	// segments. Kept for parity with older result sets.
	AggregationMajorityVote
)

func (a Aggregation) String() string {
	switch a {
	case AggregationMeanConfidence:
		return "mean_confidence"
	case AggregationMajorityVote:
		return "majority_vote"
	default:
		return fmt.Sprintf("aggregation(%d)", int(a))
	}
}

// ParseAggregation parses the config spelling of a strategy. Empty means
// the default.
func ParseAggregation(s string) (Aggregation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mean_confidence", "mean":
		return AggregationMeanConfidence, nil
	case "majority_vote", "majority":
		return AggregationMajorityVote, nil
	default:
		return 0, fmt.Errorf("unknown aggregation strategy %q", s)
	}
}

type labelGroup struct {
	sum   float64
	count int
}

func (g labelGroup) mean() float64 {
	if g.count == 0 {
		return 0
	}
	return g.sum / float64(g.count)
}

// Aggregate combines normalized predictions. Ties resolve to the earlier
// label in domain.CanonicalLabels. The returned score is the winning
// group's mean under either strategy.
func Aggregate(strategy Aggregation, preds []domain.SegmentPrediction) (domain.Label, float64) {
	groups := make(map[domain.Label]labelGroup, len(domain.CanonicalLabels))
	for _, p := range preds {
		g := groups[p.Label]
		g.sum += p.Score
		g.count++
		groups[p.Label] = g
	}

	key := func(g labelGroup) float64 { return g.mean() }
	if strategy == AggregationMajorityVote {
		key = func(g labelGroup) float64 { return float64(g.count) }
	}

	best := domain.CanonicalLabels[0]
	bestKey := key(groups[best])
	for _, label := range domain.CanonicalLabels[1:] {
		if k := key(groups[label]); k > bestKey {
			best, bestKey = label, k
		}
	}
	return best, groups[best].mean()
}
