package explain

import (
	"encoding/json"
	"math"
	"slices"

	"github.com/kailas-cloud/vecquery/internal/domain/distance"
)

// DefaultTopDimensions is used when no positive top-N is requested.
const DefaultTopDimensions = 10

// ScoreExplanation lists the dimensions that contributed most to a score,
// ordered by descending absolute contribution.
type ScoreExplanation struct {
	topDimensions []DimensionContribution
}

// New ranks contributions by descending absolute value and keeps the first topN.
// Ties keep their original relative order. The input slice is not modified.
func New(contributions []DimensionContribution, topN int) ScoreExplanation {
	ranked := slices.Clone(contributions)
	slices.SortStableFunc(ranked, func(a, b DimensionContribution) int {
		return distance.CompareScores(abs32(b.Contribution), abs32(a.Contribution))
	})
	if topN < 0 {
		topN = 0
	}
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ScoreExplanation{topDimensions: ranked}
}

// Compute decomposes the score between v1 (query) and v2 (stored) for metric
// and keeps the topN strongest dimensions (DefaultTopDimensions when topN <= 0).
func Compute(metric distance.Distance, v1, v2 []float32, topN int) ScoreExplanation {
	if topN <= 0 {
		topN = DefaultTopDimensions
	}
	return New(Contributions(metric, v1, v2), topN)
}

// TopDimensions returns a copy of the ranked contributions.
func (e ScoreExplanation) TopDimensions() []DimensionContribution {
	return slices.Clone(e.topDimensions)
}

// Len returns the number of ranked dimensions.
func (e ScoreExplanation) Len() int { return len(e.topDimensions) }

func abs32(f float32) float32 {
	return float32(math.Abs(float64(f)))
}

// MarshalJSON renders the explanation as {"top_dimensions": [...]}.
func (e ScoreExplanation) MarshalJSON() ([]byte, error) {
	dims := e.topDimensions
	if dims == nil {
		dims = []DimensionContribution{}
	}
	return json.Marshal(struct {
		TopDimensions []DimensionContribution `json:"top_dimensions"`
	}{TopDimensions: dims})
}
