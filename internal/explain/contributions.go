// Package explain decomposes a similarity score into per-dimension
// contributions and ranks them into a bounded explanation.
//
// All functions zip their inputs element-wise: when lengths differ the longer
// vector is silently truncated to the shorter one. Callers supply equal-length
// vectors.
package explain

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/vecquery/internal/domain/distance"
)

// DimensionContribution is how much one coordinate contributed to a score.
type DimensionContribution struct {
	Dimension    int     `json:"dimension"`
	Contribution float32 `json:"contribution"`
}

// DotProductContributions returns v1[i]*v2[i]; they sum to the dot product.
func DotProductContributions(v1, v2 []float32) []DimensionContribution {
	n := min(len(v1), len(v2))
	out := make([]DimensionContribution, n)
	for i := 0; i < n; i++ {
		out[i] = DimensionContribution{Dimension: i, Contribution: v1[i] * v2[i]}
	}
	return out
}

// EuclideanContributions returns -(v1[i]-v2[i])^2; they sum to the negative
// squared Euclidean distance. Values closer to zero mean more similar.
func EuclideanContributions(v1, v2 []float32) []DimensionContribution {
	n := min(len(v1), len(v2))
	out := make([]DimensionContribution, n)
	for i := 0; i < n; i++ {
		diff := v1[i] - v2[i]
		out[i] = DimensionContribution{Dimension: i, Contribution: -(diff * diff)}
	}
	return out
}

// CosineContributions returns v1[i]*v2[i] / (|v1|*|v2|) with norms taken over the
// full vectors. If either norm is zero every contribution is exactly 0.
func CosineContributions(v1, v2 []float32) []DimensionContribution {
	var sq1, sq2 float32
	for _, x := range v1 {
		sq1 += x * x
	}
	for _, x := range v2 {
		sq2 += x * x
	}
	denominator := float32(math.Sqrt(float64(sq1))) * float32(math.Sqrt(float64(sq2)))

	if denominator == 0 {
		out := make([]DimensionContribution, len(v1))
		for i := range out {
			out[i] = DimensionContribution{Dimension: i}
		}
		return out
	}

	n := min(len(v1), len(v2))
	out := make([]DimensionContribution, n)
	for i := 0; i < n; i++ {
		out[i] = DimensionContribution{Dimension: i, Contribution: (v1[i] * v2[i]) / denominator}
	}
	return out
}

// ManhattanContributions returns -|v1[i]-v2[i]|.
func ManhattanContributions(v1, v2 []float32) []DimensionContribution {
	n := min(len(v1), len(v2))
	out := make([]DimensionContribution, n)
	for i := 0; i < n; i++ {
		out[i] = DimensionContribution{
			Dimension:    i,
			Contribution: -float32(math.Abs(float64(v1[i] - v2[i]))),
		}
	}
	return out
}

// Contributions dispatches to the decomposition matching metric.
func Contributions(metric distance.Distance, v1, v2 []float32) []DimensionContribution {
	switch metric {
	case distance.Dot:
		return DotProductContributions(v1, v2)
	case distance.Cosine:
		return CosineContributions(v1, v2)
	case distance.Euclid:
		return EuclideanContributions(v1, v2)
	case distance.Manhattan:
		return ManhattanContributions(v1, v2)
	default:
		panic(fmt.Sprintf("explain: unhandled metric %s", metric))
	}
}
