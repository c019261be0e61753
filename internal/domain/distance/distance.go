// Package distance defines the closed set of similarity metrics a collection
// can be configured with, and exact scoring for each of them.
package distance

import (
	"fmt"
	"math"
	"strings"
)

// Distance is a vector similarity metric.
type Distance uint8

// Supported metrics. The set is closed: every switch over Distance must handle all four.
const (
	Cosine Distance = iota + 1
	Euclid
	Dot
	Manhattan
)

// All lists every supported metric.
var All = []Distance{Cosine, Euclid, Dot, Manhattan}

// Parse converts a config or wire name into a Distance (case-insensitive).
func Parse(s string) (Distance, error) {
	switch strings.ToLower(s) {
	case "cosine":
		return Cosine, nil
	case "euclid", "euclidean", "l2":
		return Euclid, nil
	case "dot", "ip":
		return Dot, nil
	case "manhattan", "l1":
		return Manhattan, nil
	default:
		return 0, fmt.Errorf("unknown distance %q", s)
	}
}

// String returns the canonical name.
func (d Distance) String() string {
	switch d {
	case Cosine:
		return "Cosine"
	case Euclid:
		return "Euclid"
	case Dot:
		return "Dot"
	case Manhattan:
		return "Manhattan"
	default:
		return fmt.Sprintf("Distance(%d)", uint8(d))
	}
}

// IsValid reports whether d is one of the supported metrics.
func (d Distance) IsValid() bool {
	return d >= Cosine && d <= Manhattan
}

// HigherIsBetter reports whether larger output scores mean more similar.
// Euclid and Manhattan report distances, where smaller is better.
func (d Distance) HigherIsBetter() bool {
	switch d {
	case Cosine, Dot:
		return true
	case Euclid, Manhattan:
		return false
	default:
		panic(fmt.Sprintf("distance: unhandled metric %d", uint8(d)))
	}
}

// Better reports whether score a ranks strictly before score b.
func (d Distance) Better(a, b float32) bool {
	if d.HigherIsBetter() {
		return a > b
	}
	return a < b
}

// PassesThreshold reports whether score is within threshold
// (at least threshold for similarities, at most threshold for distances).
func (d Distance) PassesThreshold(score, threshold float32) bool {
	if d.HigherIsBetter() {
		return score >= threshold
	}
	return score <= threshold
}

// Score computes the output score between two vectors: cosine similarity,
// dot product, Euclidean distance or Manhattan distance.
// Vectors are zipped element-wise; extra trailing elements are ignored.
func (d Distance) Score(a, b []float32) float32 {
	n := min(len(a), len(b))
	a, b = a[:n], b[:n]
	switch d {
	case Cosine:
		var dot, na, nb float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
			na += float64(a[i]) * float64(a[i])
			nb += float64(b[i]) * float64(b[i])
		}
		if na == 0 || nb == 0 {
			return 0
		}
		return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
	case Dot:
		var dot float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
		}
		return float32(dot)
	case Euclid:
		var sum float64
		for i := range a {
			diff := float64(a[i]) - float64(b[i])
			sum += diff * diff
		}
		return float32(math.Sqrt(sum))
	case Manhattan:
		var sum float64
		for i := range a {
			sum += math.Abs(float64(a[i]) - float64(b[i]))
		}
		return float32(sum)
	default:
		panic(fmt.Sprintf("distance: unhandled metric %d", uint8(d)))
	}
}

// CompareScores orders float32 scores totally: NaN sorts above every number,
// equal values (including -0 and +0) compare equal.
func CompareScores(a, b float32) int {
	aNaN, bNaN := a != a, b != b //nolint:gocritic // NaN self-comparison
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
