package points

import (
	"fmt"
	"math"
	"slices"

	"github.com/kailas-cloud/vecquery/internal/domain"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/distance"
	"github.com/kailas-cloud/vecquery/internal/domain/hardware"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
	"github.com/kailas-cloud/vecquery/internal/domain/vector"
)

// contextMargin is subtracted from every context pair difference so that a
// candidate equally similar to both sides still counts as a loss.
const contextMargin = float32(1.1920929e-07)

// order ranks scores: better(a, b) reports whether a comes strictly before b.
type order func(a, b float32) bool

func descending(a, b float32) bool { return a > b }

// plan is an executable vector read: the seed vectors KNN candidates are
// retrieved with, and how a candidate vector is scored.
type plan struct {
	using  string
	metric distance.Distance
	seeds  [][]float32
	score  func(v []float32) float32
	// raw plans report the metric output (distances for Euclid and Manhattan);
	// the others report a derived score where higher is better.
	raw bool
	// cost is the number of vector comparisons per scored candidate.
	cost int
}

func (p plan) order() order {
	if p.raw {
		return p.metric.Better
	}
	return descending
}

func (p plan) passes(score, threshold float32) bool {
	if p.raw {
		return p.metric.PassesThreshold(score, threshold)
	}
	return score >= threshold
}

// oversampled reports whether the engine KNN order may differ from the plan order.
func (p plan) oversampled() bool {
	return !p.raw || p.metric == distance.Manhattan
}

// similarity turns the metric output into a higher-is-better value.
func similarity(d distance.Distance, a, b []float32) float32 {
	s := d.Score(a, b)
	if d.HigherIsBetter() {
		return s
	}
	return -s
}

// planFor validates query vectors against the collection and builds the plan.
func planFor(col domcol.Collection, q request.QueryEnum) (plan, error) {
	if err := request.ValidateQueryEnum(q); err != nil {
		return plan{}, err
	}
	params, ok := col.Vector(q.VectorName())
	if !ok {
		return plan{}, fmt.Errorf("%w: vector %q not found in collection %q",
			domain.ErrBadRequest, q.VectorName(), col.Name())
	}
	dense := func(v vector.Internal) ([]float32, error) {
		d, ok := vector.AsDense(v)
		if !ok {
			return nil, fmt.Errorf("%w: only dense query vectors are supported", domain.ErrBadRequest)
		}
		if len(d) != params.Dim {
			return nil, fmt.Errorf("%w: vector %q expects %d dimensions, got %d",
				domain.ErrVectorDimMismatch, params.Name, params.Dim, len(d))
		}
		return d, nil
	}
	denseAll := func(vs []vector.Internal) ([][]float32, error) {
		out := make([][]float32, len(vs))
		for i, v := range vs {
			d, err := dense(v)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	}
	densePairs := func(pairs []request.ContextPair) (pos, neg [][]float32, err error) {
		for _, p := range pairs {
			a, err := dense(p.Positive)
			if err != nil {
				return nil, nil, err
			}
			b, err := dense(p.Negative)
			if err != nil {
				return nil, nil, err
			}
			pos, neg = append(pos, a), append(neg, b)
		}
		return pos, neg, nil
	}

	metric := params.Distance
	p := plan{using: params.Name, metric: metric}

	switch v := q.(type) {
	case request.Nearest:
		target, err := dense(v.Vector)
		if err != nil {
			return plan{}, err
		}
		p.raw = true
		p.seeds = [][]float32{target}
		p.cost = 1
		p.score = func(c []float32) float32 { return metric.Score(target, c) }

	case request.RecommendBestScore:
		pos, err := denseAll(v.Positive)
		if err != nil {
			return plan{}, err
		}
		neg, err := denseAll(v.Negative)
		if err != nil {
			return plan{}, err
		}
		p.seeds = pos
		p.cost = len(pos) + len(neg)
		p.score = func(c []float32) float32 { return recommendScore(metric, pos, neg, c) }

	case request.Discover:
		target, err := dense(v.Target)
		if err != nil {
			return plan{}, err
		}
		pos, neg, err := densePairs(v.Context)
		if err != nil {
			return plan{}, err
		}
		p.seeds = [][]float32{target}
		p.cost = 1 + 2*len(pos)
		p.score = func(c []float32) float32 { return discoverScore(metric, target, pos, neg, c) }

	case request.Context:
		pos, neg, err := densePairs(v.Pairs)
		if err != nil {
			return plan{}, err
		}
		p.seeds = pos
		p.cost = 2 * len(pos)
		p.score = func(c []float32) float32 { return contextScore(metric, pos, neg, c) }
	}
	return p, nil
}

// recommendScore is the best positive similarity when it beats the best
// negative one, otherwise the negated square of the best negative similarity.
func recommendScore(d distance.Distance, pos, neg [][]float32, c []float32) float32 {
	bestPos := float32(math.Inf(-1))
	for _, v := range pos {
		bestPos = max(bestPos, similarity(d, v, c))
	}
	if len(neg) == 0 {
		return bestPos
	}
	bestNeg := float32(math.Inf(-1))
	for _, v := range neg {
		bestNeg = max(bestNeg, similarity(d, v, c))
	}
	if bestPos > bestNeg {
		return bestPos
	}
	return -(bestNeg * bestNeg)
}

// discoverScore ranks by context pairs satisfied (+1 per pair closer to the
// positive, -1 otherwise) and breaks ties by a sigmoid of the target similarity.
func discoverScore(d distance.Distance, target []float32, pos, neg [][]float32, c []float32) float32 {
	var rank int
	for i := range pos {
		if similarity(d, pos[i], c) > similarity(d, neg[i], c) {
			rank++
		} else {
			rank--
		}
	}
	return float32(rank) + sigmoid(similarity(d, target, c))
}

func sigmoid(x float32) float32 {
	return 0.5 * (x/(1+abs32(x)) + 1)
}

// contextScore sums, over pairs, the shortfall of the positive similarity over
// the negative one; a candidate satisfying every pair scores 0.
func contextScore(d distance.Distance, pos, neg [][]float32, c []float32) float32 {
	var loss float32
	for i := range pos {
		diff := similarity(d, pos[i], c) - similarity(d, neg[i], c) - contextMargin
		loss += min(0, diff)
	}
	return loss
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

// rank scores every candidate holding the plan vector, sorts best first
// (ties by ascending ID), drops those failing threshold and keeps at most n.
func rank(cands []candidate, p plan, dim int, threshold *float32, n int, hw *hardware.Acc) []candidate {
	out := make([]candidate, 0, len(cands))
	for _, c := range cands {
		v, ok := c.vectors[p.using]
		if !ok {
			continue
		}
		c.score = p.score(v)
		hw.AddCPU(p.cost * dim)
		if threshold != nil && !p.passes(c.score, *threshold) {
			continue
		}
		out = append(out, c)
	}
	sortRanked(out, p.order())
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func sortRanked(cands []candidate, better order) {
	slices.SortStableFunc(cands, func(a, b candidate) int {
		switch {
		case better(a.score, b.score):
			return -1
		case better(b.score, a.score):
			return 1
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		default:
			return 0
		}
	})
}

// dedup keeps the first candidate of every ID.
func dedup(cands []candidate) []candidate {
	seen := make(map[uint64]struct{}, len(cands))
	out := cands[:0]
	for _, c := range cands {
		if _, ok := seen[uint64(c.id)]; ok {
			continue
		}
		seen[uint64(c.id)] = struct{}{}
		out = append(out, c)
	}
	return out
}

// page drops the first offset candidates and keeps at most limit.
func page(cands []candidate, offset, limit int) []candidate {
	if offset >= len(cands) {
		return nil
	}
	cands = cands[offset:]
	if len(cands) > limit {
		cands = cands[:limit]
	}
	return cands
}
