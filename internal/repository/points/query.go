package points

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecquery/internal/batching"
	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/access"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/hardware"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
	"github.com/kailas-cloud/vecquery/internal/domain/search/filter"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
	"github.com/kailas-cloud/vecquery/internal/domain/vector"
)

// node is one level of a universal query: the root request or a prefetch.
type node struct {
	prefetch  []request.Prefetch
	query     request.Query
	using     string
	filter    filter.Expression
	params    *request.SearchParams
	threshold *float32
	limit     int
}

func rootNode(q request.CollectionQueryRequest) node {
	return node{
		prefetch:  q.Prefetch,
		query:     q.Query,
		using:     q.Using,
		filter:    q.Filter,
		params:    q.Params,
		threshold: q.ScoreThreshold,
		limit:     q.Offset + q.Limit,
	}
}

// childNode builds a prefetch node. A prefetch without its own filter
// inherits the parent filter.
func childNode(p request.Prefetch, parent filter.Expression) node {
	f := p.Filter
	if f.IsEmpty() {
		f = parent
	}
	return node{
		prefetch:  p.Prefetch,
		query:     p.Query,
		using:     p.Using,
		filter:    f,
		params:    p.Params,
		threshold: p.ScoreThreshold,
		limit:     p.Limit,
	}
}

// ranked is a best-first candidate list and the order it is sorted by.
type ranked struct {
	items  []candidate
	better order
}

// lookup resolves point ID inputs to stored points.
type lookup map[point.ID]candidate

// queryExec executes universal queries against one replica.
type queryExec struct {
	r      *Repo
	s      Store
	col    domcol.Collection
	shards []uint32
	hw     *hardware.Acc
	points lookup
}

func (e *queryExec) exec(ctx context.Context, n node, vectors []string) (ranked, error) {
	if len(n.prefetch) == 0 {
		return e.leaf(ctx, n, vectors)
	}

	childVectors := vectors
	if n.query != nil {
		if _, fusion := n.query.(request.QueryFusion); !fusion {
			childVectors = append(append([]string(nil), vectors...), n.using)
		}
	}
	subs := make([][]candidate, len(n.prefetch))
	var first order
	for i, p := range n.prefetch {
		res, err := e.exec(ctx, childNode(p, n.filter), childVectors)
		if err != nil {
			return ranked{}, fmt.Errorf("prefetch %d: %w", i, err)
		}
		subs[i] = res.items
		if i == 0 {
			first = res.better
		}
	}

	switch q := n.query.(type) {
	case nil:
		if len(subs) != 1 {
			return ranked{}, fmt.Errorf("%w: a query is required to combine %d prefetches", domain.ErrBadRequest, len(subs))
		}
		items := subs[0]
		if len(items) > n.limit {
			items = items[:n.limit]
		}
		return ranked{items: items, better: first}, nil

	case request.QueryFusion:
		if q.Fusion != request.FusionRRF {
			return ranked{}, fmt.Errorf("%w: unsupported fusion %q", domain.ErrBadRequest, q.Fusion)
		}
		fused := fuseRRF(subs, -1)
		return ranked{items: thresholded(fused, n.threshold, n.limit), better: descending}, nil

	default:
		p, exclude, err := e.plan(n)
		if err != nil {
			return ranked{}, err
		}
		var pool []candidate
		for _, sub := range subs {
			pool = append(pool, sub...)
		}
		pool = excludeIDs(dedup(pool), exclude)
		params, _ := e.col.Vector(p.using)
		return ranked{items: rank(pool, p, params.Dim, n.threshold, n.limit, e.hw), better: p.order()}, nil
	}
}

func (e *queryExec) leaf(ctx context.Context, n node, vectors []string) (ranked, error) {
	switch n.query.(type) {
	case nil:
		items, err := e.r.listByID(ctx, e.s, e.col, e.shards, n.filter, nil, n.limit, vectors, e.hw)
		if err != nil {
			return ranked{}, err
		}
		return ranked{items: items, better: descending}, nil
	case request.QueryFusion:
		return ranked{}, fmt.Errorf("%w: fusion requires prefetches", domain.ErrBadRequest)
	}

	p, exclude, err := e.plan(n)
	if err != nil {
		return ranked{}, err
	}
	f := n.filter
	if len(exclude) > 0 {
		cond, err := filter.NewHasID(exclude)
		if err != nil {
			return ranked{}, fmt.Errorf("%w: %w", domain.ErrBadRequest, err)
		}
		f = f.WithMustNot(cond)
	}
	cands, err := e.r.knn(ctx, e.s, e.col, e.shards, knnRead{
		plan:    p,
		filter:  f,
		params:  n.params,
		k:       e.r.candidateCount(p, n.limit),
		vectors: append(append([]string(nil), vectors...), p.using),
	}, e.hw)
	if err != nil {
		return ranked{}, err
	}
	params, _ := e.col.Vector(p.using)
	return ranked{items: rank(cands, p, params.Dim, n.threshold, n.limit, e.hw), better: p.order()}, nil
}

// plan converts the node query into a scoring plan. Point ID inputs are
// replaced by their stored vector and returned for exclusion from results.
func (e *queryExec) plan(n node) (plan, []uint64, error) {
	var exclude []uint64
	resolve := func(in request.VectorInput) (vector.Internal, error) {
		switch v := in.(type) {
		case nil:
			return nil, nil
		case request.RawVector:
			return v.Vector, nil
		case request.PointInput:
			c, ok := e.points[v.ID]
			if !ok {
				return nil, fmt.Errorf("%w: point %d", domain.ErrNotFound, v.ID)
			}
			vec, ok := c.vectors[n.using]
			if !ok {
				return nil, fmt.Errorf("%w: point %d has no vector %q", domain.ErrBadRequest, v.ID, n.using)
			}
			exclude = append(exclude, uint64(v.ID))
			return vector.Dense(vec), nil
		case request.Document:
			return nil, fmt.Errorf("%w: document inputs must be embedded before execution", domain.ErrBadRequest)
		default:
			return nil, fmt.Errorf("%w: unsupported vector input %T", domain.ErrBadRequest, in)
		}
	}
	resolveAll := func(ins []request.VectorInput) ([]vector.Internal, error) {
		out := make([]vector.Internal, len(ins))
		for i, in := range ins {
			v, err := resolve(in)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	resolvePairs := func(pairs []request.ContextInputPair) ([]request.ContextPair, error) {
		out := make([]request.ContextPair, len(pairs))
		for i, p := range pairs {
			pos, err := resolve(p.Positive)
			if err != nil {
				return nil, err
			}
			neg, err := resolve(p.Negative)
			if err != nil {
				return nil, err
			}
			out[i] = request.ContextPair{Positive: pos, Negative: neg}
		}
		return out, nil
	}

	var (
		q   request.QueryEnum
		err error
	)
	switch v := n.query.(type) {
	case request.QueryNearest:
		var vec vector.Internal
		vec, err = resolve(v.Vector)
		q = request.Nearest{Using: n.using, Vector: vec}
	case request.QueryRecommend:
		var pos, neg []vector.Internal
		if pos, err = resolveAll(v.Positive); err == nil {
			neg, err = resolveAll(v.Negative)
		}
		q = request.RecommendBestScore{Using: n.using, Positive: pos, Negative: neg}
	case request.QueryDiscover:
		var target vector.Internal
		var pairs []request.ContextPair
		if target, err = resolve(v.Target); err == nil {
			pairs, err = resolvePairs(v.Context)
		}
		q = request.Discover{Using: n.using, Target: target, Context: pairs}
	case request.QueryContext:
		var pairs []request.ContextPair
		pairs, err = resolvePairs(v.Pairs)
		q = request.Context{Using: n.using, Pairs: pairs}
	default:
		return plan{}, nil, fmt.Errorf("%w: unsupported query %T", domain.ErrBadRequest, n.query)
	}
	if err != nil {
		return plan{}, nil, err
	}
	p, err := planFor(e.col, q)
	return p, exclude, err
}

func thresholded(cands []candidate, threshold *float32, limit int) []candidate {
	if threshold != nil {
		kept := cands[:0]
		for _, c := range cands {
			if c.score >= *threshold {
				kept = append(kept, c)
			}
		}
		cands = kept
	}
	if len(cands) > limit {
		cands = cands[:limit]
	}
	return cands
}

func excludeIDs(cands []candidate, ids []uint64) []candidate {
	if len(ids) == 0 {
		return cands
	}
	skip := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		skip[id] = struct{}{}
	}
	out := cands[:0]
	for _, c := range cands {
		if _, ok := skip[uint64(c.id)]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// pointInputs lists the IDs a request references as vector inputs.
func pointInputs(q request.CollectionQueryRequest) []point.ID {
	var ids []point.ID
	for _, in := range q.AllInputs() {
		if p, ok := in.(request.PointInput); ok {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// queryCandidates executes validated universal queries on the given shards and
// returns, per request, the merged best offset+limit candidates.
func (r *Repo) queryCandidates(
	ctx context.Context, col domcol.Collection, shards []uint32,
	reqs []request.CollectionQueryRequest, params request.ReadParams,
) ([][]candidate, error) {
	responses, required, err := readReplicas(ctx, r, col, params.ReadConsistency(),
		func(ctx context.Context, s Store) ([]ranked, error) {
			out := make([]ranked, len(reqs))
			for i, req := range reqs {
				e := &queryExec{r: r, s: s, col: col, shards: shards, hw: params.HW}
				if ids := pointInputs(req); len(ids) > 0 {
					found, err := r.fetch(ctx, s, col, shards, ids, params.HW)
					if err != nil {
						return nil, err
					}
					e.points = make(lookup, len(found))
					for _, c := range found {
						e.points[c.id] = c
					}
				}
				res, err := e.exec(ctx, rootNode(req), loadVectors(col, req.WithVector))
				if err != nil {
					return nil, fmt.Errorf("query %d: %w", i, err)
				}
				out[i] = res
			}
			return out, nil
		})
	if err != nil {
		return nil, err
	}

	out := make([][]candidate, len(reqs))
	for i := range reqs {
		perReplica := column(responses, i)
		lists := make([][]candidate, len(perReplica))
		for j, res := range perReplica {
			lists[j] = res.items
		}
		out[i] = mergeReplicas(lists, required, perReplica[0].better)
	}
	return out, nil
}

func (r *Repo) queryBatch(
	ctx context.Context, col domcol.Collection, reqs []request.QueryWithSelector, params request.ReadParams,
) ([][]point.ScoredPoint, error) {
	for i := range reqs {
		if err := reqs[i].Request.Validate(); err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
	}
	return batching.Do(ctx, reqs,
		func(q request.QueryWithSelector) (shard.Selector, error) {
			return q.Selector, q.Selector.Validate()
		},
		func(q request.QueryWithSelector, pending *[]request.CollectionQueryRequest) error {
			*pending = append(*pending, q.Request)
			return nil
		},
		func(sel shard.Selector, pending []request.CollectionQueryRequest) (batching.RunFunc[[]point.ScoredPoint], error) {
			shards, err := col.Shards(sel)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context) ([][]point.ScoredPoint, error) {
				cands, err := r.queryCandidates(ctx, col, shards, pending, params)
				if err != nil {
					return nil, err
				}
				out := make([][]point.ScoredPoint, len(pending))
				for i, req := range pending {
					out[i] = render(col, page(cands[i], req.Offset, req.Limit), req.WithPayload, req.WithVector)
				}
				return out, nil
			}, nil
		})
}

// QueryBatch runs universal queries; requests sharing a shard selector share
// one read of the replicas.
func (r *Repo) QueryBatch(
	ctx context.Context, collection string, reqs []request.QueryWithSelector, params request.ReadParams,
) ([][]point.ScoredPoint, error) {
	reqs = append([]request.QueryWithSelector(nil), reqs...)
	return withCollection(ctx, r, "query batch", collection, access.Read, params,
		func(ctx context.Context, col domcol.Collection) ([][]point.ScoredPoint, error) {
			return r.queryBatch(ctx, col, reqs, params)
		})
}

// DiscoverBatch runs discovery and context searches.
func (r *Repo) DiscoverBatch(
	ctx context.Context, collection string, reqs []request.DiscoverWithSelector, params request.ReadParams,
) ([][]point.ScoredPoint, error) {
	queries := make([]request.QueryWithSelector, len(reqs))
	for i, d := range reqs {
		queries[i] = request.QueryWithSelector{Request: d.Request.CollectionQuery(), Selector: d.Selector}
	}
	return withCollection(ctx, r, "discover batch", collection, access.Read, params,
		func(ctx context.Context, col domcol.Collection) ([][]point.ScoredPoint, error) {
			return r.queryBatch(ctx, col, queries, params)
		})
}
