package points

import (
	"context"
	"fmt"
	"slices"

	"github.com/kailas-cloud/vecquery/internal/db"
	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/access"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/consistency"
	"github.com/kailas-cloud/vecquery/internal/domain/hardware"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
	"github.com/kailas-cloud/vecquery/internal/domain/search/filter"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
)

// knnRead is one candidate retrieval over a set of shards.
type knnRead struct {
	plan    plan
	filter  filter.Expression
	params  *request.SearchParams
	k       int
	vectors []string
}

// candidateCount is the per-seed KNN size for a result window of n.
func (r *Repo) candidateCount(p plan, n int) int {
	if p.oversampled() {
		return n * r.cfg.Oversample
	}
	return n
}

func (r *Repo) efRuntime(params *request.SearchParams, k int) int {
	if params == nil {
		return 0
	}
	if params.Exact {
		return max(k, r.cfg.ExactEF)
	}
	return params.HNSWEf
}

// knn retrieves candidates for every seed from every shard, de-duplicated by ID.
func (r *Repo) knn(
	ctx context.Context, s Store, col domcol.Collection, shards []uint32, q knnRead, hw *hardware.Acc,
) ([]candidate, error) {
	if q.k <= 0 {
		return nil, nil
	}
	fields := returnFields(q.vectors)
	ef := r.efRuntime(q.params, q.k)
	vectorField := domain.VectorField(q.plan.using)

	cands, err := fanShards(ctx, shards, r.cfg.MaxParallelShards,
		func(ctx context.Context, sh uint32) ([]candidate, error) {
			var out []candidate
			for _, seed := range q.plan.seeds {
				res, err := s.SearchKNN(ctx, &db.KNNQuery{
					IndexName:    domain.ShardIndex(col.Name(), sh),
					VectorField:  vectorField,
					Filters:      q.filter,
					Vector:       seed,
					K:            q.k,
					EFRuntime:    ef,
					ReturnFields: fields,
				})
				if err != nil {
					return nil, fmt.Errorf("shard %d: %w", sh, err)
				}
				hw.AddPayloadIndexIORead(conditionCount(q.filter))
				decoded, err := decodeEntries(col, res.Entries, hw)
				if err != nil {
					return nil, fmt.Errorf("shard %d: %w", sh, err)
				}
				out = append(out, decoded...)
			}
			return out, nil
		})
	if err != nil {
		return nil, err
	}
	return dedup(cands), nil
}

func conditionCount(f filter.Expression) int {
	return len(f.Must()) + len(f.Should()) + len(f.MustNot())
}

// searchOne runs a core search on one replica and returns the best
// offset+limit candidates.
func (r *Repo) searchOne(
	ctx context.Context, s Store, col domcol.Collection, shards []uint32,
	req request.CoreSearchRequest, p plan, hw *hardware.Acc,
) ([]candidate, error) {
	window := req.Offset + req.Limit
	cands, err := r.knn(ctx, s, col, shards, knnRead{
		plan:    p,
		filter:  req.Filter,
		params:  req.Params,
		k:       r.candidateCount(p, window),
		vectors: loadVectors(col, req.WithVector, p.using),
	}, hw)
	if err != nil {
		return nil, err
	}
	params, _ := col.Vector(p.using)
	return rank(cands, p, params.Dim, req.ScoreThreshold, window, hw), nil
}

// mergeReplicas keeps candidates present in at least required replica
// responses and restores the ranking order.
func mergeReplicas(responses [][]candidate, required int, better order) []candidate {
	merged := slices.Clone(consistency.Resolve(responses, candidateID, required))
	if len(responses) > 1 {
		sortRanked(merged, better)
	}
	return merged
}

// CoreSearchBatch runs every search of the batch against the selected shards.
func (r *Repo) CoreSearchBatch(
	ctx context.Context, collection string, batch request.CoreSearchRequestBatch,
	sel shard.Selector, params request.ReadParams,
) ([][]point.ScoredPoint, error) {
	return withCollection(ctx, r, "core search batch", collection, access.Read, params,
		func(ctx context.Context, col domcol.Collection) ([][]point.ScoredPoint, error) {
			shards, err := col.Shards(sel)
			if err != nil {
				return nil, err
			}
			reqs := slices.Clone(batch.Searches)
			plans := make([]plan, len(reqs))
			for i := range reqs {
				if err := reqs[i].Validate(); err != nil {
					return nil, fmt.Errorf("search %d: %w", i, err)
				}
				if plans[i], err = planFor(col, reqs[i].Query); err != nil {
					return nil, fmt.Errorf("search %d: %w", i, err)
				}
			}

			responses, required, err := readReplicas(ctx, r, col, params.ReadConsistency(),
				func(ctx context.Context, s Store) ([][]candidate, error) {
					out := make([][]candidate, len(reqs))
					for i, req := range reqs {
						res, err := r.searchOne(ctx, s, col, shards, req, plans[i], params.HW)
						if err != nil {
							return nil, err
						}
						out[i] = res
					}
					return out, nil
				})
			if err != nil {
				return nil, err
			}

			out := make([][]point.ScoredPoint, len(reqs))
			for i, req := range reqs {
				merged := mergeReplicas(column(responses, i), required, plans[i].order())
				out[i] = render(col, page(merged, req.Offset, req.Limit), req.WithPayload, req.WithVector)
			}
			return out, nil
		})
}

// column picks the i-th result of every replica response.
func column[T any](responses [][]T, i int) []T {
	out := make([]T, len(responses))
	for j, resp := range responses {
		out[j] = resp[i]
	}
	return out
}

func render(col domcol.Collection, cands []candidate, wp point.WithPayload, wv *point.WithVector) []point.ScoredPoint {
	out := make([]point.ScoredPoint, len(cands))
	for i, c := range cands {
		out[i] = c.scored(col, wp, wv)
	}
	return out
}
