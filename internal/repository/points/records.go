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
	"github.com/kailas-cloud/vecquery/internal/domain/search/result"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
)

// belongs reports whether point id can live in shard sh: within a shard key
// range, points are placed by id modulo the shard number.
func belongs(col domcol.Collection, sh uint32, id point.ID) bool {
	n := uint64(col.ShardNumber())
	return uint64(sh)%n == uint64(id)%n
}

// fetch reads points by ID from the shards they can live in. Repeated IDs
// are read and accounted once.
func (r *Repo) fetch(
	ctx context.Context, s Store, col domcol.Collection, shards []uint32, ids []point.ID, hw *hardware.Acc,
) ([]candidate, error) {
	ids = uniqueIDs(ids)
	var keys []string
	for _, sh := range shards {
		for _, id := range ids {
			if belongs(col, sh, id) {
				keys = append(keys, domain.PointKey(col.Name(), sh, uint64(id)))
			}
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}
	maps, err := s.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make([]candidate, 0, len(maps))
	for i, m := range maps {
		if len(m) == 0 {
			continue
		}
		c, err := decodePoint(col, m, hw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		out = append(out, c)
	}
	return out, nil
}

// uniqueIDs drops repeated IDs, keeping first-seen order.
func uniqueIDs(ids []point.ID) []point.ID {
	seen := make(map[point.ID]struct{}, len(ids))
	out := make([]point.ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// listByID returns up to limit points in ascending ID order, starting at from.
func (r *Repo) listByID(
	ctx context.Context, s Store, col domcol.Collection, shards []uint32,
	f filter.Expression, from *point.ID, limit int, vectors []string, hw *hardware.Acc,
) ([]candidate, error) {
	if limit <= 0 {
		return nil, nil
	}
	if from != nil {
		gte := float64(*from)
		rng, err := filter.NewRangeFilter(nil, &gte, nil, nil)
		if err != nil {
			return nil, err
		}
		cond, err := filter.NewRange(domain.FieldID, rng)
		if err != nil {
			return nil, err
		}
		f = f.WithMust(cond)
	}
	fields := returnFields(vectors)

	cands, err := fanShards(ctx, shards, r.cfg.MaxParallelShards,
		func(ctx context.Context, sh uint32) ([]candidate, error) {
			res, err := s.SearchList(ctx, &db.ListQuery{
				IndexName:    domain.ShardIndex(col.Name(), sh),
				Filters:      f,
				SortBy:       domain.FieldID,
				Limit:        limit,
				ReturnFields: fields,
			})
			if err != nil {
				return nil, fmt.Errorf("shard %d: %w", sh, err)
			}
			hw.AddPayloadIndexIORead(conditionCount(f))
			return decodeEntries(col, res.Entries, hw)
		})
	if err != nil {
		return nil, err
	}
	sortByID(cands)
	cands = dedup(cands)
	if len(cands) > limit {
		cands = cands[:limit]
	}
	return cands, nil
}

func sortByID(cands []candidate) {
	slices.SortStableFunc(cands, func(a, b candidate) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		default:
			return 0
		}
	})
}

// Count sums the matching points of every selected shard.
func (r *Repo) Count(
	ctx context.Context, collection string, req request.CountRequest,
	sel shard.Selector, params request.ReadParams,
) (result.CountResult, error) {
	return withCollection(ctx, r, "count", collection, access.Read, params,
		func(ctx context.Context, col domcol.Collection) (result.CountResult, error) {
			shards, err := col.Shards(sel)
			if err != nil {
				return result.CountResult{}, err
			}
			counts, _, err := readReplicas(ctx, r, col, params.ReadConsistency(),
				func(ctx context.Context, s Store) (int, error) {
					perShard, err := fanShards(ctx, shards, r.cfg.MaxParallelShards,
						func(ctx context.Context, sh uint32) ([]int, error) {
							n, err := s.SearchCount(ctx, domain.ShardIndex(col.Name(), sh), req.Filter)
							if err != nil {
								return nil, fmt.Errorf("shard %d: %w", sh, err)
							}
							params.HW.AddPayloadIndexIORead(conditionCount(req.Filter))
							return []int{n}, nil
						})
					if err != nil {
						return 0, err
					}
					var total int
					for _, n := range perShard {
						total += n
					}
					return total, nil
				})
			if err != nil {
				return result.CountResult{}, err
			}
			return result.CountResult{Count: consistency.ResolveCount(counts)}, nil
		})
}

// Retrieve returns the requested points in request order; missing IDs are skipped.
func (r *Repo) Retrieve(
	ctx context.Context, collection string, req request.PointRequest,
	sel shard.Selector, params request.ReadParams,
) ([]point.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return withCollection(ctx, r, "retrieve", collection, access.Read, params,
		func(ctx context.Context, col domcol.Collection) ([]point.Record, error) {
			shards, err := col.Shards(sel)
			if err != nil {
				return nil, err
			}
			responses, required, err := readReplicas(ctx, r, col, params.ReadConsistency(),
				func(ctx context.Context, s Store) ([]candidate, error) {
					return r.fetch(ctx, s, col, shards, req.IDs, params.HW)
				})
			if err != nil {
				return nil, err
			}
			found := consistency.Resolve(responses, candidateID, required)
			byID := make(map[point.ID]candidate, len(found))
			for _, c := range found {
				if _, ok := byID[c.id]; !ok {
					byID[c.id] = c
				}
			}

			out := make([]point.Record, 0, len(byID))
			seen := make(map[point.ID]bool, len(req.IDs))
			for _, id := range req.IDs {
				c, ok := byID[id]
				if !ok || seen[id] {
					continue
				}
				seen[id] = true
				out = append(out, c.record(col, req.WithPayload, req.WithVector))
			}
			return out, nil
		})
}

// Scroll pages through points in ascending ID order. NextPageOffset is the
// first ID of the next page, nil on the last page.
func (r *Repo) Scroll(
	ctx context.Context, collection string, req request.ScrollRequest,
	sel shard.Selector, params request.ReadParams,
) (result.ScrollResult, error) {
	if err := req.Validate(); err != nil {
		return result.ScrollResult{}, err
	}
	return withCollection(ctx, r, "scroll", collection, access.Read, params,
		func(ctx context.Context, col domcol.Collection) (result.ScrollResult, error) {
			shards, err := col.Shards(sel)
			if err != nil {
				return result.ScrollResult{}, err
			}
			vectors := loadVectors(col, req.WithVector)
			responses, required, err := readReplicas(ctx, r, col, params.ReadConsistency(),
				func(ctx context.Context, s Store) ([]candidate, error) {
					return r.listByID(ctx, s, col, shards, req.Filter, req.Offset, req.Limit+1, vectors, params.HW)
				})
			if err != nil {
				return result.ScrollResult{}, err
			}

			cands := slices.Clone(consistency.Resolve(responses, candidateID, required))
			sortByID(cands)

			var res result.ScrollResult
			if len(cands) > req.Limit {
				next := cands[req.Limit].id
				res.NextPageOffset = &next
				cands = cands[:req.Limit]
			}
			res.Points = make([]point.Record, len(cands))
			for i, c := range cands {
				res.Points[i] = c.record(col, req.WithPayload, req.WithVector)
			}
			return res, nil
		})
}
