package points

import (
	"context"
	"fmt"
	"slices"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/access"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/consistency"
	"github.com/kailas-cloud/vecquery/internal/domain/distance"
	"github.com/kailas-cloud/vecquery/internal/domain/hardware"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
	"github.com/kailas-cloud/vecquery/internal/domain/search/result"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
)

// SearchMatrix samples points matching the filter (lowest IDs first) and, for
// each of them, finds the closest limit other points of the sample.
func (r *Repo) SearchMatrix(
	ctx context.Context, collection string, req request.SearchMatrixRequest,
	sel shard.Selector, params request.ReadParams,
) (result.SearchMatrix, error) {
	if err := req.Validate(); err != nil {
		return result.SearchMatrix{}, err
	}
	return withCollection(ctx, r, "search matrix", collection, access.Read, params,
		func(ctx context.Context, col domcol.Collection) (result.SearchMatrix, error) {
			vp, ok := col.Vector(req.Using)
			if !ok {
				return result.SearchMatrix{}, fmt.Errorf("%w: vector %q not found in collection %q",
					domain.ErrBadRequest, req.Using, col.Name())
			}
			shards, err := col.Shards(sel)
			if err != nil {
				return result.SearchMatrix{}, err
			}

			responses, required, err := readReplicas(ctx, r, col, params.ReadConsistency(),
				func(ctx context.Context, s Store) ([]candidate, error) {
					return r.listByID(ctx, s, col, shards, req.Filter, nil, req.Sample, []string{vp.Name}, params.HW)
				})
			if err != nil {
				return result.SearchMatrix{}, err
			}

			sample := slices.Clone(consistency.Resolve(responses, candidateID, required))
			sortByID(sample)
			sample = slices.DeleteFunc(sample, func(c candidate) bool {
				_, ok := c.vectors[vp.Name]
				return !ok
			})
			return buildMatrix(sample, vp.Name, vp.Distance, req.Limit, vp.Dim, params.HW), nil
		})
}

func buildMatrix(sample []candidate, using string, d distance.Distance, limit, dim int, hw *hardware.Acc) result.SearchMatrix {
	m := result.SearchMatrix{
		IDs:      make([]point.ID, len(sample)),
		Nearests: make([][]point.ScoredPointOffset, len(sample)),
	}
	for i, c := range sample {
		m.IDs[i] = c.id
	}
	for i, a := range sample {
		row := make([]point.ScoredPointOffset, 0, len(sample)-1)
		for j, b := range sample {
			if i == j {
				continue
			}
			row = append(row, point.ScoredPointOffset{
				Offset: uint32(j),
				Score:  d.Score(a.vectors[using], b.vectors[using]),
			})
		}
		hw.AddCPU(len(row) * dim)
		slices.SortStableFunc(row, func(x, y point.ScoredPointOffset) int {
			switch {
			case d.Better(x.Score, y.Score):
				return -1
			case d.Better(y.Score, x.Score):
				return 1
			default:
				return 0
			}
		})
		if len(row) > limit {
			row = row[:limit]
		}
		m.Nearests[i] = row
	}
	return m
}
