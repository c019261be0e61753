package points

import (
	"context"

	"github.com/kailas-cloud/vecquery/internal/domain/access"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
	"github.com/kailas-cloud/vecquery/internal/domain/search/result"
	"github.com/kailas-cloud/vecquery/internal/domain/shard"
)

// Group runs an oversampled query and buckets its hits by the value of a
// payload key. Groups are ordered by their best hit.
func (r *Repo) Group(
	ctx context.Context, collection string, req request.GroupRequest,
	sel shard.Selector, params request.ReadParams,
) (result.GroupsResult, error) {
	if err := req.Validate(); err != nil {
		return result.GroupsResult{}, err
	}
	q := req.Query
	if err := q.Validate(); err != nil {
		return result.GroupsResult{}, err
	}
	q.Offset = 0
	q.Limit = req.Limit * req.GroupSize * r.cfg.Oversample

	return withCollection(ctx, r, "group", collection, access.Read, params,
		func(ctx context.Context, col domcol.Collection) (result.GroupsResult, error) {
			shards, err := col.Shards(sel)
			if err != nil {
				return result.GroupsResult{}, err
			}
			cands, err := r.queryCandidates(ctx, col, shards, []request.CollectionQueryRequest{q}, params)
			if err != nil {
				return result.GroupsResult{}, err
			}

			groups := groupHits(cands[0], req.GroupBy, req.GroupSize, req.Limit)
			out := result.GroupsResult{Groups: make([]result.PointGroup, len(groups))}
			for i, g := range groups {
				out.Groups[i] = result.PointGroup{ID: g.id, Hits: render(col, g.hits, q.WithPayload, q.WithVector)}
			}
			return out, nil
		})
}

type hitGroup struct {
	id   result.GroupID
	hits []candidate
}

// groupHits assigns ranked candidates to groups keyed by payload[key]. A point
// whose value is an array joins one group per element. Points without a
// usable value are skipped.
func groupHits(cands []candidate, key string, size, limit int) []hitGroup {
	var groups []*hitGroup
	byValue := make(map[any]*hitGroup)
	for _, c := range cands {
		for _, v := range groupValues(c.payload[key]) {
			g, ok := byValue[v]
			if !ok {
				if len(groups) == limit {
					continue
				}
				g = &hitGroup{id: v}
				byValue[v] = g
				groups = append(groups, g)
			}
			if len(g.hits) < size {
				g.hits = append(g.hits, c)
			}
		}
	}
	out := make([]hitGroup, len(groups))
	for i, g := range groups {
		out[i] = *g
	}
	return out
}

func groupValues(v any) []any {
	switch x := v.(type) {
	case string, float64, bool:
		return []any{x}
	case []any:
		var out []any
		for _, e := range x {
			switch e.(type) {
			case string, float64, bool:
				out = append(out, e)
			}
		}
		return out
	default:
		return nil
	}
}

