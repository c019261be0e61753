package points

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vecquery/internal/db"
	"github.com/kailas-cloud/vecquery/internal/domain/access"
	domcol "github.com/kailas-cloud/vecquery/internal/domain/collection"
	"github.com/kailas-cloud/vecquery/internal/domain/point"
	"github.com/kailas-cloud/vecquery/internal/domain/search/request"
)

// Upsert writes points to their shard on every replica. Records are placed by
// ID within the range of their shard key.
func (r *Repo) Upsert(ctx context.Context, collection string, pts []point.Record, acc access.Access) error {
	params := request.ReadParams{Access: acc}
	_, err := withCollection(ctx, r, "upsert", collection, access.ReadWrite, params,
		func(ctx context.Context, col domcol.Collection) (struct{}, error) {
			items := make([]db.HashSetItem, len(pts))
			for i, p := range pts {
				sh, err := col.PlaceShard(uint64(p.ID), p.ShardKey)
				if err != nil {
					return struct{}{}, fmt.Errorf("point %d: %w", p.ID, err)
				}
				item, err := encodePoint(col, sh, p)
				if err != nil {
					return struct{}{}, fmt.Errorf("point %d: %w", p.ID, err)
				}
				items[i] = item
			}

			g, gctx := errgroup.WithContext(ctx)
			for _, s := range r.replicas[:r.replicaCount(col)] {
				g.Go(func() error { return s.HSetMulti(gctx, items) })
			}
			return struct{}{}, g.Wait()
		})
	return err
}
