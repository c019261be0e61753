// Package batching coalesces requests that share a partition key into one
// backing call per key and reassembles the results in request order.
package batching

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vecquery/internal/domain"
)

// RunFunc executes one coalesced backing call. It returns one result per
// accumulated request, in accumulation order.
type RunFunc[T any] func(ctx context.Context) ([]T, error)

// Unit is the deferred backing call of one partition key.
type Unit[T any] struct {
	// Indices are the positions, in the original request list, of the requests
	// the unit covers, in accumulation order.
	Indices []int
	run     RunFunc[T]
}

// Run executes the unit.
func (u Unit[T]) Run(ctx context.Context) ([]T, error) { return u.run(ctx) }

type bucket[K comparable, B any] struct {
	key     K
	pending B
	indices []int
}

// Batch groups requests by the key keyOf extracts. Equal keys share one bucket
// regardless of their positions; accumulate appends a request to its bucket.
// finalize is called once per distinct key, in first-seen order, and returns the
// deferred call for the bucket. A nil RunFunc means the bucket needs no call: the
// unit is dropped together with the requests it would have covered.
//
// Any error from keyOf, accumulate or finalize aborts before a unit is returned,
// so nothing is dispatched for a partially built batch.
func Batch[R any, K comparable, B any, T any](
	requests []R,
	keyOf func(R) (K, error),
	accumulate func(R, *B) error,
	finalize func(K, B) (RunFunc[T], error),
) ([]Unit[T], error) {
	var buckets []*bucket[K, B]
	byKey := make(map[K]*bucket[K, B])

	for i, req := range requests {
		key, err := keyOf(req)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		b, ok := byKey[key]
		if !ok {
			b = &bucket[K, B]{key: key}
			byKey[key] = b
			buckets = append(buckets, b)
		}
		if err := accumulate(req, &b.pending); err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		b.indices = append(b.indices, i)
	}

	units := make([]Unit[T], 0, len(buckets))
	for _, b := range buckets {
		run, err := finalize(b.key, b.pending)
		if err != nil {
			return nil, err
		}
		if run == nil {
			continue
		}
		units = append(units, Unit[T]{Indices: b.indices, run: run})
	}
	return units, nil
}

// Join runs every unit concurrently and waits for all of them. The first error
// cancels the rest and is returned; no partial result is produced. Each unit must
// return exactly one result per covered request. Results come back ordered by
// original request position.
func Join[T any](ctx context.Context, units []Unit[T]) ([]T, error) {
	if len(units) == 0 {
		return nil, nil
	}
	outputs := make([][]T, len(units))

	g, gctx := errgroup.WithContext(ctx)
	for i, u := range units {
		g.Go(func() error {
			res, err := u.run(gctx)
			if err != nil {
				return err
			}
			if len(res) != len(u.Indices) {
				return domain.NewServiceError(fmt.Sprintf(
					"batched call returned %d results for %d requests", len(res), len(u.Indices)))
			}
			outputs[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	type placed struct {
		index int
		value T
	}
	var all []placed
	for i, u := range units {
		for j, idx := range u.Indices {
			all = append(all, placed{index: idx, value: outputs[i][j]})
		}
	}
	sort.Slice(all, func(a, b int) bool { return all[a].index < all[b].index })

	out := make([]T, len(all))
	for i, p := range all {
		out[i] = p.value
	}
	return out, nil
}

// Do is Batch followed by Join.
func Do[R any, K comparable, B any, T any](
	ctx context.Context,
	requests []R,
	keyOf func(R) (K, error),
	accumulate func(R, *B) error,
	finalize func(K, B) (RunFunc[T], error),
) ([]T, error) {
	units, err := Batch(requests, keyOf, accumulate, finalize)
	if err != nil {
		return nil, err
	}
	return Join(ctx, units)
}
