package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEach runs action for every element in its own goroutine, at most limit
// at a time (limit <= 0 means unbounded). The context passed to action is
// cancelled as soon as one action fails; ForEach returns the first error.
func ForEach[T any](ctx context.Context, items []T, limit int, action func(ctx context.Context, idx int, item T) error) error {
	group, groupCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}

	for idx, item := range items {
		if groupCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			return action(groupCtx, idx, item)
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	// the group context is always done after Wait, the caller's is not
	return ctx.Err()
}

// Map applies mapFn to each element in parallel, preserving order.
// The limit parameter controls the number of goroutines.
func Map[T any, R any](ctx context.Context, items []T, limit int, mapFn func(ctx context.Context, idx int, item T) (R, error)) ([]R, error) {
	out := make([]R, len(items))
	err := ForEach(ctx, items, limit, func(ctx context.Context, idx int, item T) error {
		r, err := mapFn(ctx, idx, item)
		if err != nil {
			return err
		}
		out[idx] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Range returns the indices 0..n-1, handy as ForEach input.
func Range(n int) []int {
	out := make([]int, max(n, 0))
	for i := range out {
		out[i] = i
	}
	return out
}
