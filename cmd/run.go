package cmd

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// errFilesFailed is returned when at least one file could not be processed.
var errFilesFailed = errors.New("some files failed")

// forEachFile calls fn for every path with at most jobs calls in flight.
// fn reports its own failure per file; forEachFile only stops early when ctx
// is cancelled.
func forEachFile(ctx context.Context, jobs int, paths []string, fn func(ctx context.Context, i int, path string) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, jobs))

	failed := make([]bool, len(paths))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, i, path); err != nil {
				failed[i] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	n := 0
	for _, f := range failed {
		if f {
			n++
		}
	}
	if n > 0 {
		return fmt.Errorf("%w: %d of %d", errFilesFailed, n, len(paths))
	}
	return nil
}
