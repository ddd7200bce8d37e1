package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// RunBatch applies fn to every input with at most workers goroutines.
// Results keep input order. It stops early only when ctx is cancelled.
func RunBatch[In, Out any](ctx context.Context, inputs []In, workers int, fn func(In) Out) ([]Out, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]Out, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = fn(in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Mean is the arithmetic mean, 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
