// Package batch processes ordered work in fixed-size groups. All items of a
// group run concurrently and must settle before the next group starts; a
// configurable pause separates groups so downstream services are not hammered.
package batch

import (
	"context"
	"sync"
	"time"
)

// Result is the outcome of one item. Exactly one of Value/Err is meaningful.
type Result[T any] struct {
	Value T
	Err   error
}

// Process runs fn over items in groups of size, pausing between groups.
// Results are returned in input order; one item's failure never aborts or
// delays its siblings.
func Process[I, O any](ctx context.Context, items []I, size int, pause time.Duration, fn func(ctx context.Context, item I) (O, error)) []Result[O] {
	if size <= 0 {
		size = 1
	}

	results := make([]Result[O], len(items))

	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				value, err := fn(ctx, items[idx])
				results[idx] = Result[O]{Value: value, Err: err}
			}(i)
		}
		wg.Wait()

		if end < len(items) && pause > 0 {
			select {
			case <-time.After(pause):
			case <-ctx.Done():
				// Mark the remaining items as cancelled and stop.
				for i := end; i < len(items); i++ {
					results[i] = Result[O]{Err: ctx.Err()}
				}
				return results
			}
		}
	}

	return results
}
