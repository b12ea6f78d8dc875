package orchestrator

import (
	"context"
	"sync"
)

// indexed carries a worker result back to the collector.
type indexed[R any] struct {
	index int
	value R
}

// runPool applies fn to every item with at most workers goroutines.
// Results are gathered by the calling goroutine only, in item order.
// Once ctx is done no further item is started; items already running
// complete. done[i] reports whether item i ran.
func runPool[T, R any](ctx context.Context, workers int, items []T, fn func(context.Context, T) R) (results []R, done []bool) {
	results = make([]R, len(items))
	done = make([]bool, len(items))
	if len(items) == 0 {
		return results, done
	}
	workers = max(1, min(workers, len(items)))

	jobs := make(chan int, len(items))
	out := make(chan indexed[R], len(items))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					continue
				}
				out <- indexed[R]{index: idx, value: fn(ctx, items[idx])}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range items {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	for r := range out {
		results[r.index] = r.value
		done[r.index] = true
	}
	return results, done
}
