package pipeline

import "sync"

// parallelMapIndexed farms fn out across a bounded worker pool, one call per
// item, and assembles the results back into source order. Each worker writes
// its result into results[sourceIndex] directly; no collector goroutine is
// needed since slice index writes at disjoint indices are safe without
// synchronization, only the WaitGroup needs to order completion before the
// caller reads results.
func parallelMapIndexed[T any, R any](items []T, workers int, fn func(int, T) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	indices := make(chan int, len(items))
	for i := range items {
		indices <- i
	}
	close(indices)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indices {
				results[i] = fn(i, items[i])
			}
		}()
	}
	wg.Wait()

	return results
}

// parallelMap is parallelMapIndexed without the index parameter, for the
// common case where fn only needs the item.
func parallelMap[T any, R any](items []T, workers int, fn func(T) R) []R {
	return parallelMapIndexed(items, workers, func(_ int, item T) R { return fn(item) })
}
