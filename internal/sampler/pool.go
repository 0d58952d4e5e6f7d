package sampler

import (
	"sync"
)

// WorkerPool runs independent per-particle work on a bounded number of
// goroutines.
type WorkerPool struct {
	numWorkers int
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 10 // Default to 10 workers
	}
	return &WorkerPool{
		numWorkers: numWorkers,
	}
}

// Workers returns the configured number of workers.
func (wp *WorkerPool) Workers() int {
	return wp.numWorkers
}

// Run calls fn(i) for every i in [0, n) and waits for all of them.
//
// fn must only touch state owned by index i. The returned error is the one
// from the lowest failing index, so the result does not depend on scheduling.
func (wp *WorkerPool) Run(n int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}

	numActualWorkers := wp.numWorkers
	if n < numActualWorkers {
		numActualWorkers = n // Don't spawn more workers than jobs
	}
	if numActualWorkers == 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	jobs := make(chan int, n)
	results := make(chan resultItem, n)

	var wg sync.WaitGroup
	for w := 0; w < numActualWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(jobs, results, fn)
		}()
	}

	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	firstIndex := n
	var firstErr error
	for result := range results {
		if result.err != nil && result.index < firstIndex {
			firstIndex = result.index
			firstErr = result.err
		}
	}
	return firstErr
}

// resultItem represents the outcome of one job
type resultItem struct {
	index int
	err   error
}

func worker(jobs <-chan int, results chan<- resultItem, fn func(i int) error) {
	for i := range jobs {
		results <- resultItem{index: i, err: fn(i)}
	}
}
