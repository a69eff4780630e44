package worker

import (
	"context"
	"sync"

	"github.com/ivlasov/claimfold/internal/model"
)

// Task ingests one source. It must honor ctx and report failures
// through the source's metadata rather than panicking.
type Task func(ctx context.Context) model.Source

// Pool runs ingestion tasks with bounded concurrency, preserving input
// order in the results so source reports stay aligned with the request
// list regardless of completion order.
type Pool struct {
	workers int
}

// NewPool creates a pool with the given concurrency
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Run executes all tasks and returns one source per task, in task
// order. Tasks not yet started when ctx is cancelled produce a failed
// source instead of blocking.
func (p *Pool) Run(ctx context.Context, tasks []Task) []model.Source {
	results := make([]model.Source, len(tasks))
	semaphore := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(idx int, t Task) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = model.Source{Meta: model.SourceMeta{
					Status: model.StatusFailed,
					Error:  "cancelled: " + ctx.Err().Error(),
				}}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = t(ctx)
		}(i, task)
	}

	wg.Wait()
	return results
}
