// Package jobs provides the bounded worker pool used by stages that fan out
// across chapters or categories. One pool is created per stage invocation and
// fully drained before the stage returns, which is what enforces the strict
// stage barrier: stage N+1 never observes partial output from stage N.
package jobs

import (
	"context"
	"log/slog"
	"sync"
)

// Task is a named unit of work within a stage. Names key the per-unit
// artifact (category or chapter), so no two tasks share a name.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result pairs a task name with its outcome.
type Result struct {
	Name string
	Err  error
}

// Pool runs tasks across a fixed number of workers. Work is I/O bound
// (blocking capability calls), so the worker count is a caller-supplied
// concurrency cap rather than a CPU count.
type Pool struct {
	workers int
	logger  *slog.Logger
}

// NewPool creates a pool. A worker count below 1 means sequential execution.
func NewPool(workers int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{workers: workers, logger: logger}
}

// Run executes all tasks and blocks until every worker has finished. One
// task's failure is recorded and logged but does not block or cancel its
// siblings; there is no cross-worker cancellation beyond ctx itself.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	workers := p.workers
	if workers > len(tasks) {
		workers = len(tasks)
	}

	queue := make(chan Task)
	results := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				if err := ctx.Err(); err != nil {
					results <- Result{Name: task.Name, Err: err}
					continue
				}
				err := task.Run(ctx)
				if err != nil {
					p.logger.Error("task failed", "task", task.Name, "error", err)
				} else {
					p.logger.Debug("task complete", "task", task.Name)
				}
				results <- Result{Name: task.Name, Err: err}
			}
		}()
	}

	for _, t := range tasks {
		queue <- t
	}
	close(queue)
	wg.Wait()
	close(results)

	out := make([]Result, 0, len(tasks))
	for r := range results {
		out = append(out, r)
	}
	return out
}

// Succeeded counts results without an error.
func Succeeded(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err == nil {
			n++
		}
	}
	return n
}
