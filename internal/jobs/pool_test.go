package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestPoolRunsAllTasks(t *testing.T) {
	var ran atomic.Int64
	var tasks []Task
	for i := 0; i < 10; i++ {
		tasks = append(tasks, Task{
			Name: "task",
			Run: func(ctx context.Context) error {
				ran.Add(1)
				return nil
			},
		})
	}

	results := NewPool(3, nil).Run(context.Background(), tasks)
	if ran.Load() != 10 {
		t.Errorf("ran %d tasks, want 10", ran.Load())
	}
	if Succeeded(results) != 10 {
		t.Errorf("Succeeded() = %d, want 10", Succeeded(results))
	}
}

func TestPoolFailureIsolation(t *testing.T) {
	boom := errors.New("boom")
	var ran atomic.Int64
	tasks := []Task{
		{Name: "fails", Run: func(ctx context.Context) error { return boom }},
		{Name: "ok-1", Run: func(ctx context.Context) error { ran.Add(1); return nil }},
		{Name: "ok-2", Run: func(ctx context.Context) error { ran.Add(1); return nil }},
	}

	results := NewPool(1, nil).Run(context.Background(), tasks)

	if ran.Load() != 2 {
		t.Errorf("siblings of a failed task did not run: ran=%d", ran.Load())
	}
	if Succeeded(results) != 2 {
		t.Errorf("Succeeded() = %d, want 2", Succeeded(results))
	}

	var failed *Result
	for i := range results {
		if results[i].Name == "fails" {
			failed = &results[i]
		}
	}
	if failed == nil || !errors.Is(failed.Err, boom) {
		t.Errorf("failed task result = %+v", failed)
	}
}

func TestPoolEmptyTasks(t *testing.T) {
	if results := NewPool(4, nil).Run(context.Background(), nil); results != nil {
		t.Errorf("Run(nil) = %v, want nil", results)
	}
}

func TestPoolCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []Task{{Name: "t", Run: func(ctx context.Context) error {
		t.Error("task ran despite canceled context")
		return nil
	}}}
	results := NewPool(1, nil).Run(ctx, tasks)
	if Succeeded(results) != 0 {
		t.Errorf("Succeeded() = %d, want 0", Succeeded(results))
	}
}
