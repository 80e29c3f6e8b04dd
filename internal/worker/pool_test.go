package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countJob struct {
	counter *atomic.Int64
	err     error
}

type countResult struct{ err error }

func (r countResult) GetError() error { return r.err }

func (j countJob) Execute(ctx context.Context) Result {
	j.counter.Add(1)
	return countResult{err: j.err}
}

func TestRunAllExecutesEveryJob(t *testing.T) {
	var counter atomic.Int64
	jobs := make([]Job, 20)
	for i := range jobs {
		jobs[i] = countJob{counter: &counter}
	}

	results := RunAll(context.Background(), 4, jobs)

	if len(results) != 20 {
		t.Fatalf("expected 20 results, got %d", len(results))
	}
	if counter.Load() != 20 {
		t.Errorf("expected 20 executions, got %d", counter.Load())
	}
}

func TestRunAllEmptyJobs(t *testing.T) {
	if results := RunAll(context.Background(), 4, nil); results != nil {
		t.Errorf("expected nil results for no jobs, got %v", results)
	}
}

func TestRunAllCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var counter atomic.Int64
	jobs := []Job{countJob{counter: &counter}, countJob{counter: &counter}}

	done := make(chan struct{})
	go func() {
		RunAll(ctx, 2, jobs)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunAll did not return promptly on cancelled context")
	}
}

func TestLimiterWaitUnparseableURL(t *testing.T) {
	limiter := NewLimiter(10, 1)
	if err := limiter.Wait(context.Background(), "://nope"); err == nil {
		t.Error("expected error for unparseable URL")
	}
}

func TestLimiterPacesSameDomain(t *testing.T) {
	limiter := NewLimiter(50, 1)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx, "https://www.douyin.com/video/1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// burst of 1 at 50 rps: two waits of ~20ms each
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expected pacing between same-domain requests, elapsed %v", elapsed)
	}
}
