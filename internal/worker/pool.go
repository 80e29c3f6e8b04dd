// Package worker provides the bounded concurrency primitives used by the
// extraction stage (parallel frame OCR) and the fetch chain (per-domain
// request pacing).
package worker

import (
	"context"
	"sync"
)

// Job is a unit of extraction work. Jobs read immutable inputs and produce
// disjoint results, so no locking is needed beyond result collection.
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of one job.
type Result interface {
	GetError() error
}

// Pool runs jobs across a fixed number of workers.
type Pool struct {
	workers    int
	jobQueue   chan Job
	results    chan Result
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
}

func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2),
		results:    make(chan Result, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := job.Execute(p.ctx)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit enqueues a job for execution.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
	case p.jobQueue <- job:
	}
}

// Results exposes the result channel.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Stop cancels in-flight work and waits for the workers to exit. The job
// queue is never closed so a racing Submit can not panic; late submits are
// dropped via the cancelled context.
func (p *Pool) Stop() {
	p.closeOnce.Do(func() {
		p.cancelFunc()
		p.wg.Wait()
	})
}

// RunAll is the collect-everything convenience used for frame OCR: run
// every job through a bounded pool, return results in completion order.
// A cancelled context returns whatever completed before cancellation.
func RunAll(ctx context.Context, workers int, jobs []Job) []Result {
	if len(jobs) == 0 {
		return nil
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	pool := NewPool(workers)
	pool.Start()
	defer pool.Stop()

	go func() {
		for _, job := range jobs {
			select {
			case <-ctx.Done():
				return
			default:
				pool.Submit(job)
			}
		}
	}()

	results := make([]Result, 0, len(jobs))
	for i := 0; i < len(jobs); i++ {
		select {
		case <-ctx.Done():
			return results
		case result, ok := <-pool.Results():
			if !ok {
				return results
			}
			results = append(results, result)
		}
	}
	return results
}
