package hashpool

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool admits at most Workers concurrent jobs.
type Pool struct {
	sem     *semaphore.Weighted
	workers int64
	waiting atomic.Int64
}

// New returns a pool sized to workers, or GOMAXPROCS when workers <= 0.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		sem:     semaphore.NewWeighted(int64(workers)),
		workers: int64(workers),
	}
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return int(p.workers)
}

// Waiting returns the number of callers currently queued for a slot.
func (p *Pool) Waiting() int {
	return int(p.waiting.Load())
}

// Do waits for a free slot and runs fn on the calling goroutine. If ctx ends
// before a slot frees up, fn is not run and ctx.Err() is returned.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	p.waiting.Add(1)
	err := p.sem.Acquire(ctx, 1)
	p.waiting.Add(-1)
	if err != nil {
		return err
	}
	defer p.sem.Release(1)

	return fn()
}
