package cryptox

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool runs CPU-bound jobs on at most a fixed number of goroutines.
//
// Do waits for a free slot and then for the job. If ctx ends first, Do
// returns ctx.Err(); an admitted job still runs to completion and frees
// its slot afterwards.
type Pool struct {
	sem      *semaphore.Weighted
	size     int
	inflight atomic.Int64
}

// NewPool returns a pool with the given number of workers. A non-positive
// value means runtime.NumCPU().
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers)), size: workers}
}

func (p *Pool) Do(ctx context.Context, job func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	p.inflight.Add(1)
	done := make(chan error, 1)

	go func() {
		defer p.sem.Release(1)
		defer p.inflight.Add(-1)
		done <- job()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InFlight reports how many jobs are running right now.
func (p *Pool) InFlight() int64 {
	return p.inflight.Load()
}

func (p *Pool) Size() int {
	return p.size
}
