package requester

import (
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
)

// WorkerPool runs backend fetches on a bounded set of goroutines
type WorkerPool struct {
	pool       *ants.Pool
	wg         sync.WaitGroup
	isShutdown atomic.Bool

	// Metrics
	submitted atomic.Int64
	completed atomic.Int64
	panics    atomic.Int64
}

// WorkerPoolOptions configures the worker pool
type WorkerPoolOptions struct {
	Size        int
	MaxBlocking int
}

// DefaultWorkerPoolOptions returns sensible defaults
func DefaultWorkerPoolOptions() *WorkerPoolOptions {
	return &WorkerPoolOptions{
		Size:        8,
		MaxBlocking: 64,
	}
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(opts *WorkerPoolOptions) (*WorkerPool, error) {
	if opts == nil {
		opts = DefaultWorkerPoolOptions()
	}

	pool, err := ants.NewPool(
		opts.Size,
		ants.WithMaxBlockingTasks(opts.MaxBlocking),
	)
	if err != nil {
		return nil, err
	}

	return &WorkerPool{
		pool: pool,
	}, nil
}

// Submit adds a task to the worker pool
func (wp *WorkerPool) Submit(task func()) error {
	if wp.isShutdown.Load() {
		return ants.ErrPoolClosed
	}

	wp.submitted.Add(1)
	wp.wg.Add(1)

	err := wp.pool.Submit(func() {
		defer wp.wg.Done()
		defer wp.completed.Add(1)
		defer func() {
			// panics are counted, not propagated
			if r := recover(); r != nil {
				wp.panics.Add(1)
			}
		}()
		task()
	})
	if err != nil {
		wp.wg.Done()
		wp.submitted.Add(-1)
	}
	return err
}

// Wait blocks until all submitted tasks complete
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// Shutdown rejects new tasks, waits for running ones and releases workers
func (wp *WorkerPool) Shutdown() {
	if wp.isShutdown.Swap(true) {
		return
	}
	wp.Wait()
	wp.pool.Release()
}

// PoolStats holds worker pool counters
type PoolStats struct {
	Running   int
	Capacity  int
	Submitted int64
	Completed int64
	Panics    int64
}

// Stats returns current worker pool statistics
func (wp *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Running:   wp.pool.Running(),
		Capacity:  wp.pool.Cap(),
		Submitted: wp.submitted.Load(),
		Completed: wp.completed.Load(),
		Panics:    wp.panics.Load(),
	}
}

// Tune adjusts the pool size, used when the poll worker count is reloaded
func (wp *WorkerPool) Tune(size int) {
	wp.pool.Tune(size)
}
