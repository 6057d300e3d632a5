// Package parallel runs independent jobs, such as separate sketch runs, on a bounded pool
// of goroutines. Every sketch owns its BDD context, so jobs share no state.
package parallel

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/dd0wney/cluso-sketch/pkg/logging"
)

// WorkerPool manages a pool of worker goroutines
type WorkerPool struct {
	workers   int
	taskQueue chan func()
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // Protects taskQueue from concurrent close during send
	closed    bool         // Protected by mu
	logger    logging.Logger
}

// ErrTooManyWorkers is returned when the worker count exceeds the maximum allowed.
var ErrTooManyWorkers = fmt.Errorf("worker count exceeds maximum")

// ErrPanic wraps a panic raised by a job run through Map.
var ErrPanic = fmt.Errorf("job panicked")

// MaxWorkers is the maximum number of workers allowed in a pool.
const MaxWorkers = math.MaxInt / 2

// NewWorkerPool creates a pool with the given number of workers; zero or less means one.
// A nil logger discards panic reports.
func NewWorkerPool(workers int, logger logging.Logger) (*WorkerPool, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers*2),
		logger:    logger.With(logging.Component("worker-pool")),
	}
	pool.start()
	return pool, nil
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int { return wp.workers }

func (wp *WorkerPool) start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		// A panicking task must not take the worker down.
		func() {
			defer func() {
				if r := recover(); r != nil {
					wp.logger.Error("worker panic recovered",
						logging.Int("worker", id),
						logging.Any("panic", r))
				}
			}()
			task()
		}()
	}
}

// Submit adds a task to the pool. It returns false if the pool is closed.
func (wp *WorkerPool) Submit(task func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return false
	}
	wp.taskQueue <- task
	return true
}

// Close stops accepting tasks and waits for the queued ones to finish.
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}

// Wait waits for all submitted tasks to complete. The pool cannot be reused afterwards.
func (wp *WorkerPool) Wait() {
	wp.Close()
}

// Outcome is the result of one job run by Map.
type Outcome[R any] struct {
	Index  int
	Result R
	Err    error
}

// Map runs fn over inputs on a pool of the given size and returns the outcomes in input
// order. Inputs not started before ctx is done get ctx.Err(); a panicking job gets an error
// wrapping ErrPanic.
func Map[T, R any](ctx context.Context, workers int, logger logging.Logger, inputs []T, fn func(context.Context, T) (R, error)) ([]Outcome[R], error) {
	pool, err := NewWorkerPool(workers, logger)
	if err != nil {
		return nil, err
	}
	out := make([]Outcome[R], len(inputs))
	for i, in := range inputs {
		out[i].Index = i
		pool.Submit(func() {
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				return
			}
			defer func() {
				if r := recover(); r != nil {
					out[i].Err = fmt.Errorf("%w: %v", ErrPanic, r)
				}
			}()
			out[i].Result, out[i].Err = fn(ctx, in)
		})
	}
	pool.Wait()
	return out, nil
}
