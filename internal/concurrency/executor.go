// File: internal/concurrency/executor.go
// Package concurrency implements a bounded worker pool used to take
// CPU-bound message handling off event loop goroutines.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-tcp/api"
)

// TaskFunc is a unit of work to execute.
type TaskFunc func()

// Executor manages a fixed pool of worker goroutines fed by a bounded queue.
type Executor struct {
	tasks   chan TaskFunc
	mu      sync.RWMutex // orders Submit against Close
	closed  bool
	wg      sync.WaitGroup
	workers int
	logger  zerolog.Logger

	// statistics
	totalTasks     atomic.Int64
	completedTasks atomic.Int64
	panics         atomic.Int64
}

// NewExecutor creates an Executor with numWorkers goroutines and room for
// queueSize waiting tasks. Non-positive values default to runtime.NumCPU()
// workers and four queued tasks per worker.
func NewExecutor(numWorkers, queueSize int, logger zerolog.Logger) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = numWorkers * 4
	}
	e := &Executor{
		tasks:   make(chan TaskFunc, queueSize),
		workers: numWorkers,
		logger:  logger,
	}
	e.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go e.run(i)
	}
	return e
}

// Submit enqueues a task without blocking. It fails with api.ErrExecutorBusy
// when the queue is full and api.ErrExecutorClosed after Close.
func (e *Executor) Submit(task TaskFunc) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return api.ErrExecutorClosed
	}
	select {
	case e.tasks <- task:
		e.totalTasks.Add(1)
		return nil
	default:
		return api.ErrExecutorBusy
	}
}

// NumWorkers returns the number of worker goroutines.
func (e *Executor) NumWorkers() int {
	return e.workers
}

// Close stops accepting tasks, lets workers finish the queued ones and waits
// for them to exit. Idempotent.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.tasks)
	e.mu.Unlock()
	e.wg.Wait()
}

// Stats returns basic executor metrics.
func (e *Executor) Stats() map[string]int64 {
	total := e.totalTasks.Load()
	completed := e.completedTasks.Load()
	return map[string]int64{
		"total_tasks":     total,
		"completed_tasks": completed,
		"pending_tasks":   total - completed,
		"panics":          e.panics.Load(),
		"num_workers":     int64(e.workers),
	}
}

func (e *Executor) run(id int) {
	defer e.wg.Done()
	for task := range e.tasks {
		e.execute(id, task)
	}
}

// execute runs the task, recovering panics so the worker survives.
func (e *Executor) execute(id int, task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			e.panics.Add(1)
			e.logger.Error().Int("worker", id).Str("panic", fmt.Sprint(r)).Msg("executor task panicked")
		}
		e.completedTasks.Add(1)
	}()
	task()
}
