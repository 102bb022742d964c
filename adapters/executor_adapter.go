// File: adapters/executor_adapter.go
// Package adapters provides glue between internal concurrency and api.Executor.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package adapters

import (
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-tcp/api"
	"github.com/momentics/hioload-tcp/internal/concurrency"
)

// ExecutorAdapter wraps an internal concurrency.Executor to satisfy the api.Executor contract.
type ExecutorAdapter struct {
	exec *concurrency.Executor
}

var _ api.Executor = (*ExecutorAdapter)(nil)

// NewExecutorAdapter constructs an api.Executor with the given number of
// worker goroutines and queue capacity.
func NewExecutorAdapter(workers, queueSize int, logger zerolog.Logger) *ExecutorAdapter {
	return &ExecutorAdapter{exec: concurrency.NewExecutor(workers, queueSize, logger)}
}

// Submit dispatches a task function to be executed asynchronously.
func (ea *ExecutorAdapter) Submit(task func()) error {
	return ea.exec.Submit(task)
}

// NumWorkers returns the number of worker goroutines.
func (ea *ExecutorAdapter) NumWorkers() int {
	return ea.exec.NumWorkers()
}

// Close drains queued tasks and stops the workers.
func (ea *ExecutorAdapter) Close() {
	ea.exec.Close()
}

// Stats exposes executor counters.
func (ea *ExecutorAdapter) Stats() map[string]int64 {
	return ea.exec.Stats()
}
