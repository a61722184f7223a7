// Package workers provides a bounded goroutine pool for blocking background work.
// The cleanup engine uses it to walk category directories concurrently so that
// filesystem IO stays off request-handling goroutines.
package workers

import (
	"context"
	"errors"
	"time"
)

// ErrPoolStopped is returned for tasks that could not run because the pool was stopped.
var ErrPoolStopped = errors.New("worker pool stopped")

// TaskExecutor is the unit of work run by a worker.
type TaskExecutor func(ctx context.Context) (any, error)

// Task represents a unit of work to be executed by a worker.
type Task struct {
	ID      string          // Task identifier, used in logs
	Type    string          // Task type, e.g. "scan"
	Context context.Context // Task-specific context for cancellation/timeout
	Exec    TaskExecutor

	index int
	reply chan<- Result
}

// Result represents the outcome of a task execution.
type Result struct {
	TaskID   string
	Output   any
	Error    error
	Duration time.Duration

	index int
}

// PoolMetrics tracks execution metrics for the worker pool.
type PoolMetrics struct {
	TasksSubmitted uint64
	TasksCompleted uint64
	TasksFailed    uint64
	TotalDuration  time.Duration
}

// Constants for worker pool configuration
const (
	DefaultPoolSize  = 4
	DefaultQueueSize = 64
)
