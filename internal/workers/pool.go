package workers

import (
	"context"
	"sync"

	"github.com/aatumaykin/docsweep/internal/logger"
)

// WorkerPool manages a pool of goroutine workers for concurrent task execution.
type WorkerPool struct {
	taskQueue chan Task
	workers   int
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *logger.Logger

	metricsMu sync.RWMutex
	metrics   PoolMetrics

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewPool creates a new worker pool with the specified configuration.
func NewPool(workers int, bufferSize int, log *logger.Logger) *WorkerPool {
	if workers <= 0 {
		workers = DefaultPoolSize
	}
	if bufferSize <= 0 {
		bufferSize = DefaultQueueSize
	}
	if log == nil {
		log = logger.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		taskQueue: make(chan Task, bufferSize),
		workers:   workers,
		ctx:       ctx,
		cancel:    cancel,
		logger:    log,
	}
}

// Start initializes and starts all worker goroutines. Calling Start more than once has no effect.
func (p *WorkerPool) Start() {
	p.startOnce.Do(func() {
		p.logger.Debug("starting worker pool",
			logger.Field{Key: "workers", Value: p.workers},
			logger.Field{Key: "buffer_size", Value: cap(p.taskQueue)})

		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
	})
}

// Submit enqueues a task. It blocks while the queue is full and fails when
// ctx is done or the pool is stopped.
func (p *WorkerPool) Submit(ctx context.Context, task Task) error {
	select {
	case <-p.ctx.Done():
		return ErrPoolStopped
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case p.taskQueue <- task:
		p.incrementSubmitted()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolStopped
	}
}

// Run executes tasks on the pool and waits for all of them. Results are
// returned in the order of tasks. Tasks that could not be submitted or were
// abandoned by a stopping pool carry the corresponding error.
func (p *WorkerPool) Run(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))
	replies := make(chan Result, len(tasks))
	pending := make(map[int]struct{}, len(tasks))

	for i, task := range tasks {
		task.index = i
		task.reply = replies
		if task.Context == nil {
			task.Context = ctx
		}
		if err := p.Submit(ctx, task); err != nil {
			results[i] = Result{TaskID: task.ID, Error: err, index: i}
			continue
		}
		pending[i] = struct{}{}
	}

	for len(pending) > 0 {
		select {
		case r := <-replies:
			results[r.index] = r
			delete(pending, r.index)
		case <-p.ctx.Done():
			// Workers may still reply for in-flight tasks; replies is buffered so they never block.
			for i := range pending {
				results[i] = Result{TaskID: tasks[i].ID, Error: ErrPoolStopped, index: i}
			}
			return results
		}
	}

	return results
}

// Stop gracefully shuts down the worker pool. Workers finish the task they
// are running; queued tasks are abandoned.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.wg.Wait()

		metrics := p.Metrics()
		p.logger.Debug("worker pool stopped",
			logger.Field{Key: "tasks_submitted", Value: metrics.TasksSubmitted},
			logger.Field{Key: "tasks_completed", Value: metrics.TasksCompleted},
			logger.Field{Key: "tasks_failed", Value: metrics.TasksFailed})
	})
}
