package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/aatumaykin/docsweep/internal/logger"
)

// worker is the main worker goroutine that processes tasks from the queue.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("worker started",
		logger.Field{Key: "worker_id", Value: id})

	for {
		select {
		case task := <-p.taskQueue:
			p.processTask(id, task)

		case <-p.ctx.Done():
			p.logger.Debug("worker stopping",
				logger.Field{Key: "worker_id", Value: id})
			return
		}
	}
}

// processTask handles a single task execution with metrics and error handling.
func (p *WorkerPool) processTask(workerID int, task Task) {
	startTime := time.Now()

	p.logger.Debug("processing task",
		logger.Field{Key: "worker_id", Value: workerID},
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_type", Value: task.Type})

	// Use task context if provided, otherwise use pool context
	execCtx := p.ctx
	if task.Context != nil {
		execCtx = task.Context
	}

	result := p.executeTask(execCtx, task)
	result.Duration = time.Since(startTime)

	if result.Error != nil {
		p.incrementFailed()
	} else {
		p.incrementCompleted()
	}
	p.recordDuration(result.Duration)

	// reply is buffered for the whole batch, the send never blocks
	if task.reply != nil {
		task.reply <- result
	}

	p.logger.Debug("task processed",
		logger.Field{Key: "worker_id", Value: workerID},
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "duration_ms", Value: result.Duration.Milliseconds()},
		logger.Field{Key: "error", Value: result.Error})
}

// executeTask runs the task executor, turning a panic into a task error so the worker survives.
func (p *WorkerPool) executeTask(ctx context.Context, task Task) (result Result) {
	result = Result{TaskID: task.ID, index: task.index}

	defer func() {
		if r := recover(); r != nil {
			result.Output = nil
			result.Error = fmt.Errorf("task %s panicked: %v", task.ID, r)
			p.logger.Error("task panic recovered", result.Error,
				logger.Field{Key: "task_id", Value: task.ID})
		}
	}()

	if task.Exec == nil {
		result.Error = fmt.Errorf("task %s has no executor", task.ID)
		return result
	}
	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	result.Output, result.Error = task.Exec(ctx)
	return result
}
