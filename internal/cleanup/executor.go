package cleanup

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/aatumaykin/docsweep/internal/logger"
	"github.com/aatumaykin/docsweep/internal/retry"
)

// Remover deletes a single file.
type Remover func(path string) error

// Executor performs deletions. A failing file never aborts the batch.
type Executor struct {
	sessions *SessionTracker
	logger   *logger.Logger
	remove   Remover
	retry    retry.Config
	now      func() time.Time
}

// NewExecutor creates an executor. A nil remove defaults to os.Remove.
func NewExecutor(sessions *SessionTracker, log *logger.Logger, remove Remover) *Executor {
	if log == nil {
		log = logger.Nop()
	}
	if remove == nil {
		remove = os.Remove
	}
	if sessions == nil {
		sessions = NewSessionTracker()
	}
	return &Executor{
		sessions: sessions,
		logger:   log,
		remove:   remove,
		retry: retry.Config{
			MaxAttempts:    3,
			InitialBackoff: 50 * time.Millisecond,
			MaxBackoff:     500 * time.Millisecond,
		},
		now: time.Now,
	}
}

// Execute deletes every decision in order. Files that are already gone count
// as deleted. When ctx is cancelled the remaining decisions are skipped; the
// manager runs its batches under a non-cancellable context.
func (e *Executor) Execute(ctx context.Context, mode Mode, decisions []Decision) Result {
	res := Result{
		Mode:    mode,
		Deleted: []Deletion{},
		Failed:  []Failure{},
		Started: e.now(),
	}

	for i, d := range decisions {
		if ctx.Err() != nil {
			res.Skipped = len(decisions) - i
			e.logger.Warn("cleanup interrupted",
				logger.Field{Key: "mode", Value: string(mode)},
				logger.Field{Key: "skipped", Value: res.Skipped})
			break
		}

		err := retry.Do(ctx, func() error { return e.remove(d.Path) }, e.retry)
		gone := errors.Is(err, fs.ErrNotExist)

		switch {
		case err == nil || gone:
			freed := d.Size
			if gone {
				freed = 0
			}
			res.Deleted = append(res.Deleted, Deletion{
				Path:     d.Path,
				Category: d.Category,
				Reason:   d.Reason,
				Size:     freed,
			})
			res.BytesFreed += freed
			e.sessions.Forget(d.Path)

			result := "deleted"
			if gone {
				result = "already_gone"
			}
			e.logger.Info("file removed",
				logger.Field{Key: "path", Value: d.Path},
				logger.Field{Key: "category", Value: d.Category},
				logger.Field{Key: "reason", Value: string(d.Reason)},
				logger.Field{Key: "size", Value: FormatSize(d.Size)},
				logger.Field{Key: "result", Value: result})

		default:
			res.Failed = append(res.Failed, Failure{
				Path:     d.Path,
				Category: d.Category,
				Reason:   d.Reason,
				Err:      err,
			})
			e.logger.Error("file removal failed", err,
				logger.Field{Key: "path", Value: d.Path},
				logger.Field{Key: "category", Value: d.Category},
				logger.Field{Key: "reason", Value: string(d.Reason)},
				logger.Field{Key: "result", Value: "failed"})
		}
	}

	res.Finished = e.now()
	return res
}

// Preview reports what Execute would delete without touching the filesystem.
func (e *Executor) Preview(mode Mode, decisions []Decision) Result {
	res := Result{
		Mode:    mode,
		Deleted: make([]Deletion, 0, len(decisions)),
		Failed:  []Failure{},
		DryRun:  true,
		Started: e.now(),
	}
	for _, d := range decisions {
		res.Deleted = append(res.Deleted, Deletion{
			Path:     d.Path,
			Category: d.Category,
			Reason:   d.Reason,
			Size:     d.Size,
		})
		res.BytesFreed += d.Size
		e.logger.Info("would remove file",
			logger.Field{Key: "path", Value: d.Path},
			logger.Field{Key: "category", Value: d.Category},
			logger.Field{Key: "reason", Value: string(d.Reason)},
			logger.Field{Key: "size", Value: FormatSize(d.Size)},
			logger.Field{Key: "result", Value: "dry_run"})
	}
	res.Finished = e.now()
	return res
}
