package cleanup

import (
	"context"
	"sync"

	"github.com/aatumaykin/docsweep/internal/logger"
)

// ShutdownHook runs the session teardown sweep and stops the monitor loop,
// exactly once no matter how many times or from where it is triggered.
type ShutdownHook struct {
	manager *Manager
	logger  *logger.Logger

	once   sync.Once
	done   chan struct{}
	result Result
}

// NewShutdownHook creates a hook for m.
func NewShutdownHook(m *Manager, log *logger.Logger) *ShutdownHook {
	if log == nil {
		log = logger.Nop()
	}
	return &ShutdownHook{
		manager: m,
		logger:  log,
		done:    make(chan struct{}),
	}
}

// Run performs the teardown sweep and then stops the monitor loop. Later
// calls wait for the first one and return its result. Safe to call when the
// monitor loop was never started.
func (h *ShutdownHook) Run(ctx context.Context) Result {
	h.once.Do(func() {
		defer close(h.done)

		h.logger.Info("shutdown hook fired, running session teardown")
		h.result = h.manager.Teardown(ctx)
		h.manager.Stop()

		h.logger.Info("session teardown finished",
			logger.Field{Key: "deleted", Value: len(h.result.Deleted)},
			logger.Field{Key: "failed", Value: len(h.result.Failed)})
	})
	<-h.done
	return h.result
}
