package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aatumaykin/docsweep/internal/cleanup"
	"github.com/aatumaykin/docsweep/internal/config"
	"github.com/aatumaykin/docsweep/internal/logger"
	"github.com/aatumaykin/docsweep/internal/pidfile"
)

const shutdownTimeout = 15 * time.Second

// Shutdown performs graceful shutdown of all components.
// It stops the application in the following order:
//  1. Cancels the application context
//  2. Stops the admin API and the config watcher
//  3. Stops the cron scheduler
//  4. Runs the session teardown and stops the monitor loop
//  5. Stops the worker pool and releases the PID lock
//
// The method is thread-safe and can be called from multiple goroutines.
func (a *App) Shutdown() error {
	// Reload must not touch components from here on.
	a.reloadMu.Lock()
	a.closed = true
	a.reloadMu.Unlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.shutdownInternal()
}

// shutdownInternal performs shutdown while the caller holds a.mu.
func (a *App) shutdownInternal() error {
	if !a.started {
		return nil
	}

	a.cancel()

	var errs []error

	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.logger.Error("failed to stop admin API", err)
			errs = append(errs, fmt.Errorf("admin API: %w", err))
		}
		cancel()
	}

	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Error("failed to stop config watcher", err)
		}
	}

	if a.cronScheduler != nil && a.cronScheduler.IsStarted() {
		if err := a.cronScheduler.Stop(); err != nil {
			a.logger.Error("failed to stop cron scheduler", err)
		}
	}

	if a.shutdownHook != nil {
		res := a.shutdownHook.Run(context.Background())
		if len(res.Failed) > 0 {
			errs = append(errs, fmt.Errorf("session teardown left %d files", len(res.Failed)))
		}
	}

	if a.workerPool != nil {
		a.workerPool.Stop()
	}

	if a.pidLocked {
		if err := pidfile.Release(a.workspace.Path()); err != nil {
			a.logger.Error("failed to remove PID file", err)
		}
		a.pidLocked = false
	}

	a.started = false
	a.logger.Info("application shutdown complete")

	return errors.Join(errs...)
}

// Reload applies a freshly loaded configuration: the cleanup policy is swapped
// atomically and the cron schedules are rebuilt. Logging, API and metrics
// settings take effect on the next start.
func (a *App) Reload(cfg *config.Config) {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	if a.closed || cfg == nil {
		return
	}

	a.mu.Lock()
	a.config = cfg
	manager := a.manager
	a.mu.Unlock()

	if manager == nil {
		return
	}
	manager.Reload(cleanup.NewPolicy(cfg))

	if err := a.reloadSchedules(cfg.Schedules); err != nil {
		a.logger.Error("failed to reload schedules", err)
	}

	a.logger.Info("configuration applied",
		logger.Field{Key: "enabled", Value: cfg.AutoCleanup.Enabled},
		logger.Field{Key: "check_interval_seconds", Value: cfg.AutoCleanup.CheckIntervalSeconds},
		logger.Field{Key: "schedules", Value: len(cfg.Schedules)})
}

func (a *App) reloadSchedules(schedules []config.ScheduleConfig) error {
	if a.cronScheduler == nil {
		if len(schedules) == 0 {
			return nil
		}
		return a.startScheduler(schedules)
	}

	for _, job := range a.cronScheduler.ListJobs() {
		if err := a.cronScheduler.RemoveJob(job.ID); err != nil {
			return err
		}
	}
	return a.cronScheduler.LoadFromConfig(schedules)
}
