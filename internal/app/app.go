// Package app provides the main application structure for docsweep.
// It coordinates the cleanup manager, the worker pool used for scans,
// cron-driven sweeps, the admin HTTP API and config hot reload.
package app

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aatumaykin/docsweep/internal/cleanup"
	"github.com/aatumaykin/docsweep/internal/config"
	"github.com/aatumaykin/docsweep/internal/cron"
	"github.com/aatumaykin/docsweep/internal/logger"
	"github.com/aatumaykin/docsweep/internal/workers"
	"github.com/aatumaykin/docsweep/internal/workspace"
)

// App represents the main application structure.
// It holds references to all major components and manages their lifecycle.
type App struct {
	// Configuration and core services
	config     *config.Config
	configPath string
	logger     *logger.Logger
	workspace  *workspace.Workspace
	pidLocked  bool

	// Metrics
	registry *prometheus.Registry
	metrics  *cleanup.Metrics

	// Background scans
	workerPool *workers.WorkerPool

	// Cleanup engine
	manager      *cleanup.Manager
	shutdownHook *cleanup.ShutdownHook

	// Scheduled sweeps
	cronScheduler *cron.Scheduler

	// Admin API
	httpServer *http.Server
	listener   net.Listener

	// Hot reload
	watcher *config.Watcher

	// Context management
	ctx    context.Context
	cancel context.CancelFunc

	// Thread-safety
	mu       sync.RWMutex
	started  bool
	reloadMu sync.Mutex // taken before mu, never inside it
	closed   bool
}

// New creates a new App instance with the provided configuration and logger.
// Only initializes config and logger fields; other components are initialized
// in the Initialize() method. configPath enables hot reload when watch.enabled
// is set; pass "" to disable it.
func New(cfg *config.Config, configPath string, log *logger.Logger) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &App{
		config:     cfg,
		configPath: configPath,
		logger:     log,
	}
}

// Run starts the application and blocks until the context is cancelled.
// It performs the following steps:
//  1. Initializes all components via Initialize()
//  2. Waits for the context to be cancelled
//  3. Performs graceful shutdown via Shutdown(), which runs the session teardown
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(ctx); err != nil {
		_ = a.Shutdown()
		return err
	}

	a.logger.Info("docsweep is running")

	<-ctx.Done()

	return a.Shutdown()
}

// Manager returns the cleanup manager. Nil before Initialize.
func (a *App) Manager() *cleanup.Manager {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.manager
}

// Addr returns the address the admin API listens on, or "" when it is disabled.
func (a *App) Addr() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}
