package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aatumaykin/docsweep/internal/api"
	"github.com/aatumaykin/docsweep/internal/cleanup"
	"github.com/aatumaykin/docsweep/internal/config"
	"github.com/aatumaykin/docsweep/internal/cron"
	"github.com/aatumaykin/docsweep/internal/logger"
	"github.com/aatumaykin/docsweep/internal/pidfile"
	"github.com/aatumaykin/docsweep/internal/workers"
	"github.com/aatumaykin/docsweep/internal/workspace"
)

const readHeaderTimeout = 10 * time.Second

// Initialize initializes all application components.
// It sets up the workspace, metrics, worker pool, cleanup manager,
// cron scheduler, admin API and config watcher.
func (a *App) Initialize(ctx context.Context) error {
	a.reloadMu.Lock()
	a.closed = false
	a.reloadMu.Unlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return fmt.Errorf("application already initialized")
	}

	// 1. Create application context
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.started = true

	// 2. Initialize workspace and take the PID lock
	a.workspace = workspace.New(a.config.AutoCleanup.BaseDir)
	if err := a.workspace.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create base directory: %w", err)
	}
	if err := pidfile.Acquire(a.workspace.Path()); err != nil {
		return err
	}
	a.pidLocked = true

	// 3. Metrics
	if a.config.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.metrics = cleanup.InitPrometheusMetrics(a.config.Metrics.Namespace, a.registry)
	}

	// 4. Worker pool for category scans
	a.workerPool = workers.NewPool(workers.DefaultPoolSize, workers.DefaultQueueSize, a.logger)
	a.workerPool.Start()

	// 5. Cleanup manager and teardown hook
	a.manager = cleanup.NewManager(cleanup.NewPolicy(a.config), cleanup.Options{
		Logger:  a.logger,
		Metrics: a.metrics,
		Pool:    a.workerPool,
	})
	a.shutdownHook = cleanup.NewShutdownHook(a.manager, a.logger)
	a.manager.Start(a.ctx)

	// 6. Cron scheduler if any schedule is configured
	if len(a.config.Schedules) > 0 {
		if err := a.startScheduler(a.config.Schedules); err != nil {
			return err
		}
	}

	// 7. Admin API if enabled
	if a.config.API.Enabled {
		if err := a.startAPI(); err != nil {
			return err
		}
	}

	// 8. Config watcher if enabled
	if a.config.Watch.Enabled && a.configPath != "" {
		if err := a.startWatcher(); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) startScheduler(schedules []config.ScheduleConfig) error {
	s := cron.NewScheduler(a.manager, a.logger)
	if err := s.LoadFromConfig(schedules); err != nil {
		return fmt.Errorf("failed to load schedules: %w", err)
	}
	if err := s.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start cron scheduler: %w", err)
	}
	a.cronScheduler = s
	return nil
}

func (a *App) startAPI() error {
	ln, err := net.Listen("tcp", a.config.API.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.config.API.Listen, err)
	}

	var gatherer prometheus.Gatherer
	if a.registry != nil {
		gatherer = a.registry
	}
	if a.config.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(a.manager, a.workspace, gatherer, a.logger)

	a.listener = ln
	a.httpServer = &http.Server{
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(a.logger.StdLogger().Handler(), slog.LevelWarn),
	}

	go func() {
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("admin API stopped", err)
		}
	}()

	a.logger.Info("admin API listening", logger.Field{Key: "addr", Value: ln.Addr().String()})
	return nil
}

func (a *App) startWatcher() error {
	debounce := time.Duration(a.config.Watch.DebounceMS) * time.Millisecond
	w, err := config.NewWatcher(a.configPath, debounce, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	a.watcher = w

	go func() {
		if err := w.Watch(a.ctx, a.Reload); err != nil {
			a.logger.Error("config watcher stopped", err)
		}
	}()
	return nil
}
