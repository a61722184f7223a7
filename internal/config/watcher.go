package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/aatumaykin/docsweep/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a configuration file when it changes on disk.
// Events are debounced so an editor's write+rename sequence yields a single reload.
// The parent directory is watched because editors usually replace the file.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *logger.Logger
	watcher  *fsnotify.Watcher

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for the configuration file at path.
func NewWatcher(path string, debounce time.Duration, log *logger.Logger) (*Watcher, error) {
	if log == nil {
		log = logger.Nop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:     abs,
		debounce: debounce,
		logger:   log.With(logger.Field{Key: "component", Value: "config.watcher"}),
		watcher:  fw,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks until ctx is cancelled or Stop is called. onReload receives
// every successfully loaded configuration; failed loads are logged and the
// caller keeps its current configuration.
func (w *Watcher) Watch(ctx context.Context, onReload func(*Config)) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer close(w.doneCh)

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.logger.Info("config watcher started",
		logger.Field{Key: "path", Value: w.path},
		logger.Field{Key: "debounce_ms", Value: w.debounce.Milliseconds()})

	for {
		select {
		case <-ctx.Done():
			w.cancelTimer()
			return nil

		case <-w.stopCh:
			w.cancelTimer()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("config file event",
				logger.Field{Key: "op", Value: event.Op.String()})
			w.schedule(func() { w.reload(onReload) })

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("config watcher error", err)
		}
	}
}

// Stop stops watching and releases the fsnotify handle.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	// Remove and Rename are followed by Create when an editor swaps the file.
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	return filepath.Clean(event.Name) == w.path
}

func (w *Watcher) schedule(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, fn)
}

func (w *Watcher) cancelTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) reload(onReload func(*Config)) {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error("config reload failed, keeping last-good configuration", err)
		return
	}
	w.logger.Info("config reloaded")
	onReload(cfg)
}
