package config

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[auto_cleanup]\ncheck_interval_seconds = 300\n")

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	require.NoError(t, err)

	var interval atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(cfg *Config) {
			interval.Store(int64(cfg.AutoCleanup.CheckIntervalSeconds))
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)
	writeFile(t, path, "[auto_cleanup]\ncheck_interval_seconds = 42\n")

	assert.Eventually(t, func() bool { return interval.Load() == 42 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Stop())
	assert.NoError(t, <-done)
}

func TestWatcher_InvalidFileKeepsLastGood(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[auto_cleanup]\ncheck_interval_seconds = 300\n")

	w, err := NewWatcher(path, 10*time.Millisecond, nil)
	require.NoError(t, err)

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(*Config) { reloads.Add(1) })
	}()

	time.Sleep(50 * time.Millisecond)
	writeFile(t, path, "[auto_cleanup]\ncheck_interval_seconds = -1\n")
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, int32(0), reloads.Load())

	cancel()
	assert.NoError(t, <-done)
	assert.NoError(t, w.Stop())
}
