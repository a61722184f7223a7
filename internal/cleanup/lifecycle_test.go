package cleanup

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/docsweep/internal/config"
)

func TestShutdownHook_TeardownIsExhaustive(t *testing.T) {
	cfg := newTestConfig(t)
	disabled := false
	cfg.CleanupRules["uploads"] = config.RuleConfig{Enabled: &disabled}
	base := cfg.AutoCleanup.BaseDir

	inCategory := writeAged(t, filepath.Join(base, "temp_images", "page-1.png"), 10, time.Second)
	inDisabled := writeAged(t, filepath.Join(base, "uploads", "scan.pdf"), 10, time.Hour)
	outside := writeAged(t, filepath.Join(t.TempDir(), "report.docx"), 10, time.Hour)
	neverExisted := filepath.Join(base, "temp_images", "ghost.png")
	untracked := writeAged(t, filepath.Join(base, "temp_images", "other.png"), 10, time.Second)

	m := newTestManager(t, cfg, Options{})
	for _, p := range []string{inCategory, inDisabled, outside, neverExisted} {
		m.RegisterSessionFile(p)
	}

	res := NewShutdownHook(m, nil).Run(context.Background())

	assert.Empty(t, res.Failed)
	assert.Len(t, res.Deleted, 4)
	for _, d := range res.Deleted {
		assert.Equal(t, ReasonSessionTeardown, d.Reason)
	}
	assert.NoFileExists(t, inCategory)
	assert.NoFileExists(t, inDisabled)
	assert.NoFileExists(t, outside)
	assert.FileExists(t, untracked)
	assert.Empty(t, m.Sessions().All())
}

func TestShutdownHook_RunsOnce(t *testing.T) {
	cfg := newTestConfig(t)
	var teardowns atomic.Int32
	m := newTestManager(t, cfg, Options{Extensions: []Extension{
		NewExtension("counter", func(_ context.Context, ev Event) error {
			if ev.Mode == ModeSessionTeardown {
				teardowns.Add(1)
			}
			return nil
		}),
	}})
	m.RegisterSessionFile(writeAged(t, filepath.Join(cfg.AutoCleanup.BaseDir, "cache", "a"), 1, 0))
	m.Start(context.Background())

	hook := NewShutdownHook(m, nil)

	var wg sync.WaitGroup
	results := make([]Result, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = hook.Run(context.Background())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), teardowns.Load())
	for _, r := range results {
		assert.Len(t, r.Deleted, 1)
	}
	assert.False(t, m.Running(), "hook stops the monitor loop")
}

func TestShutdownHook_SafeWithoutStart(t *testing.T) {
	m := newTestManager(t, newTestConfig(t), Options{})
	assert.NotPanics(t, func() {
		res := NewShutdownHook(m, nil).Run(context.Background())
		assert.Empty(t, res.Deleted)
	})
}

func TestShutdownHook_SessionCleanupDisabled(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.AutoCleanup.SessionCleanup = false
	path := writeAged(t, filepath.Join(cfg.AutoCleanup.BaseDir, "cache", "keep"), 1, 0)

	m := newTestManager(t, cfg, Options{})
	m.RegisterSessionFile(path)

	res := NewShutdownHook(m, nil).Run(context.Background())
	assert.Empty(t, res.Deleted)
	assert.FileExists(t, path)
}

func TestShutdownHook_TeardownFailureStillClearsRegistry(t *testing.T) {
	cfg := newTestConfig(t)
	path := writeAged(t, filepath.Join(cfg.AutoCleanup.BaseDir, "cache", "locked"), 1, 0)

	m := newTestManager(t, cfg, Options{Remove: func(string) error { return syscall.EACCES }})
	m.RegisterSessionFile(path)

	res := NewShutdownHook(m, nil).Run(context.Background())
	require.Len(t, res.Failed, 1)
	assert.Equal(t, path, res.Failed[0].Path)
	assert.Zero(t, m.Sessions().Len())
}
