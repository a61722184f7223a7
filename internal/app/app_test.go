package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/docsweep/internal/config"
	"github.com/aatumaykin/docsweep/internal/logger"
	"github.com/aatumaykin/docsweep/internal/pidfile"
)

// createTestConfig returns defaults rooted in a temp dir with the API on a random port.
func createTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.AutoCleanup.BaseDir = t.TempDir()
	cfg.API.Enabled = true
	cfg.API.Listen = "127.0.0.1:0"
	cfg.Logging.Level = "error"
	return cfg
}

func createTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.NewWithWriter(io.Discard, logger.Config{Level: "debug", Format: "text"})
	require.NoError(t, err)
	return log
}

func httpGet(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestApp_InitializeAndShutdown(t *testing.T) {
	cfg := createTestConfig(t)
	a := New(cfg, "", createTestLogger(t))

	require.NoError(t, a.Initialize(context.Background()))
	require.NotNil(t, a.Manager())
	assert.Eventually(t, a.Manager().Running, time.Second, 10*time.Millisecond)

	// Category directories are created by the first cycle.
	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(cfg.AutoCleanup.BaseDir, "uploads"))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	base := "http://" + a.Addr()
	code, body := httpGet(t, base+"/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"status":"ok"`)

	code, body = httpGet(t, base+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "docsweep_session_files")
	assert.Contains(t, body, "go_goroutines")

	require.NoError(t, a.Shutdown())
	assert.False(t, a.Manager().Running())

	_, err := http.Get(base + "/healthz")
	assert.Error(t, err, "listener is closed after shutdown")
}

func TestApp_ShutdownRunsSessionTeardown(t *testing.T) {
	cfg := createTestConfig(t)
	a := New(cfg, "", createTestLogger(t))
	require.NoError(t, a.Initialize(context.Background()))

	sessionFile := filepath.Join(cfg.AutoCleanup.BaseDir, "uploads", "session.pdf")
	require.NoError(t, os.MkdirAll(filepath.Dir(sessionFile), 0755))
	require.NoError(t, os.WriteFile(sessionFile, []byte("%PDF"), 0644))

	payload, err := json.Marshal(map[string]string{"path": "uploads/session.pdf"})
	require.NoError(t, err)
	resp, err := http.Post("http://"+a.Addr()+"/api/cleanup/session-files", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, a.Shutdown())

	_, err = os.Stat(sessionFile)
	assert.True(t, os.IsNotExist(err), "session file must be removed on shutdown")
	assert.Equal(t, 0, a.Manager().Sessions().Len())
}

func TestApp_RunStopsOnContextCancel(t *testing.T) {
	cfg := createTestConfig(t)
	cfg.API.Enabled = false
	a := New(cfg, "", createTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	assert.Eventually(t, func() bool {
		m := a.Manager()
		return m != nil && m.Running()
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	assert.Empty(t, a.Addr())
}

func TestApp_InitializeTwice(t *testing.T) {
	cfg := createTestConfig(t)
	cfg.API.Enabled = false
	a := New(cfg, "", nil)

	require.NoError(t, a.Initialize(context.Background()))
	defer a.Shutdown()

	assert.Error(t, a.Initialize(context.Background()))
}

func TestApp_ShutdownWithoutInitialize(t *testing.T) {
	a := New(nil, "", nil)
	assert.NoError(t, a.Shutdown())
	assert.NoError(t, a.Shutdown())
}

func TestApp_InitializeFailsOnBusyPort(t *testing.T) {
	first := New(createTestConfig(t), "", nil)
	require.NoError(t, first.Initialize(context.Background()))
	defer first.Shutdown()

	cfg := createTestConfig(t)
	cfg.API.Listen = first.Addr()
	second := New(cfg, "", nil)

	err := second.Run(context.Background())
	assert.Error(t, err)
	assert.False(t, second.Manager().Running())
}

func TestApp_PIDLock(t *testing.T) {
	cfg := createTestConfig(t)
	cfg.API.Enabled = false
	first := New(cfg, "", nil)
	require.NoError(t, first.Initialize(context.Background()))
	assert.FileExists(t, pidfile.Path(cfg.AutoCleanup.BaseDir))

	second := New(cfg, "", nil)
	err := second.Run(context.Background())
	assert.ErrorIs(t, err, pidfile.ErrLocked)
	assert.FileExists(t, pidfile.Path(cfg.AutoCleanup.BaseDir), "a rejected instance must not drop the lock")

	require.NoError(t, first.Shutdown())
	assert.NoFileExists(t, pidfile.Path(cfg.AutoCleanup.BaseDir))
}

func TestApp_Reload(t *testing.T) {
	cfg := createTestConfig(t)
	cfg.API.Enabled = false
	a := New(cfg, "", createTestLogger(t))
	require.NoError(t, a.Initialize(context.Background()))
	defer a.Shutdown()

	assert.Nil(t, a.cronScheduler)

	next := createTestConfig(t)
	next.API.Enabled = false
	next.AutoCleanup.BaseDir = cfg.AutoCleanup.BaseDir
	next.AutoCleanup.CheckIntervalSeconds = 42
	next.Schedules = []config.ScheduleConfig{{Name: "nightly", Spec: "0 3 * * *", Mode: "emergency"}}

	a.Reload(next)

	assert.Equal(t, 42*time.Second, a.Manager().Policy().CheckInterval)
	assert.Same(t, next, a.Config())
	require.NotNil(t, a.cronScheduler)
	jobs := a.cronScheduler.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "nightly", jobs[0].Name)

	// Schedules are replaced, not appended.
	next.Schedules = []config.ScheduleConfig{
		{Name: "hourly", Spec: "@hourly", Mode: "routine"},
		{Name: "weekly", Spec: "@weekly", Mode: "normal"},
	}
	a.Reload(next)
	jobs = a.cronScheduler.ListJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "hourly", jobs[0].Name)
	assert.Equal(t, "weekly", jobs[1].Name)
}

func TestApp_ReloadAfterShutdownIsIgnored(t *testing.T) {
	cfg := createTestConfig(t)
	cfg.API.Enabled = false
	a := New(cfg, "", nil)
	require.NoError(t, a.Initialize(context.Background()))
	require.NoError(t, a.Shutdown())

	next := createTestConfig(t)
	next.AutoCleanup.CheckIntervalSeconds = 7
	a.Reload(next)

	assert.Same(t, cfg, a.Config())
	assert.False(t, a.Manager().Running())
}

func TestApp_WatcherAppliesConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	write := func(interval int) {
		content := []byte("[auto_cleanup]\nbase_dir = \"" + filepath.ToSlash(dir) + "\"\n" +
			"check_interval_seconds = " + strconv.Itoa(interval) + "\n\n[watch]\nenabled = true\ndebounce_ms = 20\n")
		require.NoError(t, os.WriteFile(path, content, 0644))
	}
	write(300)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.True(t, cfg.Watch.Enabled)

	a := New(cfg, path, createTestLogger(t))
	require.NoError(t, a.Initialize(context.Background()))
	defer a.Shutdown()

	time.Sleep(50 * time.Millisecond)
	write(42)

	assert.Eventually(t, func() bool {
		return a.Manager().Policy().CheckInterval == 42*time.Second
	}, 3*time.Second, 10*time.Millisecond)
}
