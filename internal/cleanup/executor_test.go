package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_DeletesAndForgetsSessionFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeAged(t, filepath.Join(dir, "a"), 10, time.Hour)
	b := writeAged(t, filepath.Join(dir, "b"), 20, time.Hour)

	sessions := NewSessionTracker()
	sessions.Register(a)

	ex := NewExecutor(sessions, nil, nil)
	res := ex.Execute(context.Background(), ModeRoutine, []Decision{
		{Path: a, Category: "uploads", Reason: ReasonAgeExpired, Size: 10},
		{Path: b, Category: "uploads", Reason: ReasonAgeExpired, Size: 20},
	})

	assert.Equal(t, []string{a, b}, res.DeletedPaths())
	assert.Empty(t, res.Failed)
	assert.Equal(t, int64(30), res.BytesFreed)
	assert.NoFileExists(t, a)
	assert.NoFileExists(t, b)
	assert.Equal(t, 0, sessions.Len())
}

func TestExecutor_AlreadyGoneCountsAsDeleted(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "never-existed")

	res := NewExecutor(nil, nil, nil).Execute(context.Background(), ModeSessionTeardown, []Decision{
		{Path: missing, Reason: ReasonSessionTeardown, Size: 99},
	})

	require.Len(t, res.Deleted, 1)
	assert.Empty(t, res.Failed)
	assert.Zero(t, res.BytesFreed)
}

func TestExecutor_FailureDoesNotAbortBatch(t *testing.T) {
	dir := t.TempDir()
	locked := writeAged(t, filepath.Join(dir, "locked"), 1, time.Hour)
	free := writeAged(t, filepath.Join(dir, "free"), 1, time.Hour)

	remove := func(path string) error {
		if path == locked {
			return &os.PathError{Op: "remove", Path: path, Err: syscall.EACCES}
		}
		return os.Remove(path)
	}

	res := NewExecutor(nil, nil, remove).Execute(context.Background(), ModeNormal, []Decision{
		{Path: locked, Reason: ReasonAgeExpired, Size: 1},
		{Path: free, Reason: ReasonAgeExpired, Size: 1},
	})

	require.Len(t, res.Failed, 1)
	assert.Equal(t, locked, res.Failed[0].Path)
	assert.ErrorIs(t, res.Failed[0].Err, syscall.EACCES)
	assert.Equal(t, []string{free}, res.DeletedPaths())
	assert.FileExists(t, locked)
}

func TestExecutor_RetriesBusyFiles(t *testing.T) {
	var calls atomic.Int32
	remove := func(path string) error {
		if calls.Add(1) < 3 {
			return &os.PathError{Op: "remove", Path: path, Err: syscall.EBUSY}
		}
		return nil
	}

	ex := NewExecutor(nil, nil, remove)
	ex.retry.InitialBackoff = time.Millisecond
	ex.retry.MaxBackoff = time.Millisecond

	res := ex.Execute(context.Background(), ModeRoutine, []Decision{{Path: "/busy", Reason: ReasonAgeExpired}})
	assert.Len(t, res.Deleted, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestExecutor_CancelledContextSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	remove := func(string) error {
		calls.Add(1)
		cancel()
		return nil
	}

	res := NewExecutor(nil, nil, remove).Execute(ctx, ModeRoutine, []Decision{
		{Path: "/a"}, {Path: "/b"}, {Path: "/c"},
	})

	assert.Equal(t, int32(1), calls.Load())
	assert.Len(t, res.Deleted, 1)
	assert.Equal(t, 2, res.Skipped)
}

func TestExecutor_PreviewTouchesNothing(t *testing.T) {
	path := writeAged(t, filepath.Join(t.TempDir(), "a"), 5, time.Hour)

	res := NewExecutor(nil, nil, nil).Preview(ModeEmergency, []Decision{
		{Path: path, Reason: ReasonDiskPressure, Size: 5},
	})

	assert.True(t, res.DryRun)
	assert.Equal(t, []string{path}, res.DeletedPaths())
	assert.Equal(t, int64(5), res.BytesFreed)
	assert.FileExists(t, path)
}
