package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/docsweep/internal/config"
)

// newTestConfig returns the default configuration rooted in a temp dir.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.AutoCleanup.BaseDir = t.TempDir()
	return cfg
}

// writeAged creates path with size bytes and sets its mtime to now-age.
func writeAged(t *testing.T, path string, size int, age time.Duration) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	mt := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mt, mt))
	return path
}

func record(path, category string, size int64, age time.Duration, now time.Time) FileRecord {
	return FileRecord{Path: path, Category: category, Size: size, ModTime: now.Add(-age)}
}

func reasonsByPath(decisions []Decision) map[string]Reason {
	out := make(map[string]Reason, len(decisions))
	for _, d := range decisions {
		out[d.Path] = d.Reason
	}
	return out
}
