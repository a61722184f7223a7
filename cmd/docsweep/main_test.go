package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs rootCmd with args after resetting every flag variable.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	configPath = ""
	envPath = filepath.Join(t.TempDir(), ".env")
	cleanMode = "normal"
	cleanDryRun = false
	cleanVerbose = false
	statusAPI = ""
	serveLogLevel = ""

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

// writeConfig creates a config rooted in a temp dir and returns its path and base dir.
func writeConfig(t *testing.T, extra string) (string, string) {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[auto_cleanup]\nbase_dir = \"" + filepath.ToSlash(base) + "\"\n" + extra
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path, base
}

func writeAged(t *testing.T, path string, size int, age time.Duration) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), size), 0644))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestCommandStructure(t *testing.T) {
	found := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		found[cmd.Name()] = true
	}
	for _, expected := range []string{"version", "config", "serve", "status", "clean"} {
		assert.True(t, found[expected], "command %q not registered", expected)
	}

	sub := make(map[string]bool)
	for _, cmd := range configCmd.Commands() {
		sub[cmd.Name()] = true
	}
	assert.True(t, sub["validate"])
	assert.True(t, sub["show"])
}

func TestCleanFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantMode string
		wantDry  bool
	}{
		{name: "defaults", args: nil, wantMode: "normal"},
		{name: "long flags", args: []string{"--mode", "emergency", "--dry-run"}, wantMode: "emergency", wantDry: true},
		{name: "short flags", args: []string{"-m", "idle", "-n"}, wantMode: "idle", wantDry: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanMode = "normal"
			cleanDryRun = false
			require.NoError(t, cleanCmd.ParseFlags(tt.args))
			assert.Equal(t, tt.wantMode, cleanMode)
			assert.Equal(t, tt.wantDry, cleanDryRun)
		})
	}
}

func TestClean_DryRunThenDelete(t *testing.T) {
	cfgPath, base := writeConfig(t, "")
	old := filepath.Join(base, "uploads", "old.pdf")
	fresh := filepath.Join(base, "uploads", "fresh.pdf")
	writeAged(t, old, 2048, 10*24*time.Hour)
	writeAged(t, fresh, 10, time.Hour)

	out, _, err := execute(t, "clean", "--config", cfgPath, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "would delete")
	assert.Contains(t, out, old)
	assert.Contains(t, out, "dry_run=true")
	assert.FileExists(t, old)

	out, _, err = execute(t, "clean", "--config", cfgPath, "--mode", "routine")
	require.NoError(t, err)
	assert.Contains(t, out, "mode=routine files=1")
	assert.Contains(t, out, "freed=2.0 KB")
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
}

func TestClean_RejectsUnknownAndTeardownModes(t *testing.T) {
	cfgPath, _ := writeConfig(t, "")

	_, _, err := execute(t, "clean", "--config", cfgPath, "--mode", "everything")
	assert.Error(t, err)

	_, _, err = execute(t, "clean", "--config", cfgPath, "--mode", "session_teardown")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid, _ := writeConfig(t, "\n[[schedules]]\nname = \"nightly\"\nspec = \"0 3 * * *\"\nmode = \"emergency\"\n")
	out, _, err := execute(t, "config", "validate", valid)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	invalid, _ := writeConfig(t, "check_interval_seconds = 0\n")
	_, errOut, err := execute(t, "config", "validate", invalid)
	require.Error(t, err)
	assert.Contains(t, errOut, "check_interval_seconds")

	badSpec, _ := writeConfig(t, "\n[[schedules]]\nname = \"broken\"\nspec = \"every tuesday\"\nmode = \"routine\"\n")
	_, errOut, err = execute(t, "config", "validate", badSpec)
	require.Error(t, err)
	assert.Contains(t, errOut, "schedules[0].spec")
}

func TestConfigShow(t *testing.T) {
	cfgPath, base := writeConfig(t, "\n[cleanup_rules.exports]\nkeep_days = 14\n")

	out, _, err := execute(t, "config", "show", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "# source: "+cfgPath)
	assert.Contains(t, out, "[auto_cleanup]")
	assert.Contains(t, out, "check_interval_seconds = 300")
	assert.Contains(t, out, "keep 14d")
	assert.Contains(t, out, filepath.Join(base, "exports"))
}

func TestStatus_Local(t *testing.T) {
	cfgPath, base := writeConfig(t, "")
	writeAged(t, filepath.Join(base, "ocr_results", "a.txt"), 1536, time.Hour)

	out, _, err := execute(t, "status", "--config", cfgPath)
	require.NoError(t, err)

	var line string
	for _, l := range strings.Split(out, "\n") {
		if strings.HasPrefix(l, "ocr_results") {
			line = l
		}
	}
	require.NotEmpty(t, line, out)
	assert.Contains(t, line, "1.5 KB")
	assert.Contains(t, out, "total: 1 files")
	assert.Contains(t, out, "next cycle mode: routine")
}

func TestStatus_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cleanup/status", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"mode":"normal","monitor_running":true,"disk_usage_bytes":1024,
			"disk_usage_formatted":"1.0 KB","file_count":3,"session_files_count":2,
			"categories":{"uploads":{"bytes":1024,"files":3}}}`))
	}))
	defer srv.Close()

	out, _, err := execute(t, "status", "--api", srv.URL+"/")
	require.NoError(t, err)
	assert.Contains(t, out, "monitor running:  true")
	assert.Contains(t, out, "disk usage:       1.0 KB (3 files)")
	assert.Contains(t, out, "session files:    2")
	assert.Contains(t, out, "uploads")
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:")
	assert.Contains(t, out, "docsweep")
}
