// Package workspace manages the base directory that holds the category
// scratch directories.
//
// It creates missing category directories, resolves caller-supplied paths
// against the base directory and prunes empty subdirectories after a sweep.
//
// Example usage:
//
//	ws := workspace.New("~/docsweep-data")
//	if err := ws.EnsureDir(); err != nil {
//	    log.Fatal(err)
//	}
//	uploads := ws.Subpath("uploads")
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Workspace represents the docsweep base directory.
type Workspace struct {
	path     string // Expanded base path
	basePath string // Original path from config (may contain ~)
}

// New creates a Workspace rooted at path.
func New(path string) *Workspace {
	return &Workspace{
		path:     expandHome(path),
		basePath: path,
	}
}

// Path returns the expanded base path.
func (w *Workspace) Path() string {
	return w.path
}

// BasePath returns the original path (may contain ~).
func (w *Workspace) BasePath() string {
	return w.basePath
}

// EnsureDir creates the base directory if it doesn't exist.
func (w *Workspace) EnsureDir() error {
	if w.path == "" {
		return fmt.Errorf("workspace path is empty")
	}
	return EnsureDir(w.path)
}

// EnsureDir creates dir (and parents) if it doesn't exist.
// Returns an error if the path exists but is not a directory.
func EnsureDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("path exists but is not a directory: %s", dir)
		}
		return nil
	}

	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to access %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// ResolvePath resolves a path against the base directory.
// Absolute paths are cleaned and returned as-is; relative paths must not
// escape the base directory.
func (w *Workspace) ResolvePath(relPath string) (string, error) {
	if relPath == "" {
		return "", fmt.Errorf("path is empty")
	}

	if filepath.IsAbs(relPath) {
		return filepath.Clean(relPath), nil
	}

	cleanPath := filepath.Clean(relPath)
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path attempts to escape workspace: %s", relPath)
	}

	absWorkspace, err := filepath.Abs(w.path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute workspace path: %w", err)
	}
	return filepath.Join(absWorkspace, cleanPath), nil
}

// Subpath returns the path of a subdirectory of the base directory.
func (w *Workspace) Subpath(name string) string {
	return filepath.Join(w.path, name)
}

// EnsureSubpath creates a subdirectory within the base directory if it doesn't exist.
func (w *Workspace) EnsureSubpath(name string) error {
	if err := w.EnsureDir(); err != nil {
		return fmt.Errorf("failed to ensure workspace: %w", err)
	}
	if name == "" {
		return fmt.Errorf("subdirectory name is empty")
	}
	return EnsureDir(w.Subpath(name))
}

// RemoveEmptySubdirs removes empty directories below root, deepest first.
// root itself is never removed. Directories modified within minAge are kept
// so a directory that was just created for an upload survives.
// Returns the number of removed directories.
func RemoveEmptySubdirs(root string, minAge time.Duration, now time.Time) (int, error) {
	type dirInfo struct {
		path    string
		modTime time.Time
	}

	var dirs []dirInfo
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() || path == root {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		// mtime is taken before this pass removes anything below it.
		dirs = append(dirs, dirInfo{path: path, modTime: info.ModTime()})
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	// Deepest first so parents emptied by this pass are removed too.
	sep := string(filepath.Separator)
	sort.SliceStable(dirs, func(i, j int) bool {
		return strings.Count(dirs[i].path, sep) > strings.Count(dirs[j].path, sep)
	})

	removed := 0
	for _, dir := range dirs {
		if minAge > 0 && now.Sub(dir.modTime) < minAge {
			continue
		}
		entries, err := os.ReadDir(dir.path)
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir.path); err == nil {
			removed++
		}
	}
	return removed, nil
}

// expandHome expands ~ to the user's home directory.
func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' && (len(path) == 1 || path[1] == '/') {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if len(path) == 1 {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
