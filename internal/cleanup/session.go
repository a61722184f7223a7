package cleanup

import (
	"sort"
	"sync"
)

// SessionTracker records files created during the current process lifetime.
// All methods are safe for concurrent use; Register is cheap enough to call
// inline from request handlers.
type SessionTracker struct {
	mu    sync.RWMutex
	paths map[string]struct{}
}

// NewSessionTracker creates an empty tracker.
func NewSessionTracker() *SessionTracker {
	return &SessionTracker{paths: make(map[string]struct{})}
}

// Register adds path. It reports whether the path was not tracked yet.
func (t *SessionTracker) Register(path string) bool {
	if path == "" {
		return false
	}
	path = absPath(path)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.paths[path]; ok {
		return false
	}
	t.paths[path] = struct{}{}
	return true
}

// All returns a sorted snapshot of the tracked paths.
func (t *SessionTracker) All() []string {
	t.mu.RLock()
	out := make([]string, 0, len(t.paths))
	for p := range t.paths {
		out = append(out, p)
	}
	t.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Contains reports whether path is tracked.
func (t *SessionTracker) Contains(path string) bool {
	path = absPath(path)
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.paths[path]
	return ok
}

// Forget removes a single path, typically after it was deleted.
func (t *SessionTracker) Forget(path string) {
	path = absPath(path)
	t.mu.Lock()
	delete(t.paths, path)
	t.mu.Unlock()
}

// Clear empties the tracker.
func (t *SessionTracker) Clear() {
	t.mu.Lock()
	t.paths = make(map[string]struct{})
	t.mu.Unlock()
}

// Len returns the number of tracked paths.
func (t *SessionTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.paths)
}

// Reconcile drops paths for which exists returns false and returns how many were dropped.
// exists is called without holding the lock.
func (t *SessionTracker) Reconcile(exists func(path string) bool) int {
	var gone []string
	for _, p := range t.All() {
		if !exists(p) {
			gone = append(gone, p)
		}
	}
	if len(gone) == 0 {
		return 0
	}

	t.mu.Lock()
	for _, p := range gone {
		delete(t.paths, p)
	}
	t.mu.Unlock()
	return len(gone)
}
