package cleanup

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTracker_RegisterIsIdempotent(t *testing.T) {
	tr := NewSessionTracker()

	assert.True(t, tr.Register("/data/uploads/a.pdf"))
	assert.False(t, tr.Register("/data/uploads/a.pdf"))
	assert.False(t, tr.Register("/data/uploads/../uploads/a.pdf"), "paths are normalized")
	assert.False(t, tr.Register(""))

	assert.Equal(t, 1, tr.Len())
	assert.True(t, tr.Contains("/data/uploads/a.pdf"))
}

func TestSessionTracker_RelativePathsBecomeAbsolute(t *testing.T) {
	tr := NewSessionTracker()
	tr.Register("uploads/a.pdf")

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(wd, "uploads", "a.pdf")}, tr.All())
}

func TestSessionTracker_AllReturnsCopy(t *testing.T) {
	tr := NewSessionTracker()
	tr.Register("/b")
	tr.Register("/a")

	all := tr.All()
	assert.Equal(t, []string{"/a", "/b"}, all)

	all[0] = "/mutated"
	assert.Equal(t, []string{"/a", "/b"}, tr.All())
}

func TestSessionTracker_ForgetAndClear(t *testing.T) {
	tr := NewSessionTracker()
	tr.Register("/a")
	tr.Register("/b")

	tr.Forget("/a")
	assert.Equal(t, []string{"/b"}, tr.All())

	tr.Clear()
	assert.Empty(t, tr.All())
	assert.Equal(t, 0, tr.Len())
}

func TestSessionTracker_Reconcile(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present")
	require.NoError(t, os.WriteFile(present, nil, 0644))

	tr := NewSessionTracker()
	tr.Register(present)
	tr.Register(filepath.Join(dir, "missing"))

	assert.Equal(t, 1, tr.Reconcile(fileExists))
	assert.Equal(t, []string{present}, tr.All())
}

func TestSessionTracker_ConcurrentRegister(t *testing.T) {
	tr := NewSessionTracker()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tr.Register(fmt.Sprintf("/data/uploads/%03d.pdf", n))
			tr.Register(fmt.Sprintf("/data/uploads/%03d.pdf", n))
			_ = tr.All()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, tr.Len())
}
