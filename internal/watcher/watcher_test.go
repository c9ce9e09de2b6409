package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) record(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recorder) has(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.paths {
		if p == path {
			return true
		}
	}
	return false
}

func (r *recorder) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.paths {
		if p == path {
			n++
		}
	}
	return n
}

func start(t *testing.T, dir string, rec *recorder) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := New(dir, rec.record, nil).WithDebounce(20 * time.Millisecond)
	go func() { done <- w.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// give the watcher time to register the tree
	time.Sleep(100 * time.Millisecond)
}

func TestWatchReportsChanges(t *testing.T) {
	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "css"), 0o755))
	index := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(index, []byte("v1"), 0o644))

	rec := &recorder{}
	start(t, dir, rec)

	require.NoError(t, os.WriteFile(index, []byte("v2"), 0o644))
	require.Eventually(t, func() bool { return rec.has(index) }, 5*time.Second, 10*time.Millisecond)

	nested := filepath.Join(dir, "css", "site.css")
	require.NoError(t, os.WriteFile(nested, []byte("body{}"), 0o644))
	require.Eventually(t, func() bool { return rec.has(nested) }, 5*time.Second, 10*time.Millisecond)
}

func TestWatchNewDirectories(t *testing.T) {
	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)

	rec := &recorder{}
	start(t, dir, rec)

	sub := filepath.Join(dir, "docs")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.Eventually(t, func() bool { return rec.has(sub) }, 5*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	page := filepath.Join(sub, "index.html")
	require.NoError(t, os.WriteFile(page, []byte("docs"), 0o644))
	require.Eventually(t, func() bool { return rec.has(page) }, 5*time.Second, 10*time.Millisecond)
}

func TestWatchDebounces(t *testing.T) {
	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)
	file := filepath.Join(dir, "app.js")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := New(dir, rec.record, nil).WithDebounce(300 * time.Millisecond)
	go w.Watch(ctx)
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(file, []byte{byte(i)}, 0o644))
	}
	require.Eventually(t, func() bool { return rec.has(file) }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	require.Equal(t, 1, rec.count(file))
}

func TestHidden(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/srv/index.html", false},
		{"/srv/.git/HEAD", true},
		{"/srv/docs/.index.html.swp", true},
		{"/srv", false},
	}
	for _, tt := range tests {
		if got := hidden("/srv", tt.path); got != tt.want {
			t.Errorf("hidden(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestWatchMissingRoot(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), func(string) {}, nil)
	require.Error(t, w.Watch(context.Background()))
}

func TestWatchReleasesResourcesOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(dir, func(string) {}, nil).Watch(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("x"), 0o644))
	time.Sleep(50 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
