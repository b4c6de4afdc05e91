package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWatcher(t *testing.T, delay time.Duration) *FileWatcher {
	t.Helper()
	fw, err := NewFileWatcher(delay, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fw.Stop() })
	return fw
}

// collector gathers handler batches for assertions.
type collector struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (c *collector) handle(events []ChangeEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
	return nil
}

func (c *collector) paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Path)
	}
	return out
}

func TestNewFileWatcher(t *testing.T) {
	fw := newWatcher(t, 100*time.Millisecond)

	assert.NotNil(t, fw.watcher)
	assert.NotNil(t, fw.debouncer)
	assert.NotNil(t, fw.logger)
	assert.Empty(t, fw.filters)
	assert.Empty(t, fw.handlers)
	assert.Equal(t, 100*time.Millisecond, fw.debouncer.delay)
}

func TestFileWatcherAddFilterAndHandler(t *testing.T) {
	fw := newWatcher(t, 100*time.Millisecond)

	fw.AddFilter(ExtensionFilter(".jinja"))
	fw.AddFilter(NoHiddenFilter)
	fw.AddHandler(func([]ChangeEvent) error { return nil })

	assert.Len(t, fw.filters, 2)
	assert.Len(t, fw.handlers, 1)
	assert.True(t, fw.accepts("components/Button.jinja"))
	assert.False(t, fw.accepts("components/.Button.jinja"))
	assert.False(t, fw.accepts("components/Button.css"))
}

func TestFileWatcherAddPath(t *testing.T) {
	fw := newWatcher(t, 100*time.Millisecond)

	assert.NoError(t, fw.AddPath(t.TempDir()))
	assert.Error(t, fw.AddPath("/non/existent/path"))
	assert.Error(t, fw.AddPath("  "))
}

func TestAddRecursive(t *testing.T) {
	fw := newWatcher(t, 100*time.Millisecond)
	fw.AddFilter(ExtensionFilter(".jinja"))

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ui", "forms"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".cache"), 0o755))
	file := filepath.Join(dir, "ui", "forms", "Input.jinja")
	require.NoError(t, os.WriteFile(file, []byte("<input>"), 0o644))

	require.NoError(t, fw.AddRecursive(dir))

	list := fw.watcher.WatchList()
	assert.Contains(t, list, filepath.Join(dir, "ui", "forms"))
	assert.NotContains(t, list, filepath.Join(dir, ".cache"))
	assert.Contains(t, fw.digests, file)

	assert.Error(t, fw.AddRecursive(filepath.Join(dir, "missing")))
}

func TestFileWatcherReportsChanges(t *testing.T) {
	fw := newWatcher(t, 50*time.Millisecond)
	fw.AddFilter(ExtensionFilter(".jinja", ".css"))

	dir := t.TempDir()
	require.NoError(t, fw.AddRecursive(dir))

	got := &collector{}
	fw.AddHandler(got.handle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))

	file := filepath.Join(dir, "Card.jinja")
	require.NoError(t, os.WriteFile(file, []byte("<div></div>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	assert.Eventually(t, func() bool {
		return len(got.paths()) > 0
	}, 2*time.Second, 20*time.Millisecond)
	for _, path := range got.paths() {
		assert.Equal(t, file, path)
	}
}

func TestFileWatcherSkipsUnchangedContent(t *testing.T) {
	fw := newWatcher(t, 20*time.Millisecond)

	dir := t.TempDir()
	file := filepath.Join(dir, "Card.jinja")
	require.NoError(t, os.WriteFile(file, []byte("<div></div>"), 0o644))
	require.NoError(t, fw.AddRecursive(dir))

	assert.False(t, fw.changed(file, EventTypeModified))

	require.NoError(t, os.WriteFile(file, []byte("<section></section>"), 0o644))
	assert.True(t, fw.changed(file, EventTypeModified))
	assert.False(t, fw.changed(file, EventTypeModified))

	assert.True(t, fw.changed(file, EventTypeDeleted))
	assert.NotContains(t, fw.digests, file)
}

func TestFileWatcherConcurrency(t *testing.T) {
	fw := newWatcher(t, 50*time.Millisecond)

	dir := t.TempDir()
	require.NoError(t, fw.AddPath(dir))

	got := &collector{}
	fw.AddHandler(got.handle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			file := filepath.Join(dir, fmt.Sprintf("test%d.jinja", i))
			assert.NoError(t, os.WriteFile(file, []byte(fmt.Sprint(i)), 0o644))
		}(i)
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		return len(got.paths()) > 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestDebouncer(t *testing.T) {
	debouncer := &Debouncer{
		delay:   30 * time.Millisecond,
		events:  make(chan ChangeEvent, 100),
		output:  make(chan []ChangeEvent, 10),
		pending: make([]ChangeEvent, 0),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go debouncer.start(ctx)

	debouncer.events <- ChangeEvent{Path: "a.jinja", Type: EventTypeCreated}
	debouncer.events <- ChangeEvent{Path: "b.jinja", Type: EventTypeModified}
	debouncer.events <- ChangeEvent{Path: "a.jinja", Type: EventTypeModified}

	select {
	case batch := <-debouncer.output:
		require.Len(t, batch, 2)
		assert.Equal(t, "a.jinja", batch[0].Path)
		assert.Equal(t, EventTypeModified, batch[0].Type)
		assert.Equal(t, "b.jinja", batch[1].Path)
	case <-time.After(2 * time.Second):
		t.Fatal("no batch flushed")
	}
}

type invalidations struct {
	mu    sync.Mutex
	paths []string
}

func (i *invalidations) Invalidate(path string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.paths = append(i.paths, path)
}

func TestInvalidateHandler(t *testing.T) {
	inv := &invalidations{}
	handler := InvalidateHandler(inv)

	err := handler([]ChangeEvent{{Path: "/a/Card.jinja"}, {Path: "/a/Card.css"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/Card.jinja", "/a/Card.css"}, inv.paths)
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "created", EventTypeCreated.String())
	assert.Equal(t, "modified", EventTypeModified.String())
	assert.Equal(t, "deleted", EventTypeDeleted.String())
	assert.Equal(t, "renamed", EventTypeRenamed.String())
	assert.Equal(t, "unknown", EventType(42).String())
}

func TestExtensionFilter(t *testing.T) {
	filter := ExtensionFilter(".jinja", ".css", ".js")
	testCases := []struct {
		path     string
		expected bool
	}{
		{"Button.jinja", true},
		{"ui/Button.JINJA", true},
		{"ui/button.css", true},
		{"ui/button.js", true},
		{"main.go", false},
		{"README", false},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, filter(tc.path))
		})
	}
}

func TestNoHiddenFilter(t *testing.T) {
	testCases := []struct {
		path     string
		expected bool
	}{
		{"ui/Button.jinja", true},
		{"ui/.Button.jinja", false},
		{"ui/Button.jinja~", false},
		{"ui/.Button.jinja.swp", false},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, NoHiddenFilter(tc.path))
		})
	}
}

func TestFileWatcherDoubleStop(t *testing.T) {
	fw, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)

	assert.NoError(t, fw.Stop())
	assert.NoError(t, fw.Stop())
}
