package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/tagx/internal/descriptor"
)

func fileDescriptor(t *testing.T, name string) *descriptor.Descriptor {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".tmpl")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	info, err := os.Stat(path)
	require.NoError(t, err)

	d := descriptor.New(name, "")
	d.Path = path
	d.ModTime = info.ModTime()
	return d
}

func key(name string) Key {
	return NewKey("", false, name, []string{".tmpl"})
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "ui.Card.tmpl", NewKey("ui", true, "Card", []string{".tmpl"}).String())
	assert.NotEqual(t, NewKey("ui", true, "Card", nil), NewKey("ui", false, "Card", nil))
}

func TestGetPut(t *testing.T) {
	c, err := New(8, true, true)
	require.NoError(t, err)

	d := fileDescriptor(t, "Card")
	_, ok := c.Get(key("Card"))
	assert.False(t, ok)

	c.Put(key("Card"), d)
	got, ok := c.Get(key("Card"))
	require.True(t, ok)
	assert.Same(t, d, got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestAutoReload(t *testing.T) {
	t.Run("modified file is a miss", func(t *testing.T) {
		c, err := New(8, true, true)
		require.NoError(t, err)
		d := fileDescriptor(t, "Card")
		c.Put(key("Card"), d)

		later := d.ModTime.Add(2 * time.Second)
		require.NoError(t, os.Chtimes(d.Path, later, later))

		_, ok := c.Get(key("Card"))
		assert.False(t, ok)
		assert.Equal(t, int64(1), c.Stats().Reloads)
	})

	t.Run("deleted file is a miss", func(t *testing.T) {
		c, err := New(8, true, true)
		require.NoError(t, err)
		d := fileDescriptor(t, "Card")
		c.Put(key("Card"), d)
		require.NoError(t, os.Remove(d.Path))

		_, ok := c.Get(key("Card"))
		assert.False(t, ok)
	})

	t.Run("disabled returns stale entry", func(t *testing.T) {
		c, err := New(8, true, false)
		require.NoError(t, err)
		d := fileDescriptor(t, "Card")
		c.Put(key("Card"), d)

		later := d.ModTime.Add(2 * time.Second)
		require.NoError(t, os.Chtimes(d.Path, later, later))

		got, ok := c.Get(key("Card"))
		require.True(t, ok)
		assert.Same(t, d, got)
	})
}

func TestUseCacheDisabled(t *testing.T) {
	c, err := New(8, false, true)
	require.NoError(t, err)
	c.Put(key("Card"), fileDescriptor(t, "Card"))

	_, ok := c.Get(key("Card"))
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestInlineNotCached(t *testing.T) {
	c, err := New(8, true, true)
	require.NoError(t, err)
	c.Put(key("Inline"), descriptor.New("Inline", ""))
	assert.Equal(t, 0, c.Len())
}

func TestInvalidate(t *testing.T) {
	c, err := New(8, true, false)
	require.NoError(t, err)
	d := fileDescriptor(t, "Card")
	c.Put(key("Card"), d)
	c.Put(NewKey("ui", false, "Card", []string{".tmpl"}), d)
	c.Put(key("Other"), fileDescriptor(t, "Other"))

	assert.Equal(t, 2, c.Invalidate(d.Path))
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestBounded(t *testing.T) {
	c, err := New(2, true, false)
	require.NoError(t, err)
	for i := range 5 {
		c.Put(key(fmt.Sprintf("C%d", i)), fileDescriptor(t, fmt.Sprintf("C%d", i)))
	}
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(key("C4"))
	assert.True(t, ok)
	_, ok = c.Get(key("C0"))
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	c, err := New(16, true, true)
	require.NoError(t, err)
	d := fileDescriptor(t, "Card")

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				if _, ok := c.Get(key("Card")); !ok {
					c.Put(key("Card"), d)
				}
			}
		}()
	}
	wg.Wait()

	got, ok := c.Get(key("Card"))
	require.True(t, ok)
	assert.Same(t, d, got)
}
