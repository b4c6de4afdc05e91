// Package cache keeps parsed component descriptors between renders and
// revalidates them against the modification time of their files.
package cache

import (
	"os"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/conneroisu/tagx/internal/descriptor"
)

// Key identifies a lookup: the prefix the name was requested under, whether
// that prefix was explicit, the bare name and the accepted extensions.
type Key struct {
	Prefix   string
	Explicit bool
	Name     string
	Ext      string
}

// NewKey builds a Key from a lookup.
func NewKey(prefix string, explicit bool, name string, exts []string) Key {
	return Key{Prefix: prefix, Explicit: explicit, Name: name, Ext: strings.Join(exts, ",")}
}

// String renders the key as "prefix.name.tmpl".
func (k Key) String() string {
	return k.Prefix + descriptor.Delimiter + k.Name + k.Ext
}

// Stats counts cache traffic.
type Stats struct {
	Hits    int64
	Misses  int64
	Reloads int64
	Size    int
}

// Cache is a bounded descriptor cache. Concurrent misses on one key may each
// rebuild the descriptor; the last Put wins.
type Cache struct {
	entries    *lru.Cache[Key, *descriptor.Descriptor]
	useCache   bool
	autoReload bool

	hits    atomic.Int64
	misses  atomic.Int64
	reloads atomic.Int64
}

// New creates a cache holding at most size descriptors.
func New(size int, useCache, autoReload bool) (*Cache, error) {
	if size <= 0 {
		size = 1
	}
	entries, err := lru.New[Key, *descriptor.Descriptor](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries, useCache: useCache, autoReload: autoReload}, nil
}

// Get returns a descriptor that is still valid for key. With auto-reload on,
// a file that disappeared or whose modification time changed is a miss.
func (c *Cache) Get(key Key) (*descriptor.Descriptor, bool) {
	if !c.useCache {
		c.misses.Add(1)
		return nil, false
	}

	d, ok := c.entries.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	if c.autoReload && d.FileBacked() {
		info, err := os.Stat(d.Path)
		if err != nil || !info.ModTime().Equal(d.ModTime) {
			c.reloads.Add(1)
			return nil, false
		}
	}

	c.hits.Add(1)
	return d, true
}

// Put stores d under key, replacing any previous entry.
func (c *Cache) Put(key Key, d *descriptor.Descriptor) {
	if !c.useCache || !d.FileBacked() {
		return
	}
	c.entries.Add(key, d)
}

// Invalidate drops every entry loaded from path and returns how many were
// removed.
func (c *Cache) Invalidate(path string) int {
	removed := 0
	for _, key := range c.entries.Keys() {
		d, ok := c.entries.Peek(key)
		if ok && d.Path == path {
			c.entries.Remove(key)
			removed++
		}
	}
	return removed
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.entries.Purge()
}

// Len is the number of cached descriptors.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Reloads: c.reloads.Load(),
		Size:    c.entries.Len(),
	}
}
