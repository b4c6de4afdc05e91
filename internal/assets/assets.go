// Package assets collects the CSS and JS a render tree declares and turns it
// into link and script markup.
package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/conneroisu/tagx/internal/descriptor"
)

var rxFingerprint = regexp.MustCompile(`^(.*)-([abcdef0-9]{64})$`)

// IsAbsolute reports whether url is an external URL.
func IsAbsolute(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// Locator maps an asset URL, relative to the root URL, to a file on disk.
type Locator func(url string) (string, bool)

// Collector accumulates asset URLs for one top-level render. It is safe for
// concurrent use, although a render only touches it from one goroutine.
type Collector struct {
	mu      sync.Mutex
	rootURL string
	locate  Locator
	css, js []string
	seen    map[string]bool
	token   string
}

// NewCollector returns an empty collector. When locate is non-nil, local
// URLs are fingerprinted.
func NewCollector(rootURL string, locate Locator) *Collector {
	return &Collector{
		rootURL: rootURL,
		locate:  locate,
		seen:    make(map[string]bool),
		token:   "<!--tagx-assets-" + uuid.NewString() + "-->",
	}
}

// AddCSS appends urls not seen before, keeping first-seen order.
func (c *Collector) AddCSS(urls ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.css = c.add(c.css, urls)
}

// AddJS appends urls not seen before, keeping first-seen order.
func (c *Collector) AddJS(urls ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.js = c.add(c.js, urls)
}

func (c *Collector) add(list, urls []string) []string {
	for _, url := range urls {
		if c.locate != nil {
			url = Fingerprint(url, c.locate)
		}
		if c.seen[url] {
			continue
		}
		c.seen[url] = true
		list = append(list, url)
	}
	return list
}

// CSS returns the collected stylesheet URLs.
func (c *Collector) CSS() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.css...)
}

// JS returns the collected script URLs.
func (c *Collector) JS() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.js...)
}

// Markup renders one link element per stylesheet and one module script per
// JS file, in collection order.
func (c *Collector) Markup() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]string, 0, len(c.css)+len(c.js))
	for _, url := range c.css {
		lines = append(lines, fmt.Sprintf(`<link rel="stylesheet" href="%s">`, html.EscapeString(c.href(url))))
	}
	for _, url := range c.js {
		lines = append(lines, fmt.Sprintf(`<script type="module" src="%s"></script>`, html.EscapeString(c.href(url))))
	}
	return strings.Join(lines, "\n")
}

func (c *Collector) href(url string) string {
	if IsAbsolute(url) || strings.HasPrefix(url, "/") {
		return url
	}
	return c.rootURL + url
}

// Placeholder is the token written where assets are requested. It is
// replaced by Markup once the render finishes.
func (c *Collector) Placeholder() string {
	return c.token
}

// Resolve substitutes the final markup for every placeholder in out.
func (c *Collector) Resolve(out string) string {
	if !strings.Contains(out, c.token) {
		return out
	}
	return strings.ReplaceAll(out, c.token, c.Markup())
}

// Fingerprint rewrites "card.css" as "card-<sha256 of mtime>.css" when the
// file exists. External URLs and missing files pass through.
func Fingerprint(url string, locate Locator) string {
	if IsAbsolute(url) {
		return url
	}
	file, ok := locate(url)
	if !ok {
		return url
	}
	info, err := os.Stat(file)
	if err != nil || !info.Mode().IsRegular() {
		return url
	}

	sum := sha256.Sum256([]byte(info.ModTime().String()))
	stem, ext := splitExt(url)
	return stem + "-" + hex.EncodeToString(sum[:]) + ext
}

// StripFingerprint undoes Fingerprint: "card-<64 hex>.css" becomes
// "card.css".
func StripFingerprint(url string) string {
	stem, ext := splitExt(url)
	if m := rxFingerprint.FindStringSubmatch(stem); m != nil {
		return m[1] + ext
	}
	return url
}

// splitExt splits at the first dot of the last path element, so
// "js/app.min.js" gives "js/app" and ".min.js".
func splitExt(url string) (string, string) {
	dir, file := path.Split(url)
	i := strings.IndexByte(file, '.')
	if i <= 0 {
		return url, ""
	}
	return dir + file[:i], file[i:]
}

// PrefixLocator maps a URL to a file the way assets are published: the URL
// prefix of each component prefix ("ui/" for "ui") selects that prefix's
// roots, and the rest of the URL is looked up in them in order.
func PrefixLocator(prefixes func() map[string][]string) Locator {
	return func(url string) (string, bool) {
		url = strings.TrimPrefix(path.Clean("/"+url), "/")

		roots := prefixes()
		names := make([]string, 0, len(roots))
		for p := range roots {
			names = append(names, p)
		}
		// Longest URL prefix first so "ui/forms/" beats "ui/" and "".
		sort.Slice(names, func(i, j int) bool {
			return len(descriptor.URLPrefix(names[i])) > len(descriptor.URLPrefix(names[j]))
		})

		for _, p := range names {
			up := descriptor.URLPrefix(p)
			if !strings.HasPrefix(url, up) {
				continue
			}
			rel := filepath.FromSlash(strings.TrimPrefix(url, up))
			for _, root := range roots[p] {
				full := filepath.Join(root, rel)
				if info, err := os.Stat(full); err == nil && info.Mode().IsRegular() {
					return full, true
				}
			}
		}
		return "", false
	}
}
