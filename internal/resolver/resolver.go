// Package resolver maps component names to files across the registered
// search roots.
package resolver

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/tagx/internal/descriptor"
	tagxerrors "github.com/conneroisu/tagx/internal/errors"
)

var (
	rxAcronymWord = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	rxLowerUpper  = regexp.MustCompile(`([a-z\d])([A-Z])`)
)

// Match is a resolved component file.
type Match struct {
	Name    string
	Prefix  string
	Ext     string
	Root    string
	Path    string
	RelPath string
	ModTime time.Time
}

// Resolver holds the prefix to search-root mapping.
type Resolver struct {
	mu       sync.RWMutex
	prefixes map[string][]string
	order    []string
}

// New creates an empty resolver.
func New() *Resolver {
	return &Resolver{prefixes: make(map[string][]string)}
}

// AddFolder registers root under prefix. Adding the same pair twice is a
// no-op; roots added first take precedence.
func (r *Resolver) AddFolder(root, prefix string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return tagxerrors.NewIOError(tagxerrors.ErrCodeFileNotFound, "invalid folder "+root, err)
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), descriptor.Delimiter+descriptor.PrefixSep)

	r.mu.Lock()
	defer r.mu.Unlock()

	roots, known := r.prefixes[prefix]
	for _, existing := range roots {
		if existing == abs {
			return nil
		}
	}
	if !known {
		r.order = append(r.order, prefix)
	}
	r.prefixes[prefix] = append(roots, abs)

	return nil
}

// Prefixes returns a copy of the prefix mapping.
func (r *Resolver) Prefixes() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.prefixes))
	for p, roots := range r.prefixes {
		out[p] = append([]string(nil), roots...)
	}
	return out
}

// PrefixOrder returns the prefixes in registration order.
func (r *Resolver) PrefixOrder() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Roots returns the roots of one prefix.
func (r *Resolver) Roots(prefix string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.prefixes[prefix]...)
}

// SplitName separates "ui:forms.Input" into "ui" and "forms.Input". The
// second result reports whether a prefix was given explicitly.
func SplitName(name string) (string, string, bool) {
	if i := strings.Index(name, descriptor.PrefixSep); i >= 0 {
		return name[:i], name[i+1:], true
	}
	return "", name, false
}

// Resolve finds the file backing name. An unqualified name is looked up
// under callerPrefix first, then under the empty prefix.
func (r *Resolver) Resolve(name, callerPrefix string, exts []string) (*Match, error) {
	prefix, bare, explicit := SplitName(name)
	if !validName(bare) {
		return nil, tagxerrors.NewInvalidArgumentError(fmt.Sprintf("invalid component name %q", name), nil)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []string
	switch {
	case explicit:
		if _, ok := r.prefixes[prefix]; !ok {
			return nil, tagxerrors.NewUnknownPrefixError(prefix)
		}
		candidates = []string{prefix}
	case callerPrefix != "":
		candidates = []string{callerPrefix, ""}
	default:
		candidates = []string{""}
	}

	for _, p := range candidates {
		for _, root := range r.prefixes[p] {
			for _, ext := range exts {
				if m := findIn(root, bare, ext); m != nil {
					m.Prefix = p
					return m, nil
				}
			}
		}
	}

	ext := ""
	if len(exts) > 0 {
		ext = exts[0]
	}
	return nil, tagxerrors.NewComponentNotFoundError(name, ext)
}

// validName reports whether every dotted segment of name is non-empty and
// free of path separators.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, seg := range strings.Split(name, descriptor.Delimiter) {
		if seg == "" || strings.ContainsAny(seg, `/\`) {
			return false
		}
	}
	return true
}

// findIn tries, in order: the exact name, its kebab-case form, and the
// index file of a folder with either name.
func findIn(root, name, ext string) *Match {
	rel := strings.ReplaceAll(name, descriptor.Delimiter, "/")
	kebab := Kebab(rel)

	for _, candidate := range []string{
		rel + ext,
		kebab + ext,
		path.Join(rel, "index"+ext),
		path.Join(kebab, "index"+ext),
	} {
		if !filepath.IsLocal(filepath.FromSlash(candidate)) {
			continue
		}
		full := filepath.Join(root, filepath.FromSlash(candidate))
		info, err := os.Stat(full)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		return &Match{
			Name:    name,
			Ext:     ext,
			Root:    root,
			Path:    full,
			RelPath: candidate,
			ModTime: info.ModTime(),
		}
	}
	return nil
}

// Kebab converts "forms/TextInput" to "forms/text-input".
func Kebab(s string) string {
	s = rxAcronymWord.ReplaceAllString(s, "$1-$2")
	s = rxLowerUpper.ReplaceAllString(s, "$1-$2")
	s = strings.ReplaceAll(s, "_", "-")
	return strings.ToLower(s)
}

// NameFromPath is the inverse of the lookup for tooling: "forms/Input.tmpl"
// becomes "forms.Input" and "card/index.tmpl" becomes "card".
func NameFromPath(rel, ext string) string {
	rel = filepath.ToSlash(strings.TrimSuffix(rel, ext))
	rel = strings.TrimSuffix(rel, "/index")
	return strings.ReplaceAll(rel, "/", descriptor.Delimiter)
}
