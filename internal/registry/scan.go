package registry

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/tagx/internal/descriptor"
	tagxerrors "github.com/conneroisu/tagx/internal/errors"
	"github.com/conneroisu/tagx/internal/resolver"
)

// Source is the part of a catalog the scanner needs.
type Source interface {
	PrefixOrder() []string
	Prefixes() map[string][]string
	Extensions() []string
	Describe(name string) (*descriptor.Descriptor, error)
}

// candidate is one component file found under a root.
type candidate struct {
	name string
	path string
}

// Scan walks every search root of src and registers each component it
// can load. Components that fail to load are reported through the
// returned collector and do not stop the scan. Components registered by
// an earlier scan and no longer found are removed.
func (r *ComponentRegistry) Scan(ctx context.Context, src Source) (*tagxerrors.ErrorCollector, error) {
	candidates, err := discover(ctx, src)
	if err != nil {
		return nil, err
	}

	collector := tagxerrors.NewErrorCollector()
	infos := make([]*ComponentInfo, len(candidates))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, c := range candidates {
		g.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			d, err := src.Describe(c.name)
			if err != nil {
				collector.Add(c.name, c.path, err)
				return nil
			}
			infos[i] = FromDescriptor(d)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return collector, err
	}

	found := make(map[string]bool, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		found[info.FullName()] = true
		r.Register(info)
	}
	for name := range r.GetAll() {
		if !found[name] {
			r.Remove(name)
		}
	}

	return collector, nil
}

// discover lists component files root by root. A name already found in an
// earlier root of the same prefix shadows later ones, as lookups do.
func discover(ctx context.Context, src Source) ([]candidate, error) {
	prefixes := src.Prefixes()
	exts := src.Extensions()

	var out []candidate
	for _, prefix := range src.PrefixOrder() {
		seen := make(map[string]bool)
		for _, root := range prefixes[prefix] {
			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				if strings.HasPrefix(d.Name(), ".") && path != root {
					if d.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
				if d.IsDir() {
					return nil
				}
				ext := matchExt(d.Name(), exts)
				if ext == "" {
					return nil
				}
				rel, err := filepath.Rel(root, path)
				if err != nil {
					return err
				}
				name := resolver.NameFromPath(rel, ext)
				if name == "" || seen[name] {
					return nil
				}
				seen[name] = true
				if prefix != "" {
					name = prefix + descriptor.PrefixSep + name
				}
				out = append(out, candidate{name: name, path: path})
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func matchExt(file string, exts []string) string {
	for _, ext := range exts {
		if strings.HasSuffix(file, ext) && len(file) > len(ext) {
			return ext
		}
	}
	return ""
}
