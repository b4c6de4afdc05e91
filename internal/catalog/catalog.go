// Package catalog renders components: it owns the search roots and the
// descriptor cache, and drives each top-level render with its own asset
// collector.
package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/conneroisu/tagx/internal/assets"
	"github.com/conneroisu/tagx/internal/cache"
	"github.com/conneroisu/tagx/internal/config"
	"github.com/conneroisu/tagx/internal/descriptor"
	tagxerrors "github.com/conneroisu/tagx/internal/errors"
	"github.com/conneroisu/tagx/internal/logging"
	"github.com/conneroisu/tagx/internal/preprocess"
	"github.com/conneroisu/tagx/internal/resolver"
)

// Reserved render arguments.
const (
	ArgAttrs   = "_attrs"
	ArgContent = "_content"
)

// Names the component body sees in its scope.
const (
	scopeAttrs   = "attrs"
	scopeContent = "content"
)

// Catalog is safe for concurrent renders.
type Catalog struct {
	cfg      *config.Config
	resolver *resolver.Resolver
	cache    *cache.Cache
	funcs    template.FuncMap
	logger   logging.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// WithFuncs makes funcs available to every component template.
func WithFuncs(funcs template.FuncMap) Option {
	return func(c *Catalog) {
		for name, fn := range funcs {
			c.funcs[name] = fn
		}
	}
}

// New creates a catalog and registers the folders listed in cfg.
func New(cfg *config.Config, opts ...Option) (*Catalog, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.Normalize()

	c := &Catalog{
		cfg:      cfg,
		resolver: resolver.New(),
		funcs:    template.FuncMap{},
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("catalog")

	store, err := cache.New(cfg.CacheSize, cfg.UseCache, cfg.AutoReload)
	if err != nil {
		return nil, tagxerrors.NewInternalError(tagxerrors.ErrCodeInternalError, "failed to create cache", err)
	}
	c.cache = store

	for _, folder := range cfg.Folders {
		if err := c.AddFolder(folder.Path, folder.Prefix); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Config returns the normalized configuration.
func (c *Catalog) Config() *config.Config {
	return c.cfg
}

// AddFolder registers a search root under prefix. Roots added first win.
func (c *Catalog) AddFolder(path, prefix string) error {
	info, err := os.Stat(path)
	if err != nil {
		return tagxerrors.NewIOError(tagxerrors.ErrCodeFileNotFound, "cannot add folder "+path, err)
	}
	if !info.IsDir() {
		return tagxerrors.NewIOError(tagxerrors.ErrCodeFileNotFound, path+" is not a directory", nil)
	}
	c.logger.Debug(context.Background(), "adding folder", "path", path, "prefix", prefix)
	return c.resolver.AddFolder(path, prefix)
}

// Prefixes returns a copy of the prefix to search-root mapping.
func (c *Catalog) Prefixes() map[string][]string {
	return c.resolver.Prefixes()
}

// PrefixOrder returns the prefixes in registration order.
func (c *Catalog) PrefixOrder() []string {
	return c.resolver.PrefixOrder()
}

// Extensions returns the accepted component file extensions.
func (c *Catalog) Extensions() []string {
	return append([]string(nil), c.cfg.FileExtensions...)
}

// Locate maps an asset URL relative to root_url onto a file in one of the
// search roots of its prefix.
func (c *Catalog) Locate(url string) (string, bool) {
	return assets.PrefixLocator(c.resolver.Prefixes)(url)
}

// Invalidate drops cached descriptors loaded from path.
func (c *Catalog) Invalidate(path string) {
	if n := c.cache.Invalidate(path); n > 0 {
		c.logger.Debug(context.Background(), "invalidated cache entries", "path", path, "count", n)
	}
}

// CacheStats reports cache traffic.
func (c *Catalog) CacheStats() cache.Stats {
	return c.cache.Stats()
}

// Render renders the component name with args. The assets collected along
// the way replace any RenderAssets placeholder in the output.
func (c *Catalog) Render(ctx context.Context, name string, args map[string]any) (string, error) {
	perf := logging.StartOperation(c.logger, "render")
	rc := c.newRenderContext(ctx)

	d, err := c.load(rc, name, "")
	if err != nil {
		perf.EndWithError(ctx, err, "name", name)
		return "", err
	}
	out, err := c.renderDescriptor(rc, d, args)
	if err != nil {
		perf.EndWithError(ctx, err, "name", name)
		return "", err
	}

	perf.End(ctx, "name", name)
	return rc.assets.Resolve(out), nil
}

// RenderSource renders source as if it were the component name. Nothing is
// read from disk for the component itself and the result is not cached.
func (c *Catalog) RenderSource(ctx context.Context, name, source string, args map[string]any) (string, error) {
	prefix, bare, explicit := resolver.SplitName(name)
	if explicit {
		if _, ok := c.resolver.Prefixes()[prefix]; !ok {
			return "", tagxerrors.NewUnknownPrefixError(prefix)
		}
	}

	d := descriptor.New(bare, prefix)
	if err := c.compile(d, source); err != nil {
		return "", err
	}

	rc := c.newRenderContext(ctx)
	out, err := c.renderDescriptor(rc, d, args)
	if err != nil {
		return "", err
	}
	return rc.assets.Resolve(out), nil
}

// GetSource returns the raw source of a component. ext overrides the
// configured extensions.
func (c *Catalog) GetSource(name string, ext ...string) (string, error) {
	exts := ext
	if len(exts) == 0 {
		exts = c.cfg.FileExtensions
	}
	m, err := c.resolver.Resolve(name, "", exts)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return "", tagxerrors.NewIOError(tagxerrors.ErrCodeFileNotFound, "cannot read "+m.Path, err)
	}
	return string(data), nil
}

// Describe loads the descriptor of name without rendering it.
func (c *Catalog) Describe(name string) (*descriptor.Descriptor, error) {
	return c.load(c.newRenderContext(context.Background()), name, "")
}

func (c *Catalog) newRenderContext(ctx context.Context) *renderContext {
	if ctx == nil {
		ctx = context.Background()
	}
	var locate assets.Locator
	if c.cfg.Fingerprint {
		locate = assets.PrefixLocator(c.resolver.Prefixes)
	}
	return &renderContext{
		ctx:     ctx,
		catalog: c,
		assets:  assets.NewCollector(c.cfg.RootURL, locate),
	}
}

// load returns the descriptor for name, looked up from a component loaded
// under callerPrefix.
func (c *Catalog) load(rc *renderContext, name, callerPrefix string) (*descriptor.Descriptor, error) {
	if err := rc.ctx.Err(); err != nil {
		return nil, err
	}

	prefix, bare, explicit := resolver.SplitName(strings.TrimSpace(name))
	if !explicit {
		prefix = callerPrefix
	}
	key := cache.NewKey(prefix, explicit, bare, c.cfg.FileExtensions)

	if d, ok := c.cache.Get(key); ok {
		return d, nil
	}

	m, err := c.resolver.Resolve(name, callerPrefix, c.cfg.FileExtensions)
	if err != nil {
		return nil, err
	}
	c.logger.Debug(rc.ctx, "loading component", "key", key.String(), "path", m.Path)

	source, err := os.ReadFile(m.Path)
	if err != nil {
		return nil, tagxerrors.NewIOError(tagxerrors.ErrCodeFileNotFound, "cannot read "+m.Path, err)
	}

	d := descriptor.New(m.Name, m.Prefix)
	d.Path = m.Path
	d.RelPath = m.RelPath
	d.ModTime = m.ModTime
	if err := c.compile(d, string(source)); err != nil {
		return nil, err
	}
	d.AddSiblingAssets()

	c.cache.Put(key, d)
	return d, nil
}

// compile reads the metadata header of source and parses its lowered body.
func (c *Catalog) compile(d *descriptor.Descriptor, source string) error {
	if err := d.LoadMetadata(source); err != nil {
		if te, ok := tagxerrors.As(err); ok && d.FileBacked() && te.FilePath == "" {
			te.FilePath = d.Path
		}
		return err
	}

	file := d.Path
	if file == "" {
		file = d.FullName()
	}
	lowered, err := preprocess.Preprocess(source, file)
	if err != nil {
		return err
	}

	tmpl, err := template.New(d.FullName()).
		Option("missingkey=error").
		Funcs(c.funcs).
		Parse(lowered)
	if err != nil {
		return tagxerrors.NewSyntaxError(fmt.Sprintf("cannot parse component `%s`", d.FullName()), file, 0).
			WithComponent(d.Name).
			WithCause(err)
	}
	d.Template = tmpl
	return nil
}
