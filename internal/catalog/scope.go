package catalog

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"strings"
	"text/template"

	"github.com/google/uuid"

	"github.com/conneroisu/tagx/internal/assets"
	"github.com/conneroisu/tagx/internal/descriptor"
	tagxerrors "github.com/conneroisu/tagx/internal/errors"
)

// frameKey holds the render frame inside a Scope. Template field names
// cannot contain a NUL byte, so bodies never see it.
const frameKey = "\x00frame"

// maxDepth bounds component nesting so a component that renders itself
// fails instead of exhausting the stack.
const maxDepth = 256

// renderContext is shared by every component of one top-level render.
type renderContext struct {
	ctx     context.Context
	catalog *Catalog
	assets  *assets.Collector
	depth   int
}

func (rc *renderContext) register(d *descriptor.Descriptor) {
	rc.assets.AddCSS(d.CSS...)
	rc.assets.AddJS(d.JS...)
}

// frame is the per-component state behind a Scope.
type frame struct {
	rc     *renderContext
	prefix string
	out    *stackWriter
	slots  *slotSource
}

// Scope is the data a component body executes against. Bound parameters,
// "attrs" and "content" are map entries; component calls, slots and asset
// markup are methods.
type Scope map[string]any

func (s Scope) frame() (*frame, error) {
	f, ok := s[frameKey].(*frame)
	if !ok {
		return nil, tagxerrors.NewInternalError(tagxerrors.ErrCodeInternalError, "scope has no render frame", nil)
	}
	return f, nil
}

// Render renders a nested component inline:
//
//	{{ $.Render "Icon" "name" "star" }}
func (s Scope) Render(name string, kv ...any) (string, error) {
	f, err := s.frame()
	if err != nil {
		return "", err
	}
	args, err := pairs(name, kv)
	if err != nil {
		return "", err
	}

	d, err := f.rc.catalog.load(f.rc, name, f.prefix)
	if err != nil {
		return "", err
	}
	return f.rc.catalog.renderDescriptor(f.rc, d, args)
}

// RenderBlock renders a nested component whose content is the body of the
// range action it is called from:
//
//	{{ range $slot, $_ := $.RenderBlock . "Card" "title" "Hi" -}}
//	  <p>body</p>
//	{{- end }}
//
// The body runs with the caller's dot. It runs once with $slot empty to
// produce the default content and again for each named slot the component
// asks for.
func (s Scope) RenderBlock(dot any, name string, kv ...any) (iter.Seq2[string, any], error) {
	f, err := s.frame()
	if err != nil {
		return nil, err
	}
	args, err := pairs(name, kv)
	if err != nil {
		return nil, err
	}
	d, err := f.rc.catalog.load(f.rc, name, f.prefix)
	if err != nil {
		return nil, err
	}

	return func(yield func(string, any) bool) {
		slots := &slotSource{yield: yield, dot: dot, out: f.out}

		// The component registers its assets before anything in its content.
		f.rc.register(d)

		content, err := slots.render("")
		if err == nil {
			args[ArgContent] = content
			var out string
			out, err = f.rc.catalog.execute(f.rc, d, args, slots)
			if err == nil {
				_, err = f.out.WriteString(out)
			}
		}
		if err != nil {
			panic(template.ExecError{Name: d.FullName(), Err: err})
		}
	}, nil
}

// Slot returns the caller's content for the named slot.
//
//	{{ $.Slot "header" }}
func (s Scope) Slot(name string) (string, error) {
	f, err := s.frame()
	if err != nil {
		return "", err
	}
	if f.slots == nil {
		return "", nil
	}
	return f.slots.render(name)
}

// RenderAssets returns a placeholder that becomes the link and script tags
// of every asset collected during the render, including assets registered
// after this call.
func (s Scope) RenderAssets() (string, error) {
	f, err := s.frame()
	if err != nil {
		return "", err
	}
	return f.rc.assets.Placeholder(), nil
}

// RandomID returns a unique id such as "id-3f0c...". The prefix defaults to
// "id".
func (s Scope) RandomID(prefix ...string) string {
	return RandomID(prefix...)
}

// RandomID returns prefix followed by a dash and 32 hex digits.
func RandomID(prefix ...string) string {
	p := "id"
	if len(prefix) > 0 && prefix[0] != "" {
		p = prefix[0]
	}
	return p + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// renderDescriptor registers the assets of d and executes it.
func (c *Catalog) renderDescriptor(rc *renderContext, d *descriptor.Descriptor, args map[string]any) (string, error) {
	rc.register(d)
	return c.execute(rc, d, args, nil)
}

// execute binds args against d and runs its template. The output is
// trimmed.
func (c *Catalog) execute(rc *renderContext, d *descriptor.Descriptor, args map[string]any, slots *slotSource) (string, error) {
	if d.Template == nil {
		return "", tagxerrors.NewInternalError(tagxerrors.ErrCodeInternalError, "component has no template", nil).WithComponent(d.Name)
	}

	rc.depth++
	defer func() { rc.depth-- }()
	if rc.depth > maxDepth {
		return "", tagxerrors.NewInternalError(tagxerrors.ErrCodeInternalError,
			fmt.Sprintf("components nested deeper than %d", maxDepth), nil).WithComponent(d.Name)
	}

	merged, content, err := mergeArgs(args)
	if err != nil {
		return "", err
	}
	params, extras, err := d.Bind(merged)
	if err != nil {
		return "", err
	}

	out := newStackWriter()
	scope := make(Scope, len(params)+3)
	for k, v := range params {
		scope[k] = v
	}
	scope[scopeAttrs] = NewAttrs(extras)
	scope[scopeContent] = content
	scope[frameKey] = &frame{rc: rc, prefix: d.Prefix, out: out, slots: slots}

	if err := d.Template.Execute(out, scope); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

// mergeArgs applies the reserved arguments: _attrs values sit under the
// explicit arguments and _content becomes the default content.
func mergeArgs(args map[string]any) (map[string]any, string, error) {
	merged := make(map[string]any, len(args))

	switch attrs := args[ArgAttrs].(type) {
	case nil:
	case *Attrs:
		for k, v := range attrs.AsMap() {
			merged[k] = v
		}
	case map[string]any:
		for k, v := range attrs {
			merged[k] = v
		}
	default:
		return nil, "", tagxerrors.NewInvalidArgumentError(fmt.Sprintf("%s must be attributes, got %T", ArgAttrs, attrs), nil)
	}

	for k, v := range args {
		if k == ArgAttrs || k == ArgContent {
			continue
		}
		merged[k] = v
	}

	content := ""
	if v, ok := args[ArgContent]; ok && v != nil {
		content = strings.TrimSpace(fmt.Sprint(v))
	}
	return merged, content, nil
}

// pairs turns "k1" v1 "k2" v2 into a map.
func pairs(name string, kv []any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, tagxerrors.NewInvalidArgumentError(fmt.Sprintf("odd number of arguments for `%s`", name), nil)
	}
	args := make(map[string]any, len(kv)/2+1)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			return nil, tagxerrors.NewInvalidArgumentError(fmt.Sprintf("argument %d of `%s` is not a name", i/2, name), nil)
		}
		args[key] = kv[i+1]
	}
	return args, nil
}

// slotSource runs the body of a block call for a slot name and captures
// what it writes.
type slotSource struct {
	yield func(string, any) bool
	dot   any
	out   *stackWriter
	done  bool
	cache map[string]string
}

func (s *slotSource) render(name string) (string, error) {
	if v, ok := s.cache[name]; ok {
		return v, nil
	}
	if s.done {
		return "", nil
	}

	s.out.push()
	finished := false
	defer func() {
		if !finished {
			// The body panicked; it must not be resumed.
			s.done = true
			s.out.pop()
		}
	}()
	more := s.yield(name, s.dot)
	finished = true
	content := strings.TrimSpace(s.out.pop())

	if !more {
		s.done = true
	}
	if s.cache == nil {
		s.cache = make(map[string]string)
	}
	s.cache[name] = content
	return content, nil
}

// stackWriter writes to the innermost pushed buffer so block bodies can be
// captured while their template keeps writing to the same io.Writer.
type stackWriter struct {
	bufs []*bytes.Buffer
}

func newStackWriter() *stackWriter {
	return &stackWriter{bufs: []*bytes.Buffer{new(bytes.Buffer)}}
}

func (w *stackWriter) Write(p []byte) (int, error) {
	return w.bufs[len(w.bufs)-1].Write(p)
}

func (w *stackWriter) WriteString(s string) (int, error) {
	return w.bufs[len(w.bufs)-1].WriteString(s)
}

func (w *stackWriter) push() {
	w.bufs = append(w.bufs, new(bytes.Buffer))
}

func (w *stackWriter) pop() string {
	top := w.bufs[len(w.bufs)-1]
	w.bufs = w.bufs[:len(w.bufs)-1]
	return top.String()
}

// String returns everything written at the bottom level.
func (w *stackWriter) String() string {
	return w.bufs[0].String()
}
