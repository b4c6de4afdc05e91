package catalog

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Component adapts a render of name to a templ.Component so catalog
// components can be embedded in templ pages and served with templ.Handler.
func (c *Catalog) Component(name string, args map[string]any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		out, err := c.Render(ctx, name, args)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	})
}

// SourceComponent is Component for an in-memory source.
func (c *Catalog) SourceComponent(name, source string, args map[string]any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		out, err := c.RenderSource(ctx, name, source, args)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	})
}
