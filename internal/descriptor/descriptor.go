// Package descriptor holds the parsed contract of a component: its required
// and optional parameters, the CSS and JS assets it declares, and where its
// source came from.
package descriptor

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	tagxerrors "github.com/conneroisu/tagx/internal/errors"
)

const (
	// Delimiter separates the segments of a component name.
	Delimiter = "."
	// PrefixSep separates an explicit prefix from the component name.
	PrefixSep = ":"
)

// Param is an optional parameter and its evaluated default.
type Param struct {
	Name    string
	Default any
}

// Descriptor is the parsed form of one component.
type Descriptor struct {
	Name      string
	Prefix    string
	URLPrefix string

	Required []string
	Optional []Param

	CSS []string
	JS  []string

	// Path is empty for components rendered from an inline string.
	Path    string
	RelPath string
	ModTime time.Time

	Template *template.Template
}

// New returns an empty descriptor for name under prefix.
func New(name, prefix string) *Descriptor {
	return &Descriptor{
		Name:      name,
		Prefix:    prefix,
		URLPrefix: URLPrefix(prefix),
	}
}

// FileBacked reports whether the descriptor was loaded from a file.
func (d *Descriptor) FileBacked() bool {
	return d.Path != ""
}

// FullName is the prefixed name, e.g. "ui:Card".
func (d *Descriptor) FullName() string {
	if d.Prefix == "" {
		return d.Name
	}
	return d.Prefix + PrefixSep + d.Name
}

// AddSiblingAssets declares <file>.css and <file>.js when they exist next to
// the component file.
func (d *Descriptor) AddSiblingAssets() {
	if !d.FileBacked() {
		return
	}
	ext := filepath.Ext(d.Path)
	base := strings.TrimSuffix(d.Path, ext)
	relBase := strings.TrimSuffix(d.RelPath, path.Ext(d.RelPath))
	if relBase == "" {
		relBase = strings.ReplaceAll(d.Name, Delimiter, "/")
	}

	if isFile(base + ".css") {
		d.CSS = append(d.CSS, d.URLPrefix+relBase+".css")
	}
	if isFile(base + ".js") {
		d.JS = append(d.JS, d.URLPrefix+relBase+".js")
	}
}

// Bind checks args against the parameter contract. It returns the declared
// parameters, with defaults filled in, and the remaining extra values.
func (d *Descriptor) Bind(args map[string]any) (map[string]any, map[string]any, error) {
	params := make(map[string]any, len(d.Required)+len(d.Optional))
	extras := make(map[string]any, len(args))
	for k, v := range args {
		extras[k] = v
	}

	for _, name := range d.Required {
		v, ok := extras[name]
		if !ok {
			return nil, nil, tagxerrors.NewMissingArgumentError(d.Name, name)
		}
		params[name] = v
		delete(extras, name)
	}

	for _, p := range d.Optional {
		if v, ok := extras[p.Name]; ok {
			params[p.Name] = v
			delete(extras, p.Name)
			continue
		}
		params[p.Name] = copyValue(p.Default)
	}

	return params, extras, nil
}

// URLPrefix derives the asset URL prefix of a component prefix:
// "ui.forms" becomes "ui/forms/".
func URLPrefix(prefix string) string {
	p := strings.Trim(strings.TrimSpace(prefix), Delimiter+"/")
	p = strings.ReplaceAll(p, Delimiter, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// copyValue copies lists and maps so a default is never shared between renders.
func copyValue(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = copyValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = copyValue(item)
		}
		return out
	}
	return v
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
