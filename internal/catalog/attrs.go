package catalog

import (
	"fmt"
	"sort"
	"strings"

	tagxerrors "github.com/conneroisu/tagx/internal/errors"
)

const (
	classKey    = "class"
	classAltKey = "classes"
)

// Attrs holds the arguments a component received but did not declare, ready
// to be rendered as HTML attributes. A value of true makes a valueless
// property such as "disabled". Underscores in names become hyphens, so
// aria_label renders as aria-label.
//
// The mutating methods return an empty string so they can be called from a
// template action:
//
//	{{ .attrs.SetDefault "type" "button" }}<button {{ .attrs.Render }}>
type Attrs struct {
	attributes map[string]any
	properties map[string]bool
	classes    map[string]bool
}

// NewAttrs builds Attrs from a map of values. "class" and "classes" are both
// read as space separated class lists. Keys starting with "__" are ignored.
func NewAttrs(values map[string]any) *Attrs {
	a := &Attrs{
		attributes: make(map[string]any),
		properties: make(map[string]bool),
		classes:    make(map[string]bool),
	}
	for name, value := range values {
		switch {
		case strings.HasPrefix(name, "__"):
		case name == classKey || name == classAltKey:
			if value != nil {
				a.AddClass(fmt.Sprint(value))
			}
		default:
			a.Set(name, value)
		}
	}
	return a
}

// Classes returns the classes sorted and space separated.
func (a *Attrs) Classes() string {
	return strings.Join(sortedKeys(a.classes), " ")
}

// AsMap returns the attributes, with the merged class list, and the
// properties as true values.
func (a *Attrs) AsMap() map[string]any {
	out := make(map[string]any, len(a.attributes)+len(a.properties)+1)
	for name, value := range a.attributes {
		out[name] = value
	}
	if classes := a.Classes(); classes != "" {
		out[classKey] = classes
	}
	for name := range a.properties {
		out[name] = true
	}
	return out
}

// Set sets an attribute. true sets a property, false or nil removes the
// name, and class values are added to the existing classes.
func (a *Attrs) Set(name string, value any) string {
	name = attrName(name)
	switch v := value.(type) {
	case nil:
		a.remove(name)
	case bool:
		if !v {
			a.remove(name)
			break
		}
		if name == classKey || name == classAltKey {
			break
		}
		delete(a.attributes, name)
		a.properties[name] = true
	default:
		if name == classKey || name == classAltKey {
			a.AddClass(fmt.Sprint(v))
			break
		}
		delete(a.properties, name)
		a.attributes[name] = v
	}
	return ""
}

// SetDefault sets an attribute only if it is not already present. Boolean
// and nil values are ignored.
func (a *Attrs) SetDefault(name string, value any) string {
	if _, ok := value.(bool); ok || value == nil {
		return ""
	}
	name = attrName(name)
	if name == classKey || name == classAltKey {
		if len(a.classes) == 0 {
			a.AddClass(fmt.Sprint(value))
		}
		return ""
	}
	if _, ok := a.attributes[name]; !ok {
		a.Set(name, value)
	}
	return ""
}

// AddClass adds each space separated class in values.
func (a *Attrs) AddClass(values ...string) string {
	for _, value := range values {
		for _, class := range strings.Fields(value) {
			a.classes[class] = true
		}
	}
	return ""
}

// RemoveClass removes the named classes.
func (a *Attrs) RemoveClass(names ...string) string {
	for _, name := range names {
		delete(a.classes, name)
	}
	return ""
}

// Get returns the value of an attribute, true for a property, or def (nil
// when omitted) if the name is not set.
func (a *Attrs) Get(name string, def ...any) any {
	name = attrName(name)
	if name == classKey || name == classAltKey {
		return a.Classes()
	}
	if v, ok := a.attributes[name]; ok {
		return v
	}
	if a.properties[name] {
		return true
	}
	if len(def) > 0 {
		return def[0]
	}
	return nil
}

// Render applies kv as Set pairs and renders the attributes sorted by name,
// followed by the sorted properties.
func (a *Attrs) Render(kv ...any) (string, error) {
	if len(kv)%2 != 0 {
		return "", tagxerrors.NewInvalidArgumentError("attrs.Render needs name value pairs", nil)
	}
	for i := 0; i < len(kv); i += 2 {
		name, ok := kv[i].(string)
		if !ok {
			return "", tagxerrors.NewInvalidArgumentError(fmt.Sprintf("attribute name %v is not a string", kv[i]), nil)
		}
		a.Set(name, kv[i+1])
	}
	return a.String(), nil
}

// String renders the attributes without changing them.
func (a *Attrs) String() string {
	values := make(map[string]string, len(a.attributes)+1)
	for name, value := range a.attributes {
		values[name] = fmt.Sprint(value)
	}
	if classes := a.Classes(); classes != "" {
		values[classKey] = classes
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+len(a.properties))
	for _, name := range names {
		parts = append(parts, name+"="+quoteAttr(values[name]))
	}
	parts = append(parts, sortedKeys(a.properties)...)
	return strings.Join(parts, " ")
}

func (a *Attrs) remove(name string) {
	if name == classKey || name == classAltKey {
		a.classes = make(map[string]bool)
	}
	delete(a.attributes, name)
	delete(a.properties, name)
}

// quoteAttr uses double quotes, single quotes for a value containing only
// double quotes, and &quot; when the value has both.
func quoteAttr(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	return `"` + strings.ReplaceAll(s, `"`, "&quot;") + `"`
}

func attrName(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k, ok := range m {
		if ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
