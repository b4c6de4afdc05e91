// Package registry keeps a listing of the components reachable from a
// catalog's search roots, for tooling such as `tagx list` and the preview
// index.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/conneroisu/tagx/internal/descriptor"
)

// ComponentRegistry manages all discovered components
type ComponentRegistry struct {
	components map[string]*ComponentInfo
	mutex      sync.RWMutex
	watchers   []chan ComponentEvent
}

// ComponentInfo holds the public contract of one component.
type ComponentInfo struct {
	Name       string          `json:"name"       yaml:"name"       toml:"name"`
	Prefix     string          `json:"prefix"     yaml:"prefix"     toml:"prefix"`
	FilePath   string          `json:"path"       yaml:"path"       toml:"path"`
	RelPath    string          `json:"rel_path"   yaml:"rel_path"   toml:"rel_path"`
	Parameters []ParameterInfo `json:"parameters" yaml:"parameters" toml:"parameters"`
	CSS        []string        `json:"css"        yaml:"css"        toml:"css"`
	JS         []string        `json:"js"         yaml:"js"         toml:"js"`
	LastMod    time.Time       `json:"modified"   yaml:"modified"   toml:"modified"`
}

// ParameterInfo describes a component parameter
type ParameterInfo struct {
	Name     string `json:"name"              yaml:"name"              toml:"name"`
	Optional bool   `json:"optional"          yaml:"optional"          toml:"optional"`
	Default  any    `json:"default,omitempty" yaml:"default,omitempty" toml:"default,omitempty"`
}

// FullName is the name a render call uses to reach the component.
func (c *ComponentInfo) FullName() string {
	if c.Prefix == "" {
		return c.Name
	}
	return c.Prefix + descriptor.PrefixSep + c.Name
}

// Required lists the names of the required parameters.
func (c *ComponentInfo) Required() []string {
	var names []string
	for _, p := range c.Parameters {
		if !p.Optional {
			names = append(names, p.Name)
		}
	}
	return names
}

// FromDescriptor builds the listing entry of a loaded component.
func FromDescriptor(d *descriptor.Descriptor) *ComponentInfo {
	info := &ComponentInfo{
		Name:     d.Name,
		Prefix:   d.Prefix,
		FilePath: d.Path,
		RelPath:  d.RelPath,
		CSS:      append([]string(nil), d.CSS...),
		JS:       append([]string(nil), d.JS...),
		LastMod:  d.ModTime,
	}
	for _, name := range d.Required {
		info.Parameters = append(info.Parameters, ParameterInfo{Name: name})
	}
	for _, p := range d.Optional {
		info.Parameters = append(info.Parameters, ParameterInfo{Name: p.Name, Optional: true, Default: p.Default})
	}
	return info
}

// ComponentEvent represents a change in the component registry
type ComponentEvent struct {
	Type      EventType
	Component *ComponentInfo
	Timestamp time.Time
}

// EventType represents the type of component event
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
	EventTypeRemoved
)

// NewComponentRegistry creates a new component registry
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		components: make(map[string]*ComponentInfo),
		watchers:   make([]chan ComponentEvent, 0),
	}
}

// Register adds or updates a component, keyed by its full name.
func (r *ComponentRegistry) Register(component *ComponentInfo) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := component.FullName()
	eventType := EventTypeAdded
	if _, exists := r.components[key]; exists {
		eventType = EventTypeUpdated
	}

	r.components[key] = component
	r.notify(eventType, component)
}

// Get retrieves a component by full name ("ui:Button").
func (r *ComponentRegistry) Get(name string) (*ComponentInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	component, exists := r.components[name]
	return component, exists
}

// GetAll returns all registered components, keyed by full name.
func (r *ComponentRegistry) GetAll() map[string]*ComponentInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make(map[string]*ComponentInfo, len(r.components))
	for name, component := range r.components {
		result[name] = component
	}
	return result
}

// List returns the components sorted by prefix, then name.
func (r *ComponentRegistry) List() []*ComponentInfo {
	r.mutex.RLock()
	list := make([]*ComponentInfo, 0, len(r.components))
	for _, component := range r.components {
		list = append(list, component)
	}
	r.mutex.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].Prefix != list[j].Prefix {
			return list[i].Prefix < list[j].Prefix
		}
		return list[i].Name < list[j].Name
	})
	return list
}

// Remove removes a component from the registry
func (r *ComponentRegistry) Remove(name string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	component, exists := r.components[name]
	if !exists {
		return
	}

	delete(r.components, name)
	r.notify(EventTypeRemoved, component)
}

func (r *ComponentRegistry) notify(eventType EventType, component *ComponentInfo) {
	event := ComponentEvent{
		Type:      eventType,
		Component: component,
		Timestamp: time.Now(),
	}

	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}

// Watch returns a channel that receives component events
func (r *ComponentRegistry) Watch() <-chan ComponentEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan ComponentEvent, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (r *ComponentRegistry) UnWatch(ch <-chan ComponentEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// Count returns the number of registered components
func (r *ComponentRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.components)
}
