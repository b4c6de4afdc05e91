package errors

import (
	"fmt"
	"html"
	"strings"
	"sync"
	"time"
)

// ComponentError records a failure tied to one component file.
type ComponentError struct {
	Component string
	File      string
	Err       error
	Timestamp time.Time
}

// Error implements the error interface
func (ce *ComponentError) Error() string {
	if ce.File == "" {
		return fmt.Sprintf("%s: %v", ce.Component, ce.Err)
	}

	return fmt.Sprintf("%s (%s): %v", ce.Component, ce.File, ce.Err)
}

// Unwrap returns the wrapped error.
func (ce *ComponentError) Unwrap() error {
	return ce.Err
}

// ErrorCollector collects per-component errors so tooling can keep going
// after one component fails to load.
type ErrorCollector struct {
	errors []ComponentError
	mutex  sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		errors: make([]ComponentError, 0),
	}
}

// Add records err against component. A nil err is ignored.
func (ec *ErrorCollector) Add(component, file string, err error) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = append(ec.errors, ComponentError{
		Component: component,
		File:      file,
		Err:       err,
		Timestamp: time.Now(),
	})
}

// GetErrors returns a copy of the collected errors
func (ec *ErrorCollector) GetErrors() []ComponentError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	result := make([]ComponentError, len(ec.errors))
	copy(result, ec.errors)
	return result
}

// GetErrorsByComponent returns errors for a specific component
func (ec *ErrorCollector) GetErrorsByComponent(component string) []ComponentError {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	var componentErrors []ComponentError
	for _, err := range ec.errors {
		if err.Component == component {
			componentErrors = append(componentErrors, err)
		}
	}
	return componentErrors
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.errors) > 0
}

// Clear clears all errors
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errors = ec.errors[:0]
}

// ErrorOverlay renders the collected errors as an HTML fragment for the
// preview server. It returns "" when there is nothing to show.
func (ec *ErrorCollector) ErrorOverlay() string {
	errs := ec.GetErrors()
	if len(errs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(`<div id="tagx-error-overlay" style="position:fixed;inset:0;background:rgba(0,0,0,.85);color:#fff;font-family:monospace;padding:20px;overflow:auto">`)
	b.WriteString(`<h2 style="color:#ff6b6b">Component errors</h2>`)
	for _, err := range errs {
		fmt.Fprintf(&b, `<pre style="background:#2d3748;padding:12px">%s</pre>`, html.EscapeString(err.Error()))
	}
	b.WriteString(`</div>`)

	return b.String()
}
