package output

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Built-in format names.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Formatter renders a report.
type Formatter func(r *Report) ([]byte, error)

// Registry maps format names to Formatter functions, enabling pluggable
// output formats for the filter command.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
}

// NewRegistry creates an empty formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
	}
}

// Register adds a formatter under the given format name.
// Existing entries for the same name are overwritten.
func (r *Registry) Register(name string, f Formatter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.formatters[strings.ToLower(name)] = f
}

// Formatter returns the formatter for the given format, or an error if not
// found. Lookup is case-insensitive.
func (r *Registry) Formatter(name string) (Formatter, error) {
	r.mu.RLock()
	f, ok := r.formatters[strings.ToLower(name)]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %s)", name, r.AvailableFormats())
	}

	return f, nil
}

// Render formats rep with the named formatter.
func (r *Registry) Render(name string, rep *Report) ([]byte, error) {
	f, err := r.Formatter(name)
	if err != nil {
		return nil, err
	}

	return f(rep)
}

// Formats returns the sorted list of registered format names.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// AvailableFormats returns a comma-separated string of registered format names.
func (r *Registry) AvailableFormats() string {
	formats := r.Formats()
	if len(formats) == 0 {
		return "none"
	}

	return strings.Join(formats, ", ")
}

// DefaultRegistry returns a registry pre-populated with the built-in
// output formats: table, json, yaml.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(FormatTable, func(rep *Report) ([]byte, error) {
		var buf bytes.Buffer
		if err := WriteTable(&buf, rep); err != nil {
			return nil, err
		}

		return buf.Bytes(), nil
	})

	r.Register(FormatJSON, func(rep *Report) ([]byte, error) {
		return SerializeJSON(rep, "  ")
	})

	r.Register(FormatYAML, func(rep *Report) ([]byte, error) {
		return SerializeYAML(rep)
	})

	return r
}
