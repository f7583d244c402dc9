// Package scope defines the scopes descriptors are evaluated in.
//
// Each scope kind is a distinct Go type so that type-level filters can
// decide visibility from reflect.Type alone.
package scope

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"k8s.io/apimachinery/pkg/labels"
)

// Kind names a scope type.
type Kind string

// Supported scope kinds.
const (
	KindGlobal  Kind = "global"
	KindFolder  Kind = "folder"
	KindProject Kind = "project"
	KindAgent   Kind = "agent"
)

// Meta holds the attributes shared by every scope.
type Meta struct {
	// Name identifies the scope within its kind (e.g. "web").
	Name string `json:"name,omitempty"`

	// Labels are matched by label-based filters.
	Labels map[string]string `json:"labels,omitempty"`

	// Version is the semantic version of the scope, compared against a
	// descriptor's Since. Empty means unknown.
	Version string `json:"version,omitempty"`
}

// Scope is implemented by every scope type.
type Scope interface {
	Kind() Kind
	Info() Meta
}

// Global is the instance-wide scope.
type Global struct{ Meta }

// Folder groups projects.
type Folder struct{ Meta }

// Project is a single project.
type Project struct{ Meta }

// Agent is a build agent.
type Agent struct{ Meta }

func (Global) Kind() Kind  { return KindGlobal }
func (Folder) Kind() Kind  { return KindFolder }
func (Project) Kind() Kind { return KindProject }
func (Agent) Kind() Kind   { return KindAgent }

// Info returns the shared attributes.
func (m Meta) Info() Meta { return m }

// Validate reports an error when Version is set but not a semantic version.
func (m Meta) Validate() error {
	if m.Version == "" {
		return nil
	}

	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("invalid scope version %q: %w", m.Version, err)
	}

	return nil
}

// LabelSet returns the labels as a labels.Set.
func (m Meta) LabelSet() labels.Set { return labels.Set(m.Labels) }

func (s Global) String() string  { return format(s) }
func (s Folder) String() string  { return format(s) }
func (s Project) String() string { return format(s) }
func (s Agent) String() string   { return format(s) }

func format(s Scope) string {
	if s.Info().Name == "" {
		return string(s.Kind())
	}

	return string(s.Kind()) + ":" + s.Info().Name
}

var (
	types = map[Kind]reflect.Type{
		KindGlobal:  reflect.TypeOf(Global{}),
		KindFolder:  reflect.TypeOf(Folder{}),
		KindProject: reflect.TypeOf(Project{}),
		KindAgent:   reflect.TypeOf(Agent{}),
	}

	kinds = func() map[reflect.Type]Kind {
		m := make(map[reflect.Type]Kind, len(types))
		for k, t := range types {
			m[t] = k
		}

		return m
	}()
)

// Kinds returns all supported kinds, sorted.
func Kinds() []Kind {
	out := make([]Kind, 0, len(types))
	for k := range types {
		out = append(out, k)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// ParseKind parses a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := types[k]; !ok {
		return "", fmt.Errorf("unknown scope kind %q: must be one of %s", s, joinKinds())
	}

	return k, nil
}

// TypeOf returns the Go type of scopes of kind k, or nil for unknown kinds.
func TypeOf(k Kind) reflect.Type {
	return types[Kind(strings.ToLower(string(k)))]
}

// KindOf maps a scope type back to its kind. Pointer types are
// dereferenced.
func KindOf(t reflect.Type) (Kind, bool) {
	if t == nil {
		return "", false
	}

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	k, ok := kinds[t]

	return k, ok
}

// TypeName returns the kind of t when t is a scope type, t.String()
// otherwise, and "<nil>" for a nil type.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	if k, ok := KindOf(t); ok {
		return string(k)
	}

	return t.String()
}

// New creates a scope of kind k. It fails when m does not validate.
func New(k Kind, m Meta) (Scope, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	switch Kind(strings.ToLower(string(k))) {
	case KindGlobal:
		return Global{m}, nil
	case KindFolder:
		return Folder{m}, nil
	case KindProject:
		return Project{m}, nil
	case KindAgent:
		return Agent{m}, nil
	}

	return nil, fmt.Errorf("unknown scope kind %q: must be one of %s", k, joinKinds())
}

// Parse parses a "kind[:name]" reference such as "project:web".
func Parse(ref string) (Scope, error) {
	return ParseWith(ref, Meta{})
}

// ParseWith parses ref like Parse and applies the labels and version of m.
// A name in ref takes precedence over m.Name.
func ParseWith(ref string, m Meta) (Scope, error) {
	kindPart, name, _ := strings.Cut(strings.TrimSpace(ref), ":")

	k, err := ParseKind(kindPart)
	if err != nil {
		return nil, err
	}

	if name = strings.TrimSpace(name); name != "" {
		m.Name = name
	}

	return New(k, m)
}

// Of returns the Scope held by v, or nil when v is not a scope.
func Of(v any) Scope {
	s, _ := v.(Scope)

	return s
}

func joinKinds() string {
	ks := Kinds()
	names := make([]string, len(ks))

	for i, k := range ks {
		names[i] = string(k)
	}

	return strings.Join(names, ", ")
}
