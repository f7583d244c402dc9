// Package descriptor provides the catalog entries whose visibility is
// decided by filters.
package descriptor

import (
	"slices"
	"strings"

	"k8s.io/apimachinery/pkg/labels"

	"github.com/hupe1980/descvis/internal/scope"
	"github.com/hupe1980/descvis/internal/visibility"
)

// compile-time interface conformance check.
var _ visibility.Item = (*Descriptor)(nil)

// Descriptor is a catalog entry: a kind of thing that can be offered to the
// user in some scope.
type Descriptor struct {
	// Key is the unique identifier (e.g. "builder.shell").
	Key string `yaml:"id" json:"id"`

	// Name is the human-facing label. Falls back to Key when empty.
	Name string `yaml:"displayName,omitempty" json:"displayName,omitempty"`

	// Category groups descriptors (e.g. "builder", "publisher").
	Category string `yaml:"category,omitempty" json:"category,omitempty"`

	// Description is free text shown in listings.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Labels are matched by label selectors.
	Labels map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`

	// Since is the semantic version that introduced the descriptor.
	Since string `yaml:"since,omitempty" json:"since,omitempty"`

	// ApplicableTo lists the scope kinds the descriptor is offered in.
	// Empty means every kind.
	ApplicableTo []scope.Kind `yaml:"applicableTo,omitempty" json:"applicableTo,omitempty"`

	// Source is the catalog path that defined the descriptor.
	// Empty when the source is unknown.
	Source string `yaml:"-" json:"source,omitempty"`

	// Line is the line of Source on which the descriptor starts.
	Line int `yaml:"-" json:"-"`
}

// ID returns the unique identifier.
func (d *Descriptor) ID() string {
	return d.Key
}

// DisplayName returns Name, or Key when no name is set.
func (d *Descriptor) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}

	return d.Key
}

// LabelSet returns the labels as a labels.Set.
func (d *Descriptor) LabelSet() labels.Set {
	return labels.Set(d.Labels)
}

// AppliesTo reports whether the descriptor is offered in scopes of kind k.
func (d *Descriptor) AppliesTo(k scope.Kind) bool {
	if len(d.ApplicableTo) == 0 {
		return true
	}

	return slices.ContainsFunc(d.ApplicableTo, func(a scope.Kind) bool {
		return strings.EqualFold(string(a), string(k))
	})
}

// QualifiedName returns "category/id" for display purposes, or the ID when
// the descriptor has no category.
func (d *Descriptor) QualifiedName() string {
	if d.Category == "" {
		return d.Key
	}

	return d.Category + "/" + d.Key
}

// IDs returns the identifiers of ds in order.
func IDs(ds []*Descriptor) []string {
	ids := make([]string, len(ds))
	for i, d := range ds {
		ids[i] = d.Key
	}

	return ids
}
