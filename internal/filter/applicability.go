package filter

import (
	"reflect"

	"github.com/hupe1980/descvis/internal/scope"
	"github.com/hupe1980/descvis/internal/visibility"
)

// ApplicabilityFilter hides descriptors whose ApplicableTo list does not
// contain the scope kind. Scope types that are not scope kinds are approved.
type ApplicabilityFilter struct {
	named
	visibility.Base
}

// compile-time interface conformance check.
var _ visibility.Filter = (*ApplicabilityFilter)(nil)

// NewApplicabilityFilter creates an ApplicabilityFilter. An empty name
// defaults to "applicability".
func NewApplicabilityFilter(name string) *ApplicabilityFilter {
	return &ApplicabilityFilter{named: nameOr(name, TypeApplicability)}
}

// FilterType reports whether the descriptor applies to the kind of scopeType.
func (f *ApplicabilityFilter) FilterType(scopeType reflect.Type, item visibility.Item) (bool, error) {
	d, ok := asDescriptor(item)
	if !ok {
		return true, nil
	}

	kind, ok := scope.KindOf(scopeType)
	if !ok {
		return true, nil
	}

	return d.AppliesTo(kind), nil
}
