package filter

import (
	"reflect"
	"strings"

	"github.com/hupe1980/descvis/internal/scope"
	"github.com/hupe1980/descvis/internal/visibility"
)

// CategoryFilter hides descriptors of the listed categories. When kinds are
// given it only hides them in scopes of those kinds. Matching is
// case-insensitive.
type CategoryFilter struct {
	named
	visibility.Base

	categories map[string]bool
	kinds      map[scope.Kind]bool
}

// compile-time interface conformance check.
var _ visibility.Filter = (*CategoryFilter)(nil)

// NewCategoryFilter creates a CategoryFilter. An empty name defaults to
// "category".
func NewCategoryFilter(name string, categories []string, kinds []scope.Kind) *CategoryFilter {
	f := &CategoryFilter{
		named:      nameOr(name, TypeCategory),
		categories: make(map[string]bool, len(categories)),
	}

	for _, c := range categories {
		f.categories[strings.ToLower(c)] = true
	}

	if len(kinds) > 0 {
		f.kinds = make(map[scope.Kind]bool, len(kinds))
		for _, k := range kinds {
			f.kinds[scope.Kind(strings.ToLower(string(k)))] = true
		}
	}

	return f
}

// FilterType hides descriptors of a listed category.
func (f *CategoryFilter) FilterType(scopeType reflect.Type, item visibility.Item) (bool, error) {
	d, ok := asDescriptor(item)
	if !ok {
		return true, nil
	}

	if f.kinds != nil {
		kind, ok := scope.KindOf(scopeType)
		if !ok || !f.kinds[kind] {
			return true, nil
		}
	}

	return !f.categories[strings.ToLower(d.Category)], nil
}
