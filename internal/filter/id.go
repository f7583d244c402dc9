package filter

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/hupe1980/descvis/internal/visibility"
)

// IDFilter hides descriptors by id using glob patterns. Exclude patterns
// take precedence; when include patterns are given an id must match one of
// them to stay visible. '*' matches across dots.
type IDFilter struct {
	named
	visibility.Base

	include []glob.Glob
	exclude []glob.Glob
}

// compile-time interface conformance check.
var _ visibility.Filter = (*IDFilter)(nil)

// NewIDFilter compiles the patterns into an IDFilter. An empty name
// defaults to "id".
func NewIDFilter(name string, include, exclude []string) (*IDFilter, error) {
	in, err := compileAll(include)
	if err != nil {
		return nil, fmt.Errorf("include: %w", err)
	}

	ex, err := compileAll(exclude)
	if err != nil {
		return nil, fmt.Errorf("exclude: %w", err)
	}

	return &IDFilter{named: nameOr(name, TypeID), include: in, exclude: ex}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))

	for _, p := range patterns {
		// No separators: '*' matches across any character.
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", p, err)
		}

		out = append(out, g)
	}

	return out, nil
}

// Filter applies the include and exclude patterns to the item id.
func (f *IDFilter) Filter(_ any, item visibility.Item) (bool, error) {
	id := item.ID()

	for _, g := range f.exclude {
		if g.Match(id) {
			return false, nil
		}
	}

	if len(f.include) == 0 {
		return true, nil
	}

	for _, g := range f.include {
		if g.Match(id) {
			return true, nil
		}
	}

	return false, nil
}
