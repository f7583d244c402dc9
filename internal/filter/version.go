package filter

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/hupe1980/descvis/internal/scope"
	"github.com/hupe1980/descvis/internal/visibility"
)

// VersionFilter hides descriptors introduced after the scope's version.
// Descriptors without Since and scopes without a version are approved.
// An unparseable version is reported as a filter failure, which also hides
// the descriptor.
//
// With a constraint, descriptors whose Since does not satisfy it are hidden
// in every scope.
type VersionFilter struct {
	named
	visibility.Base

	constraint *semver.Constraints
}

// compile-time interface conformance check.
var _ visibility.Filter = (*VersionFilter)(nil)

// NewVersionFilter creates a VersionFilter. constraint may be empty. An
// empty name defaults to "version".
func NewVersionFilter(name, constraint string) (*VersionFilter, error) {
	f := &VersionFilter{named: nameOr(name, TypeVersion)}

	if constraint != "" {
		c, err := semver.NewConstraint(constraint)
		if err != nil {
			return nil, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
		}

		f.constraint = c
	}

	return f, nil
}

// Filter compares the descriptor's Since with the scope's version.
func (f *VersionFilter) Filter(scopeValue any, item visibility.Item) (bool, error) {
	d, ok := asDescriptor(item)
	if !ok || d.Since == "" {
		return true, nil
	}

	since, err := semver.NewVersion(d.Since)
	if err != nil {
		return false, fmt.Errorf("descriptor %q: invalid since version %q: %w", d.Key, d.Since, err)
	}

	if f.constraint != nil && !f.constraint.Check(since) {
		return false, nil
	}

	s := scope.Of(scopeValue)
	if s == nil || s.Info().Version == "" {
		return true, nil
	}

	current, err := semver.NewVersion(s.Info().Version)
	if err != nil {
		return false, fmt.Errorf("scope %v: invalid version %q: %w", s, s.Info().Version, err)
	}

	return !since.GreaterThan(current), nil
}
