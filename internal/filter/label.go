package filter

import (
	"errors"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/labels"

	"github.com/hupe1980/descvis/internal/scope"
	"github.com/hupe1980/descvis/internal/visibility"
)

// LabelFilter hides descriptors whose labels match a label selector.
// Supported syntax is that of Kubernetes label selectors: "key=value",
// "key!=value", "key in (v1,v2)", "key notin (v1)", "key" and "!key".
//
// With a scope selector the filter only hides descriptors in scopes whose
// labels match it; it then approves everything for a nil scope.
type LabelFilter struct {
	named
	visibility.Base

	selector      labels.Selector
	scopeSelector labels.Selector
}

// compile-time interface conformance check.
var _ visibility.Filter = (*LabelFilter)(nil)

// NewLabelFilter creates a LabelFilter. selector must not be empty;
// scopeSelector may be. An empty name defaults to "label".
func NewLabelFilter(name, selector, scopeSelector string) (*LabelFilter, error) {
	if strings.TrimSpace(selector) == "" {
		return nil, errors.New("label selector must not be empty")
	}

	sel, err := labels.Parse(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid label selector %q: %w", selector, err)
	}

	f := &LabelFilter{named: nameOr(name, TypeLabel), selector: sel}

	if strings.TrimSpace(scopeSelector) != "" {
		ss, err := labels.Parse(scopeSelector)
		if err != nil {
			return nil, fmt.Errorf("invalid scope selector %q: %w", scopeSelector, err)
		}

		f.scopeSelector = ss
	}

	return f, nil
}

// Filter hides descriptors whose labels match the selector.
func (f *LabelFilter) Filter(scopeValue any, item visibility.Item) (bool, error) {
	d, ok := asDescriptor(item)
	if !ok {
		return true, nil
	}

	if f.scopeSelector != nil {
		s := scope.Of(scopeValue)
		if s == nil || !f.scopeSelector.Matches(s.Info().LabelSet()) {
			return true, nil
		}
	}

	return !f.selector.Matches(d.LabelSet()), nil
}

// String returns the selector in canonical form.
func (f *LabelFilter) String() string {
	return f.selector.String()
}
