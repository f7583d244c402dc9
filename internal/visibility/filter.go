package visibility

import (
	"reflect"
)

// Item is a candidate whose visibility is being decided.
type Item interface {
	// ID returns the stable identity of the item.
	ID() string
	// DisplayName returns a human-readable name, used for logging only.
	DisplayName() string
}

// Filter decides whether an item should be visible.
//
// Returning false vetoes the item. Returning an error also vetoes it and is
// logged as a filter failure; see the package documentation for how errors
// matching ErrUnrecoverable are handled.
type Filter interface {
	// Name identifies the filter in the registry, the ledger and the logs.
	Name() string

	// FilterType decides visibility from the scope type alone. It is only
	// called when the scope type is known; scopeType is never nil.
	FilterType(scopeType reflect.Type, item Item) (bool, error)

	// Filter decides visibility for a concrete scope. scope may be nil.
	Filter(scope any, item Item) (bool, error)
}

// Base can be embedded by filters that only implement one of the two
// decisions. Both of its methods approve every item.
type Base struct{}

// FilterType approves every item.
func (Base) FilterType(reflect.Type, Item) (bool, error) { return true, nil }

// Filter approves every item.
func (Base) Filter(any, Item) (bool, error) { return true, nil }

// Funcs adapts plain functions to the Filter interface. A nil function
// approves every item.
type Funcs struct {
	ID       string
	TypeFunc func(scopeType reflect.Type, item Item) (bool, error)
	ItemFunc func(scope any, item Item) (bool, error)
}

// compile-time interface conformance check.
var _ Filter = (*Funcs)(nil)

// Name returns f.ID.
func (f *Funcs) Name() string { return f.ID }

// FilterType calls f.TypeFunc.
func (f *Funcs) FilterType(scopeType reflect.Type, item Item) (bool, error) {
	if f.TypeFunc == nil {
		return true, nil
	}

	return f.TypeFunc(scopeType, item)
}

// Filter calls f.ItemFunc.
func (f *Funcs) Filter(scope any, item Item) (bool, error) {
	if f.ItemFunc == nil {
		return true, nil
	}

	return f.ItemFunc(scope, item)
}
