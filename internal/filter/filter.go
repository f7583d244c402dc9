package filter

import (
	"github.com/hupe1980/descvis/internal/descriptor"
	"github.com/hupe1980/descvis/internal/visibility"
)

// Filter types accepted in rules files.
const (
	TypeApplicability = "applicability"
	TypeCategory      = "category"
	TypeID            = "id"
	TypeLabel         = "label"
	TypeVersion       = "version"
)

// Types returns the supported filter types in documentation order.
func Types() []string {
	return []string{TypeApplicability, TypeCategory, TypeID, TypeLabel, TypeVersion}
}

type named struct {
	name string
}

// Name returns the registry name of the filter.
func (n named) Name() string { return n.name }

func nameOr(name, fallback string) named {
	if name == "" {
		name = fallback
	}

	return named{name: name}
}

// asDescriptor returns the descriptor behind item, if any.
func asDescriptor(item visibility.Item) (*descriptor.Descriptor, bool) {
	d, ok := item.(*descriptor.Descriptor)

	return d, ok && d != nil
}
