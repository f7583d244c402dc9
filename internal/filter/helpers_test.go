package filter

import (
	"reflect"

	"github.com/hupe1980/descvis/internal/descriptor"
	"github.com/hupe1980/descvis/internal/scope"
)

type otherItem struct{}

func (otherItem) ID() string          { return "other" }
func (otherItem) DisplayName() string { return "other" }

func desc(id string, mutate ...func(*descriptor.Descriptor)) *descriptor.Descriptor {
	d := &descriptor.Descriptor{Key: id}
	for _, m := range mutate {
		m(d)
	}

	return d
}

func projectType() reflect.Type { return scope.TypeOf(scope.KindProject) }

func folderType() reflect.Type { return scope.TypeOf(scope.KindFolder) }
