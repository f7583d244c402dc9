package descriptor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/descvis/internal/descriptor"
	"github.com/hupe1980/descvis/internal/scope"
)

func TestDescriptor_DisplayName(t *testing.T) {
	d := &descriptor.Descriptor{Key: "builder.shell"}
	assert.Equal(t, "builder.shell", d.DisplayName())

	d.Name = "Execute shell"
	assert.Equal(t, "Execute shell", d.DisplayName())
	assert.Equal(t, "builder.shell", d.ID())
}

func TestDescriptor_AppliesTo(t *testing.T) {
	tests := []struct {
		name       string
		applicable []scope.Kind
		kind       scope.Kind
		want       bool
	}{
		{"empty means all", nil, scope.KindAgent, true},
		{"listed", []scope.Kind{scope.KindProject}, scope.KindProject, true},
		{"not listed", []scope.Kind{scope.KindProject}, scope.KindFolder, false},
		{"case-insensitive", []scope.Kind{"Project"}, scope.KindProject, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &descriptor.Descriptor{Key: "x", ApplicableTo: tt.applicable}
			assert.Equal(t, tt.want, d.AppliesTo(tt.kind))
		})
	}
}

func TestDescriptor_QualifiedName(t *testing.T) {
	assert.Equal(t, "x", (&descriptor.Descriptor{Key: "x"}).QualifiedName())
	assert.Equal(t, "builder/x", (&descriptor.Descriptor{Key: "x", Category: "builder"}).QualifiedName())
}

func TestDescriptor_LabelSet(t *testing.T) {
	d := &descriptor.Descriptor{Key: "x", Labels: map[string]string{"tier": "beta"}}
	assert.Equal(t, "beta", d.LabelSet().Get("tier"))
	assert.True(t, d.LabelSet().Has("tier"))
}

func TestIDs(t *testing.T) {
	ds := []*descriptor.Descriptor{{Key: "a"}, {Key: "b"}}
	assert.Equal(t, []string{"a", "b"}, descriptor.IDs(ds))
	assert.Empty(t, descriptor.IDs(nil))
}
