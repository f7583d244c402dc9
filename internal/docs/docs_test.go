package docs_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/hupe1980/descvis/internal/descriptor"
	"github.com/hupe1980/descvis/internal/docs"
	"github.com/hupe1980/descvis/internal/filter"
	"github.com/hupe1980/descvis/internal/scope"
	"github.com/hupe1980/descvis/internal/visibility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCatalog() []*descriptor.Descriptor {
	return []*descriptor.Descriptor{
		{
			Key: "builder.shell", Name: "Execute shell", Category: "builder", Since: "1.0.0",
			ApplicableTo: []scope.Kind{scope.KindProject, scope.KindAgent},
			Labels:       map[string]string{"tier": "stable", "os": "linux"},
		},
		{Key: "publisher.mail", Category: "publisher"},
		{Key: "trigger.cron", Category: "trigger", ApplicableTo: []scope.Kind{scope.KindFolder}},
	}
}

func sampleChain() *visibility.Chain {
	return visibility.NewChain(visibility.Filters{
		filter.NewApplicabilityFilter(""),
		filter.NewCategoryFilter("", []string{"publisher"}, []scope.Kind{scope.KindGlobal}),
	})
}

func TestBuild(t *testing.T) {
	model, err := docs.Build(context.Background(), sampleChain(), sampleCatalog(), []string{"applicability", "category"})
	require.NoError(t, err)

	assert.Equal(t, []scope.Kind{scope.KindAgent, scope.KindFolder, scope.KindGlobal, scope.KindProject}, model.Kinds)
	assert.Equal(t, []string{"applicability", "category"}, model.Filters)
	require.Len(t, model.Descriptors, 3)

	shell := model.Descriptors[0]
	assert.Equal(t, "Execute shell", shell.DisplayName)
	assert.Equal(t, []scope.Kind{scope.KindAgent, scope.KindProject}, shell.VisibleIn)
	assert.Equal(t, []string{"os=linux", "tier=stable"}, shell.LabelList())
	assert.True(t, shell.Visible(scope.KindAgent))
	assert.False(t, shell.Visible(scope.KindFolder))

	mail := model.Descriptors[1]
	assert.Equal(t, "publisher.mail", mail.DisplayName, "falls back to the id")
	assert.Equal(t, []scope.Kind{scope.KindAgent, scope.KindFolder, scope.KindProject}, mail.VisibleIn)

	assert.Equal(t, []scope.Kind{scope.KindFolder}, model.Descriptors[2].VisibleIn)
}

func TestBuild_EmptyCatalog(t *testing.T) {
	model, err := docs.Build(context.Background(), sampleChain(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, model.Descriptors)
}

func TestBuild_Unrecoverable(t *testing.T) {
	chain := visibility.NewChain(visibility.Filters{&visibility.Funcs{
		ID: "boom",
		TypeFunc: func(reflect.Type, visibility.Item) (bool, error) {
			return false, visibility.Unrecoverable(errors.New("broken"))
		},
	}})

	_, err := docs.Build(context.Background(), chain, sampleCatalog(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, visibility.ErrUnrecoverable)
	assert.Contains(t, err.Error(), "evaluating agent scopes")
}

func TestGenerateExampleYAML(t *testing.T) {
	model, err := docs.Build(context.Background(), sampleChain(), sampleCatalog(), nil)
	require.NoError(t, err)

	yaml, err := docs.GenerateExampleYAML(model)
	require.NoError(t, err)
	assert.Contains(t, yaml, "id: builder.shell")
	assert.Contains(t, yaml, "displayName: Execute shell")
	assert.Contains(t, yaml, "since: 1.0.0")
	assert.Contains(t, yaml, "- project")
	assert.NotContains(t, yaml, "source")
}

func TestGenerateExampleYAML_Placeholder(t *testing.T) {
	yaml, err := docs.GenerateExampleYAML(&docs.DocModel{})
	require.NoError(t, err)
	assert.Contains(t, yaml, "id: example.descriptor")
	assert.Contains(t, yaml, "tier: stable")
}
