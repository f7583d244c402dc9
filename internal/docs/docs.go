// Package docs generates a human-readable reference of a descriptor catalog:
// every descriptor with its metadata, and the scope kinds the filter chain
// shows it in. It supports Markdown, HTML, and AsciiDoc output formats, with
// an optional example catalog entry.
package docs

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/descvis/internal/descriptor"
	"github.com/hupe1980/descvis/internal/scope"
	"github.com/hupe1980/descvis/internal/visibility"
)

// DescriptorInfo describes a single catalog entry.
type DescriptorInfo struct {
	// ID is the descriptor identifier (e.g., "builder.shell").
	ID string
	// DisplayName is the human-facing label.
	DisplayName string
	// Category groups descriptors.
	Category string
	// Description is free text.
	Description string
	// Since is the introducing version, if any.
	Since string
	// ApplicableTo lists the declared scope kinds. Empty means every kind.
	ApplicableTo []scope.Kind
	// Labels are the descriptor labels.
	Labels map[string]string
	// VisibleIn lists the scope kinds the type-level checks of the chain
	// show the descriptor in.
	VisibleIn []scope.Kind
}

// LabelList returns the labels as sorted "key=value" strings.
func (d DescriptorInfo) LabelList() []string {
	out := make([]string, 0, len(d.Labels))
	for k, v := range d.Labels {
		out = append(out, k+"="+v)
	}

	sort.Strings(out)

	return out
}

// Visible reports whether the descriptor is visible in scopes of kind k.
func (d DescriptorInfo) Visible(k scope.Kind) bool {
	for _, v := range d.VisibleIn {
		if v == k {
			return true
		}
	}

	return false
}

// DocModel is the structured data model for documentation generation.
type DocModel struct {
	// Title overrides the document title.
	Title string
	// Profile is the filter profile the visibility was computed with.
	Profile string
	// Filters are the filter names of the chain, in order.
	Filters []string
	// Kinds are the scope kinds of the visibility matrix.
	Kinds []scope.Kind
	// Descriptors are the catalog entries, in catalog order.
	Descriptors []DescriptorInfo
	// IncludeExamples controls whether an example catalog entry is appended.
	IncludeExamples bool
}

// Build evaluates the chain for every scope kind and assembles the model.
// Only the type-level checks run, since instance-level checks depend on
// the attributes of a concrete scope. An unrecoverable filter failure is
// returned as error.
func Build(ctx context.Context, chain *visibility.Chain, ds []*descriptor.Descriptor, filters []string) (*DocModel, error) {
	model := &DocModel{
		Filters:     filters,
		Kinds:       scope.Kinds(),
		Descriptors: make([]DescriptorInfo, len(ds)),
	}

	for i, d := range ds {
		model.Descriptors[i] = DescriptorInfo{
			ID:           d.ID(),
			DisplayName:  d.DisplayName(),
			Category:     d.Category,
			Description:  d.Description,
			Since:        d.Since,
			ApplicableTo: d.ApplicableTo,
			Labels:       d.Labels,
		}
	}

	if ds == nil {
		ds = []*descriptor.Descriptor{}
	}

	for _, k := range model.Kinds {
		visible, err := visibility.ApplyType(ctx, chain, scope.TypeOf(k), ds)
		if err != nil {
			return nil, fmt.Errorf("evaluating %s scopes: %w", k, err)
		}

		shown := make(map[string]bool, len(visible))
		for _, d := range visible {
			shown[d.ID()] = true
		}

		for i := range model.Descriptors {
			if shown[model.Descriptors[i].ID] {
				model.Descriptors[i].VisibleIn = append(model.Descriptors[i].VisibleIn, k)
			}
		}
	}

	return model, nil
}

// title returns the document title.
func (m *DocModel) title() string {
	if m.Title != "" {
		return m.Title
	}

	return "Descriptor Catalog Reference"
}

// GenerateExampleYAML creates an example catalog entry from the first
// descriptor of the model, falling back to a placeholder entry.
func GenerateExampleYAML(model *DocModel) (string, error) {
	example := &descriptor.Descriptor{
		Key:          "example.descriptor",
		Name:         "Example descriptor",
		Category:     "example",
		Since:        "1.0.0",
		ApplicableTo: []scope.Kind{scope.KindProject},
		Labels:       map[string]string{"tier": "stable"},
	}

	if len(model.Descriptors) > 0 {
		d := model.Descriptors[0]
		example = &descriptor.Descriptor{
			Key:          d.ID,
			Name:         d.DisplayName,
			Category:     d.Category,
			Description:  d.Description,
			Since:        d.Since,
			ApplicableTo: d.ApplicableTo,
			Labels:       d.Labels,
		}
	}

	data, err := yaml.Marshal(example)
	if err != nil {
		return "", fmt.Errorf("marshaling example: %w", err)
	}

	return string(data), nil
}

func joinKinds(kinds []scope.Kind) string {
	if len(kinds) == 0 {
		return "all"
	}

	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}

	return strings.Join(names, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
