package audit_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/descvis/internal/audit"
	"github.com/hupe1980/descvis/internal/descriptor"
	"github.com/hupe1980/descvis/internal/filter"
	"github.com/hupe1980/descvis/internal/scope"
	"github.com/hupe1980/descvis/internal/visibility"
)

func desc(id string, mutate ...func(*descriptor.Descriptor)) *descriptor.Descriptor {
	d := &descriptor.Descriptor{Key: id, Name: id, Category: "builder", Source: "catalog.yaml", Line: 1}
	for _, m := range mutate {
		m(d)
	}

	return d
}

func defaultFilters(t *testing.T) visibility.Filters {
	t.Helper()

	version, err := filter.NewVersionFilter("", "")
	require.NoError(t, err)

	return visibility.Filters{filter.NewApplicabilityFilter(""), version}
}

func run(t *testing.T, chk audit.Check, in *audit.Input) []audit.Finding {
	t.Helper()

	findings, err := chk.Run(context.Background(), in)
	require.NoError(t, err)

	return findings
}

func descriptorIDs(findings []audit.Finding) []string {
	ids := make([]string, len(findings))
	for i, f := range findings {
		ids[i] = f.DescriptorID
	}

	return ids
}

func TestInvalidVersionCheck(t *testing.T) {
	in := &audit.Input{Descriptors: []*descriptor.Descriptor{
		desc("ok", func(d *descriptor.Descriptor) { d.Since = "1.2.0" }),
		desc("none"),
		desc("bad", func(d *descriptor.Descriptor) { d.Since = "yesterday" }),
	}}

	findings := run(t, &audit.InvalidVersionCheck{}, in)
	require.Len(t, findings, 1)
	assert.Equal(t, "CAT-001", findings[0].RuleID)
	assert.Equal(t, audit.SeverityHigh, findings[0].Severity)
	assert.Equal(t, "bad", findings[0].DescriptorID)
	assert.Equal(t, "catalog.yaml", findings[0].Source)
	assert.Contains(t, findings[0].Message, `"yesterday"`)
}

func TestInvalidLabelCheck(t *testing.T) {
	in := &audit.Input{Descriptors: []*descriptor.Descriptor{
		desc("ok", func(d *descriptor.Descriptor) {
			d.Labels = map[string]string{"tier": "stable", "example.com/team": "ci"}
		}),
		desc("bad", func(d *descriptor.Descriptor) {
			d.Labels = map[string]string{"tier": "not stable", "-key": "x"}
		}),
	}}

	findings := run(t, &audit.InvalidLabelCheck{}, in)
	require.Len(t, findings, 2)
	assert.Equal(t, []string{"bad", "bad"}, descriptorIDs(findings))
	assert.Contains(t, findings[0].Message, "label -key=")
	assert.Contains(t, findings[1].Message, "label tier=")
}

func TestFilterFailureCheck_RecoverableFailure(t *testing.T) {
	in := &audit.Input{
		Descriptors: []*descriptor.Descriptor{
			desc("fine", func(d *descriptor.Descriptor) { d.Since = "1.0.0" }),
			desc("broken", func(d *descriptor.Descriptor) {
				d.Since = "nope"
				d.ApplicableTo = []scope.Kind{scope.KindProject, scope.KindAgent}
			}),
		},
		Filters: defaultFilters(t),
	}

	findings := run(t, &audit.FilterFailureCheck{}, in)
	require.Len(t, findings, 1, "one finding per filter and descriptor")
	assert.Equal(t, "CAT-003", findings[0].RuleID)
	assert.Equal(t, audit.SeverityHigh, findings[0].Severity)
	assert.Equal(t, "broken", findings[0].DescriptorID)
	assert.Contains(t, findings[0].Message, "filter version fails in agent, project scopes")
}

func TestFilterFailureCheck_Unrecoverable(t *testing.T) {
	in := &audit.Input{
		Descriptors: []*descriptor.Descriptor{desc("a"), desc("b")},
		Filters: visibility.Filters{&visibility.Funcs{
			ID: "boom",
			ItemFunc: func(any, visibility.Item) (bool, error) {
				return false, visibility.Unrecoverable(errors.New("out of memory"))
			},
		}},
	}

	findings := run(t, &audit.FilterFailureCheck{}, in)
	require.Len(t, findings, len(scope.Kinds()))

	for _, f := range findings {
		assert.Equal(t, audit.SeverityCritical, f.Severity)
		assert.Equal(t, "a", f.DescriptorID)
		assert.Contains(t, f.Message, "filter boom fails unrecoverably")
	}
}

func TestFilterFailureCheck_NoFilters(t *testing.T) {
	in := &audit.Input{Descriptors: []*descriptor.Descriptor{desc("a")}}
	assert.Empty(t, run(t, &audit.FilterFailureCheck{}, in))
}

func TestFilterFailureCheck_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&audit.FilterFailureCheck{}).Run(ctx, &audit.Input{Descriptors: []*descriptor.Descriptor{desc("a")}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNeverVisibleCheck(t *testing.T) {
	in := &audit.Input{
		Descriptors: []*descriptor.Descriptor{
			desc("everywhere"),
			desc("project-only", func(d *descriptor.Descriptor) { d.ApplicableTo = []scope.Kind{scope.KindProject} }),
			desc("nowhere", func(d *descriptor.Descriptor) { d.ApplicableTo = []scope.Kind{"planet"} }),
			desc("publisher", func(d *descriptor.Descriptor) { d.Category = "publisher" }),
		},
		Filters: visibility.Filters{
			filter.NewApplicabilityFilter(""),
			filter.NewCategoryFilter("no-publishers", []string{"publisher"}, nil),
		},
	}

	findings := run(t, &audit.NeverVisibleCheck{}, in)
	assert.Equal(t, []string{"nowhere", "publisher"}, descriptorIDs(findings))

	for _, f := range findings {
		assert.Equal(t, "CAT-004", f.RuleID)
		assert.Equal(t, audit.SeverityMedium, f.Severity)
	}
}

func TestNeverVisibleCheck_SkipsUnrecoverableKinds(t *testing.T) {
	in := &audit.Input{
		Descriptors: []*descriptor.Descriptor{desc("a")},
		Filters: visibility.Filters{&visibility.Funcs{
			ID: "boom",
			TypeFunc: func(reflect.Type, visibility.Item) (bool, error) {
				return false, visibility.Unrecoverable(errors.New("broken"))
			},
		}},
	}

	findings := run(t, &audit.NeverVisibleCheck{}, in)
	assert.Equal(t, []string{"a"}, descriptorIDs(findings))
}

func TestMissingDisplayNameCheck(t *testing.T) {
	in := &audit.Input{Descriptors: []*descriptor.Descriptor{
		desc("named"),
		desc("anon", func(d *descriptor.Descriptor) { d.Name = " " }),
	}}

	findings := run(t, &audit.MissingDisplayNameCheck{}, in)
	require.Len(t, findings, 1)
	assert.Equal(t, "anon", findings[0].DescriptorID)
	assert.Equal(t, audit.SeverityLow, findings[0].Severity)
}

func TestMissingCategoryCheck(t *testing.T) {
	in := &audit.Input{Descriptors: []*descriptor.Descriptor{
		desc("grouped"),
		desc("loose", func(d *descriptor.Descriptor) { d.Category = "" }),
	}}

	findings := run(t, &audit.MissingCategoryCheck{}, in)
	require.Len(t, findings, 1)
	assert.Equal(t, "loose", findings[0].DescriptorID)
	assert.Equal(t, audit.SeverityInfo, findings[0].Severity)
}
