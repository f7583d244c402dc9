package audit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/descvis/internal/audit"
	"github.com/hupe1980/descvis/internal/descriptor"
	"github.com/hupe1980/descvis/internal/scope"
)

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		sev  audit.Severity
		want string
	}{
		{audit.SeverityInfo, "info"},
		{audit.SeverityLow, "low"},
		{audit.SeverityMedium, "medium"},
		{audit.SeverityHigh, "high"},
		{audit.SeverityCritical, "critical"},
		{audit.Severity(99), "unknown(99)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sev.String())
		})
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input   string
		want    audit.Severity
		wantErr bool
	}{
		{"critical", audit.SeverityCritical, false},
		{"CRITICAL", audit.SeverityCritical, false},
		{"  High  ", audit.SeverityHigh, false},
		{"medium", audit.SeverityMedium, false},
		{"low", audit.SeverityLow, false},
		{"info", audit.SeverityInfo, false},
		{"", audit.SeverityInfo, true},
		{"unknown", audit.SeverityInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := audit.ParseSeverity(tt.input)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResult_Passed(t *testing.T) {
	t.Run("no findings passes any threshold", func(t *testing.T) {
		r := &audit.Result{Summary: map[string]int{}}
		assert.True(t, r.Passed(audit.SeverityCritical))
		assert.True(t, r.Passed(audit.SeverityInfo))
	})

	t.Run("findings below threshold passes", func(t *testing.T) {
		r := &audit.Result{
			Findings: []audit.Finding{
				{Severity: audit.SeverityLow, RuleID: "TEST-001"},
				{Severity: audit.SeverityInfo, RuleID: "TEST-002"},
			},
			Summary: map[string]int{"low": 1, "info": 1},
		}
		assert.True(t, r.Passed(audit.SeverityMedium))
		assert.True(t, r.Passed(audit.SeverityHigh))
	})

	t.Run("findings at threshold fails", func(t *testing.T) {
		r := &audit.Result{
			Findings: []audit.Finding{
				{Severity: audit.SeverityHigh, RuleID: "TEST-001"},
			},
			Summary: map[string]int{"high": 1},
		}
		assert.False(t, r.Passed(audit.SeverityHigh))
	})

	t.Run("findings above threshold fails", func(t *testing.T) {
		r := &audit.Result{
			Findings: []audit.Finding{
				{Severity: audit.SeverityCritical, RuleID: "TEST-001"},
			},
			Summary: map[string]int{"critical": 1},
		}
		assert.False(t, r.Passed(audit.SeverityHigh))
	})
}

type fakeCheck struct {
	id       string
	findings []audit.Finding
	err      error
}

func (f *fakeCheck) ID() string { return f.id }

func (f *fakeCheck) Run(_ context.Context, _ *audit.Input) ([]audit.Finding, error) {
	return f.findings, f.err
}

func TestAuditor_Run(t *testing.T) {
	in := &audit.Input{}

	t.Run("no checks produces empty result", func(t *testing.T) {
		a := audit.New()
		r, err := a.Run(context.Background(), in)
		require.NoError(t, err)
		assert.Empty(t, r.Findings)
		assert.Empty(t, r.Summary)
	})

	t.Run("combines findings from multiple checks", func(t *testing.T) {
		c1 := &fakeCheck{id: "A", findings: []audit.Finding{
			{RuleID: "A", Severity: audit.SeverityHigh, Message: "a"},
		}}
		c2 := &fakeCheck{id: "B", findings: []audit.Finding{
			{RuleID: "B", Severity: audit.SeverityLow, Message: "b"},
		}}
		a := audit.New(c1, c2)
		r, err := a.Run(context.Background(), in)
		require.NoError(t, err)
		require.Len(t, r.Findings, 2)
		assert.Equal(t, "A", r.Findings[0].RuleID)
		assert.Equal(t, "B", r.Findings[1].RuleID)
	})

	t.Run("sorts by severity desc then ruleID asc", func(t *testing.T) {
		c := &fakeCheck{id: "X", findings: []audit.Finding{
			{RuleID: "C", Severity: audit.SeverityMedium},
			{RuleID: "A", Severity: audit.SeverityCritical},
			{RuleID: "B", Severity: audit.SeverityCritical},
			{RuleID: "D", Severity: audit.SeverityInfo},
		}}
		a := audit.New(c)
		r, err := a.Run(context.Background(), in)
		require.NoError(t, err)
		require.Len(t, r.Findings, 4)
		assert.Equal(t, "A", r.Findings[0].RuleID)
		assert.Equal(t, "B", r.Findings[1].RuleID)
		assert.Equal(t, "C", r.Findings[2].RuleID)
		assert.Equal(t, "D", r.Findings[3].RuleID)
	})

	t.Run("keeps catalog order within a rule", func(t *testing.T) {
		c := &fakeCheck{id: "X", findings: []audit.Finding{
			{RuleID: "A", Severity: audit.SeverityLow, DescriptorID: "z"},
			{RuleID: "A", Severity: audit.SeverityLow, DescriptorID: "a"},
		}}
		r, err := audit.New(c).Run(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, "z", r.Findings[0].DescriptorID)
		assert.Equal(t, "a", r.Findings[1].DescriptorID)
	})

	t.Run("summary counts correctly", func(t *testing.T) {
		c := &fakeCheck{id: "X", findings: []audit.Finding{
			{RuleID: "A", Severity: audit.SeverityHigh},
			{RuleID: "B", Severity: audit.SeverityHigh},
			{RuleID: "C", Severity: audit.SeverityLow},
		}}
		a := audit.New(c)
		r, err := a.Run(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, 2, r.Summary["high"])
		assert.Equal(t, 1, r.Summary["low"])
	})

	t.Run("check error aborts the audit", func(t *testing.T) {
		boom := errors.New("boom")
		a := audit.New(&fakeCheck{id: "OK"}, &fakeCheck{id: "BAD", err: boom})
		_, err := a.Run(context.Background(), in)
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "BAD: boom")
	})
}

func TestDefaultChecks(t *testing.T) {
	checks := audit.DefaultChecks()
	ids := make([]string, len(checks))
	for i, c := range checks {
		ids[i] = c.ID()
	}

	assert.Equal(t, []string{"CAT-001", "CAT-002", "CAT-003", "CAT-004", "CAT-005", "CAT-006"}, ids)
}

func TestDefaultChecks_Catalog(t *testing.T) {
	in := &audit.Input{
		Descriptors: []*descriptor.Descriptor{
			desc("good", func(d *descriptor.Descriptor) { d.Since = "1.0.0" }),
			desc("broken", func(d *descriptor.Descriptor) {
				d.Since = "soon"
				d.ApplicableTo = []scope.Kind{scope.KindProject}
			}),
			desc("bare", func(d *descriptor.Descriptor) {
				d.Name = ""
				d.Category = ""
			}),
		},
		Filters: defaultFilters(t),
	}

	r, err := audit.New(audit.DefaultChecks()...).Run(context.Background(), in)
	require.NoError(t, err)

	got := make([]string, len(r.Findings))
	for i, f := range r.Findings {
		got[i] = f.RuleID + " " + f.DescriptorID
	}

	assert.Equal(t, []string{
		"CAT-001 broken",
		"CAT-003 broken",
		"CAT-005 bare",
		"CAT-006 bare",
	}, got)
	assert.False(t, r.Passed(audit.SeverityHigh))
	assert.True(t, r.Passed(audit.SeverityCritical))
}
