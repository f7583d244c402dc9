package audit_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/descvis/internal/audit"
)

func sampleResult() *audit.Result {
	return &audit.Result{
		Findings: []audit.Finding{
			{RuleID: "CAT-003", Severity: audit.SeverityCritical,
				DescriptorID: "builder.shell", Source: "catalog.yaml", Line: 12,
				Message: "filter boom fails unrecoverably in project scopes: out of memory", Remediation: "Fix the filter"},
			{RuleID: "CAT-001", Severity: audit.SeverityHigh,
				DescriptorID: "builder.batch",
				Message: `since "soon" is not a semantic version`, Remediation: "Use a version"},
		},
		Summary: map[string]int{"critical": 1, "high": 1},
	}
}

func TestNewFormatter(t *testing.T) {
	for _, format := range []string{"", "table", "TABLE", "json", "JSON", "sarif", "SARIF"} {
		f, err := audit.NewFormatter(format)
		assert.NoError(t, err, format)
		assert.NotNil(t, f, format)
	}
	f, err := audit.NewFormatter("xml")
	assert.Error(t, err)
	assert.Nil(t, f)
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &audit.TableFormatter{}
	require.NoError(t, f.Format(&buf, sampleResult()))
	out := buf.String()
	assert.Contains(t, out, "SEVERITY")
	assert.Contains(t, out, "CRITICAL")
	assert.Contains(t, out, "CAT-003")
	assert.Contains(t, out, "builder.shell")
	assert.Contains(t, out, "catalog.yaml:12")
	assert.Contains(t, out, "Findings: 2 total")
	assert.Contains(t, out, "1 critical")
	assert.Contains(t, out, "1 high")
	assert.Contains(t, out, "builder.batch  -")
}

func TestTableFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	f := &audit.TableFormatter{}
	require.NoError(t, f.Format(&buf, &audit.Result{Summary: map[string]int{}}))
	assert.Contains(t, buf.String(), "Findings: 0 total")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &audit.JSONFormatter{}
	require.NoError(t, f.Format(&buf, sampleResult()))

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))

	findings := result["findings"].([]interface{})
	assert.Len(t, findings, 2)
	assert.Equal(t, float64(2), result["total"])
	first := findings[0].(map[string]interface{})
	assert.Equal(t, "critical", first["severity"])
	assert.Equal(t, "builder.shell", first["descriptorId"])
	assert.Equal(t, float64(12), first["line"])
	second := findings[1].(map[string]interface{})
	assert.NotContains(t, second, "source")
}

func TestJSONFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	f := &audit.JSONFormatter{}
	require.NoError(t, f.Format(&buf, &audit.Result{Summary: nil}))
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, float64(0), result["total"])
}

func TestSARIFFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &audit.SARIFFormatter{}
	require.NoError(t, f.Format(&buf, sampleResult()))

	var sarif map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &sarif))

	assert.Equal(t, "2.1.0", sarif["version"])
	assert.True(t, strings.Contains(sarif["$schema"].(string), "sarif"))

	runs := sarif["runs"].([]interface{})
	require.Len(t, runs, 1)
	run := runs[0].(map[string]interface{})
	tool := run["tool"].(map[string]interface{})
	driver := tool["driver"].(map[string]interface{})
	assert.Equal(t, "descvis-audit", driver["name"])

	rules := driver["rules"].([]interface{})
	assert.Len(t, rules, 2)

	results := run["results"].([]interface{})
	assert.Len(t, results, 2)
	first := results[0].(map[string]interface{})
	assert.Equal(t, "error", first["level"])
	assert.Equal(t, "CAT-003", first["ruleId"])

	loc := first["locations"].([]interface{})[0].(map[string]interface{})
	physical := loc["physicalLocation"].(map[string]interface{})
	assert.Equal(t, "catalog.yaml", physical["artifactLocation"].(map[string]interface{})["uri"])
	assert.Equal(t, float64(12), physical["region"].(map[string]interface{})["startLine"])
	logical := loc["logicalLocations"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "builder.shell", logical["name"])
	assert.Equal(t, "descriptor", logical["kind"])

	second := results[1].(map[string]interface{})
	secondLoc := second["locations"].([]interface{})[0].(map[string]interface{})
	assert.NotContains(t, secondLoc, "physicalLocation", "no source means no physical location")
}

func TestSARIFFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	f := &audit.SARIFFormatter{}
	require.NoError(t, f.Format(&buf, &audit.Result{Summary: map[string]int{}}))
	var sarif map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &sarif))
	assert.Equal(t, "2.1.0", sarif["version"])
}

func TestSARIFFormatter_SeverityMapping(t *testing.T) {
	result := &audit.Result{
		Findings: []audit.Finding{
			{RuleID: "C-001", Severity: audit.SeverityMedium, DescriptorID: "a", Message: "medium issue"},
			{RuleID: "C-002", Severity: audit.SeverityLow, DescriptorID: "b", Message: "low issue"},
			{RuleID: "C-003", Severity: audit.SeverityInfo, DescriptorID: "c", Message: "info issue"},
		},
		Summary: map[string]int{"medium": 1, "low": 1, "info": 1},
	}

	var buf bytes.Buffer
	f := &audit.SARIFFormatter{}
	require.NoError(t, f.Format(&buf, result))

	var sarif map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &sarif))

	runs := sarif["runs"].([]interface{})
	run := runs[0].(map[string]interface{})
	results := run["results"].([]interface{})
	require.Len(t, results, 3)

	assert.Equal(t, "warning", results[0].(map[string]interface{})["level"])
	assert.Equal(t, "note", results[1].(map[string]interface{})["level"])
	assert.Equal(t, "note", results[2].(map[string]interface{})["level"])
}

func TestTableFormatter_SummaryOrder(t *testing.T) {
	result := &audit.Result{
		Findings: []audit.Finding{
			{RuleID: "CAT-005", Severity: audit.SeverityLow, DescriptorID: "x", Message: "low"},
			{RuleID: "CAT-001", Severity: audit.SeverityHigh, DescriptorID: "x", Message: "high"},
			{RuleID: "CAT-004", Severity: audit.SeverityMedium, DescriptorID: "x", Message: "medium"},
		},
		Summary: map[string]int{"high": 1, "medium": 1, "low": 1},
	}

	var buf bytes.Buffer
	f := &audit.TableFormatter{}
	require.NoError(t, f.Format(&buf, result))

	out := buf.String()
	assert.Contains(t, out, "Findings: 3 total")
	assert.Contains(t, out, "HIGH")
	assert.Contains(t, out, "MEDIUM")
	assert.Contains(t, out, "LOW")
}
