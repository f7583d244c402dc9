// Package audit provides quality checks for descriptor catalogs. Besides
// data checks it evaluates the filter chain in every scope kind and reports
// filter failures that would otherwise only show up, rate-limited, in logs.
// It supports built-in rules, custom policy files, and multiple output
// formats (table, JSON, SARIF).
package audit

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/descvis/internal/descriptor"
	"github.com/hupe1980/descvis/internal/visibility"
)

// Severity ranks the impact of a finding.
type Severity int

const (
	// SeverityInfo is purely informational.
	SeverityInfo Severity = iota
	// SeverityLow indicates a minor concern.
	SeverityLow
	// SeverityMedium indicates a moderate concern.
	SeverityMedium
	// SeverityHigh indicates a serious issue.
	SeverityHigh
	// SeverityCritical indicates a catalog that cannot be evaluated.
	SeverityCritical
)

// String returns the lowercase label for the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ParseSeverity parses a severity string (case-insensitive).
// Returns an error for unrecognised values.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical, nil
	case "high":
		return SeverityHigh, nil
	case "medium":
		return SeverityMedium, nil
	case "low":
		return SeverityLow, nil
	case "info":
		return SeverityInfo, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q, valid values: critical, high, medium, low, info", s)
	}
}

// Finding represents a single audit result.
type Finding struct {
	RuleID       string   `json:"ruleId"`
	Severity     Severity `json:"severity"`
	DescriptorID string   `json:"descriptorId"`
	Source       string   `json:"source,omitempty"`
	Line         int      `json:"line,omitempty"`
	Message      string   `json:"message"`
	Remediation  string   `json:"remediation"`
}

// newFinding fills the location fields of a finding from d.
func newFinding(rule string, sev Severity, d *descriptor.Descriptor, msg, remediation string) Finding {
	return Finding{
		RuleID:       rule,
		Severity:     sev,
		DescriptorID: d.ID(),
		Source:       d.Source,
		Line:         d.Line,
		Message:      msg,
		Remediation:  remediation,
	}
}

// Input is what the checks examine.
type Input struct {
	// Descriptors is the catalog, in order.
	Descriptors []*descriptor.Descriptor
	// Filters is the chain under test. Nil means no filters.
	Filters visibility.Source
}

// Check is the interface every audit rule must implement.
type Check interface {
	// ID returns the unique rule identifier (e.g. "CAT-001").
	ID() string
	// Run evaluates the input and returns any findings. An error aborts
	// the audit.
	Run(ctx context.Context, in *Input) ([]Finding, error)
}

// Result aggregates findings from all checks.
type Result struct {
	Findings []Finding      `json:"findings"`
	Summary  map[string]int `json:"summary"`
}

// Passed returns true when no finding meets or exceeds the threshold severity.
func (r *Result) Passed(threshold Severity) bool {
	for _, f := range r.Findings {
		if f.Severity >= threshold {
			return false
		}
	}

	return true
}

// Auditor orchestrates a set of checks against a catalog.
type Auditor struct {
	checks []Check
}

// New creates an Auditor with the given checks.
func New(checks ...Check) *Auditor {
	return &Auditor{checks: checks}
}

// Run executes every registered check and returns the result.
func (a *Auditor) Run(ctx context.Context, in *Input) (*Result, error) {
	var all []Finding

	for _, chk := range a.checks {
		findings, err := chk.Run(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", chk.ID(), err)
		}

		all = append(all, findings...)
	}

	// Sort: severity descending, then rule ID, then catalog position.
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Severity != all[j].Severity {
			return all[i].Severity > all[j].Severity
		}

		return all[i].RuleID < all[j].RuleID
	})

	summary := make(map[string]int)
	for _, f := range all {
		summary[f.Severity.String()]++
	}

	return &Result{Findings: all, Summary: summary}, nil
}

// DefaultChecks returns the built-in catalog checks.
func DefaultChecks() []Check {
	return []Check{
		&InvalidVersionCheck{},
		&InvalidLabelCheck{},
		&FilterFailureCheck{},
		&NeverVisibleCheck{},
		&MissingDisplayNameCheck{},
		&MissingCategoryCheck{},
	}
}
