package audit

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	sigsyaml "sigs.k8s.io/yaml"

	"github.com/hupe1980/descvis/internal/descriptor"
)

// PolicyFile represents a custom policy YAML file.
type PolicyFile struct {
	Rules []PolicyRule `json:"rules" yaml:"rules"`
}

// PolicyRule defines a single custom audit rule.
type PolicyRule struct {
	// ID is the unique rule identifier (e.g., "CUSTOM-001").
	ID string `json:"id" yaml:"id"`

	// Severity is the finding severity (critical, high, medium, low, info).
	SeverityStr string `json:"severity" yaml:"severity"`

	// Match restricts the rule to specific descriptors.
	Match PolicyMatch `json:"match" yaml:"match"`

	// Condition selects the descriptors the rule reports.
	// Supported: "no display name", "no description", "no category",
	// "no since", "no labels", "applies to all kinds".
	Condition string `json:"condition" yaml:"condition"`

	// Message is the finding message.
	Message string `json:"message" yaml:"message"`

	// Remediation suggests how to fix the issue.
	Remediation string `json:"remediation" yaml:"remediation"`
}

// PolicyMatch restricts which descriptors a rule applies to.
type PolicyMatch struct {
	Category string `json:"category" yaml:"category"`
}

// LoadPolicyFile loads a custom policy file from disk.
func LoadPolicyFile(path string) (*PolicyFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user-provided CLI arg, not attacker-controlled
	if err != nil {
		return nil, fmt.Errorf("reading policy file %s: %w", path, err)
	}

	var pf PolicyFile
	if err := sigsyaml.UnmarshalStrict(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing policy file %s: %w", path, err)
	}

	seen := make(map[string]bool, len(pf.Rules))

	for _, r := range pf.Rules {
		if r.ID == "" {
			return nil, fmt.Errorf("policy file %s: rule missing required 'id' field", path)
		}

		if seen[r.ID] {
			return nil, fmt.Errorf("policy file %s: duplicate rule id %q", path, r.ID)
		}

		seen[r.ID] = true

		if r.Message == "" {
			return nil, fmt.Errorf("policy file %s: rule %s missing required 'message' field", path, r.ID)
		}

		if r.SeverityStr != "" {
			if _, err := ParseSeverity(r.SeverityStr); err != nil {
				return nil, fmt.Errorf("policy file %s: rule %s: %w", path, r.ID, err)
			}
		}

		if r.Condition != "" && !isKnownCondition(r.Condition) {
			return nil, fmt.Errorf("policy file %s: rule %s: unknown condition %q; supported: %s",
				path, r.ID, r.Condition, strings.Join(knownConditions(), ", "))
		}
	}

	return &pf, nil
}

// ToChecks converts policy rules into audit checks.
func (pf *PolicyFile) ToChecks() []Check {
	var checks []Check

	for _, rule := range pf.Rules {
		checks = append(checks, &customRuleCheck{rule: rule})
	}

	return checks
}

// customRuleCheck implements Check for a custom policy rule.
type customRuleCheck struct {
	rule PolicyRule
}

func (c *customRuleCheck) ID() string { return c.rule.ID }

func (c *customRuleCheck) Run(_ context.Context, in *Input) ([]Finding, error) {
	var findings []Finding

	sev, _ := ParseSeverity(c.rule.SeverityStr)

	for _, d := range in.Descriptors {
		if c.rule.Match.Category != "" && !strings.EqualFold(d.Category, c.rule.Match.Category) {
			continue
		}

		if c.matchesCondition(d) {
			findings = append(findings, newFinding(c.rule.ID, sev, d, c.rule.Message, c.rule.Remediation))
		}
	}

	return findings, nil
}

// matchesCondition evaluates the rule condition against a descriptor. A rule
// without condition matches every descriptor.
func (c *customRuleCheck) matchesCondition(d *descriptor.Descriptor) bool {
	switch strings.ToLower(strings.TrimSpace(c.rule.Condition)) {
	case "":
		return true
	case "no display name":
		return strings.TrimSpace(d.Name) == ""
	case "no description":
		return strings.TrimSpace(d.Description) == ""
	case "no category":
		return strings.TrimSpace(d.Category) == ""
	case "no since":
		return d.Since == ""
	case "no labels":
		return len(d.Labels) == 0
	case "applies to all kinds":
		return len(d.ApplicableTo) == 0
	default:
		return false
	}
}

// knownConditions returns the list of supported condition strings.
func knownConditions() []string {
	return []string{
		"no display name",
		"no description",
		"no category",
		"no since",
		"no labels",
		"applies to all kinds",
	}
}

// isKnownCondition reports whether the given condition string is supported.
func isKnownCondition(cond string) bool {
	return slices.Contains(knownConditions(), strings.ToLower(strings.TrimSpace(cond)))
}
