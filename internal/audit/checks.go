package audit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/hupe1980/descvis/internal/descriptor"
	"github.com/hupe1980/descvis/internal/logging"
	"github.com/hupe1980/descvis/internal/scope"
	"github.com/hupe1980/descvis/internal/visibility"
)

// ---------------------------------------------------------------------------
// CAT-001: Since is not a semantic version
// ---------------------------------------------------------------------------

// InvalidVersionCheck flags descriptors whose since field is not a
// semantic version. Version filters fail on them.
type InvalidVersionCheck struct{}

// ID returns the rule identifier.
func (c *InvalidVersionCheck) ID() string { return "CAT-001" }

// Run evaluates the check.
func (c *InvalidVersionCheck) Run(_ context.Context, in *Input) ([]Finding, error) {
	var findings []Finding

	for _, d := range in.Descriptors {
		if d.Since == "" {
			continue
		}

		if _, err := semver.NewVersion(d.Since); err != nil {
			findings = append(findings, newFinding(c.ID(), SeverityHigh, d,
				fmt.Sprintf("since %q is not a semantic version", d.Since),
				"Use a version such as 1.2.0 or remove the since field.",
			))
		}
	}

	return findings, nil
}

// ---------------------------------------------------------------------------
// CAT-002: labels that selectors cannot match
// ---------------------------------------------------------------------------

// InvalidLabelCheck flags label keys and values that are not valid
// Kubernetes label syntax, so label selectors can never match them.
type InvalidLabelCheck struct{}

// ID returns the rule identifier.
func (c *InvalidLabelCheck) ID() string { return "CAT-002" }

// Run evaluates the check.
func (c *InvalidLabelCheck) Run(_ context.Context, in *Input) ([]Finding, error) {
	var findings []Finding

	for _, d := range in.Descriptors {
		keys := make([]string, 0, len(d.Labels))
		for k := range d.Labels {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for _, k := range keys {
			problems := validation.IsQualifiedName(k)
			problems = append(problems, validation.IsValidLabelValue(d.Labels[k])...)

			if len(problems) == 0 {
				continue
			}

			findings = append(findings, newFinding(c.ID(), SeverityMedium, d,
				fmt.Sprintf("label %s=%q is invalid: %s", k, d.Labels[k], strings.Join(problems, "; ")),
				"Use label keys and values that are valid Kubernetes labels.",
			))
		}
	}

	return findings, nil
}

// ---------------------------------------------------------------------------
// CAT-003: filters failing on a descriptor
// ---------------------------------------------------------------------------

// FilterFailureCheck evaluates the chain against an empty scope of every
// kind and reports each filter that fails on a descriptor. Unrecoverable
// failures are reported as critical.
type FilterFailureCheck struct{}

// ID returns the rule identifier.
func (c *FilterFailureCheck) ID() string { return "CAT-003" }

type failureKey struct {
	filter string
	item   string
}

// failureRecorder collects filter failures from a chain.
type failureRecorder struct {
	mu     sync.Mutex
	order  []failureKey
	errs   map[failureKey]error
	kinds  map[failureKey][]scope.Kind
	active scope.Kind
}

func (r *failureRecorder) Vetoed(context.Context, visibility.Filter, visibility.Item, string) {}

func (r *failureRecorder) Failed(_ context.Context, f visibility.Filter, item visibility.Item, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := failureKey{filter: f.Name(), item: item.ID()}
	if _, seen := r.errs[key]; !seen {
		r.order = append(r.order, key)
		r.errs[key] = err
	}

	r.kinds[key] = append(r.kinds[key], r.active)
}

// Run evaluates the check.
func (c *FilterFailureCheck) Run(ctx context.Context, in *Input) ([]Finding, error) {
	rec := &failureRecorder{
		errs:  make(map[failureKey]error),
		kinds: make(map[failureKey][]scope.Kind),
	}

	chain := visibility.NewChain(in.Filters,
		visibility.WithObserver(rec),
		visibility.WithLogger(logging.Discard()),
	)

	byID := index(in.Descriptors)

	var findings []Finding

	for _, k := range scope.Kinds() {
		s, err := scope.New(k, scope.Meta{})
		if err != nil {
			return nil, err
		}

		rec.active = k

		_, err = visibility.Apply(ctx, chain, s, in.Descriptors)

		var fe *visibility.FilterError

		switch {
		case errors.As(err, &fe):
			if d, ok := byID[fe.Item]; ok {
				findings = append(findings, newFinding(c.ID(), SeverityCritical, d,
					fmt.Sprintf("filter %s fails unrecoverably in %s scopes: %v", fe.Filter, k, fe.Err),
					"Fix the filter or the descriptor; evaluation aborts on this failure.",
				))
			}
		case err != nil:
			return nil, err
		}
	}

	for _, key := range rec.order {
		d, ok := byID[key.item]
		if !ok {
			continue
		}

		findings = append(findings, newFinding(c.ID(), SeverityHigh, d,
			fmt.Sprintf("filter %s fails in %s scopes and hides the descriptor: %v",
				key.filter, joinKinds(rec.kinds[key]), rec.errs[key]),
			"Fix the descriptor data the filter rejects.",
		))
	}

	return findings, nil
}

// ---------------------------------------------------------------------------
// CAT-004: hidden in every scope kind
// ---------------------------------------------------------------------------

// NeverVisibleCheck flags descriptors that the type-level checks of the
// chain hide in every scope kind.
type NeverVisibleCheck struct{}

// ID returns the rule identifier.
func (c *NeverVisibleCheck) ID() string { return "CAT-004" }

// Run evaluates the check.
func (c *NeverVisibleCheck) Run(ctx context.Context, in *Input) ([]Finding, error) {
	chain := visibility.NewChain(in.Filters, visibility.WithLogger(logging.Discard()))
	seen := make(map[string]bool, len(in.Descriptors))

	for _, k := range scope.Kinds() {
		visible, err := visibility.ApplyType(ctx, chain, scope.TypeOf(k), in.Descriptors)
		if err != nil {
			var fe *visibility.FilterError
			if errors.As(err, &fe) {
				// Reported by CAT-003.
				continue
			}

			return nil, err
		}

		for _, d := range visible {
			seen[d.ID()] = true
		}
	}

	var findings []Finding

	for _, d := range in.Descriptors {
		if seen[d.ID()] {
			continue
		}

		findings = append(findings, newFinding(c.ID(), SeverityMedium, d,
			"descriptor is hidden in every scope kind",
			"Check applicableTo and the category filters of the profile.",
		))
	}

	return findings, nil
}

// ---------------------------------------------------------------------------
// CAT-005: no display name
// ---------------------------------------------------------------------------

// MissingDisplayNameCheck flags descriptors without a display name; the
// id is shown instead.
type MissingDisplayNameCheck struct{}

// ID returns the rule identifier.
func (c *MissingDisplayNameCheck) ID() string { return "CAT-005" }

// Run evaluates the check.
func (c *MissingDisplayNameCheck) Run(_ context.Context, in *Input) ([]Finding, error) {
	var findings []Finding

	for _, d := range in.Descriptors {
		if strings.TrimSpace(d.Name) == "" {
			findings = append(findings, newFinding(c.ID(), SeverityLow, d,
				"descriptor has no display name",
				"Add a displayName.",
			))
		}
	}

	return findings, nil
}

// ---------------------------------------------------------------------------
// CAT-006: no category
// ---------------------------------------------------------------------------

// MissingCategoryCheck flags descriptors without a category, which
// category filters never hide.
type MissingCategoryCheck struct{}

// ID returns the rule identifier.
func (c *MissingCategoryCheck) ID() string { return "CAT-006" }

// Run evaluates the check.
func (c *MissingCategoryCheck) Run(_ context.Context, in *Input) ([]Finding, error) {
	var findings []Finding

	for _, d := range in.Descriptors {
		if strings.TrimSpace(d.Category) == "" {
			findings = append(findings, newFinding(c.ID(), SeverityInfo, d,
				"descriptor has no category",
				"Add a category so category filters can select it.",
			))
		}
	}

	return findings, nil
}

func index(ds []*descriptor.Descriptor) map[string]*descriptor.Descriptor {
	m := make(map[string]*descriptor.Descriptor, len(ds))
	for _, d := range ds {
		m[d.ID()] = d
	}

	return m
}

func joinKinds(kinds []scope.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}

	return strings.Join(names, ", ")
}
