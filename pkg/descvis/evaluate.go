// Package descvis provides a public Go API for evaluating descriptor
// visibility.
//
// Basic usage:
//
//	result, err := descvis.Evaluate(ctx, "catalog.yaml",
//	    descvis.WithScope("project:web"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Visible)
//
// With rules and a profile:
//
//	result, err := descvis.Evaluate(ctx, "catalog.yaml",
//	    descvis.WithRules("rules.yaml"),
//	    descvis.WithProfile("strict"),
//	    descvis.WithScopeType("agent"),
//	)
package descvis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/descvis/internal/descriptor"
	"github.com/hupe1980/descvis/internal/filter"
	"github.com/hupe1980/descvis/internal/logging"
	"github.com/hupe1980/descvis/internal/scope"
	"github.com/hupe1980/descvis/internal/visibility"
)

// ErrUnrecoverable is matched by the error of an evaluation aborted by a
// filter.
var ErrUnrecoverable = visibility.ErrUnrecoverable

// Option configures an evaluation.
// Use the With* functions to create Options.
type Option func(*options)

type options struct {
	rules     string
	profile   string
	scopeRef  string
	scopeType string
	version   string
	labels    map[string]string
	logger    *slog.Logger
	ledger    *visibility.Ledger
	interval  time.Duration
	strict    bool
}

// WithRules sets the filter rules file.
func WithRules(path string) Option { return func(o *options) { o.rules = path } }

// WithProfile selects the filter profile (default: "default").
func WithProfile(name string) Option { return func(o *options) { o.profile = name } }

// WithScope evaluates in a scope instance, given as kind[:name].
func WithScope(ref string) Option { return func(o *options) { o.scopeRef = ref } }

// WithScopeType evaluates for a scope kind only; instance-level checks are
// skipped. It is ignored when WithScope is given.
func WithScopeType(kind string) Option { return func(o *options) { o.scopeType = kind } }

// WithScopeVersion sets the semantic version of the scope.
func WithScopeVersion(v string) Option { return func(o *options) { o.version = v } }

// WithScopeLabels sets the labels of the scope.
func WithScopeLabels(labels map[string]string) Option {
	return func(o *options) { o.labels = labels }
}

// WithLogger sets the logger for filter diagnostics (default: discard).
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithInterval sets the suppression interval between two warnings about the
// same failing filter (default: 60 minutes).
func WithInterval(d time.Duration) Option { return func(o *options) { o.interval = d } }

// Ledger rate-limits the warnings about failing filters.
type Ledger = visibility.Ledger

// NewLedger creates a ledger with the given suppression interval. A
// non-positive interval selects the default of 60 minutes.
func NewLedger(interval time.Duration) *Ledger {
	return visibility.NewLedger(visibility.WithInterval(interval))
}

// WithLedger shares a failure ledger between evaluations, so that a filter
// failing in each of them is reported once per interval. It takes
// precedence over WithInterval.
func WithLedger(l *Ledger) Option { return func(o *options) { o.ledger = l } }

// WithStrict rejects unknown fields in the catalog.
func WithStrict() Option { return func(o *options) { o.strict = true } }

// Descriptor is a visible descriptor.
type Descriptor struct {
	ID          string
	DisplayName string
	Category    string
	Since       string
}

// Result holds the outcome of an evaluation.
type Result struct {
	// Visible are the visible descriptors, in catalog order.
	Visible []Descriptor
	// Total is the number of descriptors in the catalog.
	Total int
	// Filters are the names of the consulted filters, in order.
	Filters []string
	// Profile is the applied profile.
	Profile string
}

// IDs returns the ids of the visible descriptors.
func (r *Result) IDs() []string {
	ids := make([]string, len(r.Visible))
	for i, d := range r.Visible {
		ids[i] = d.ID
	}

	return ids
}

// Evaluate loads the catalog file and returns the descriptors visible in the
// configured scope. Without WithScope or WithScopeType the filters are asked
// about a nil scope.
func Evaluate(ctx context.Context, catalog string, opts ...Option) (*Result, error) {
	if catalog == "" {
		return nil, errors.New("catalog path must not be empty")
	}

	o := &options{profile: filter.DefaultProfile}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = logging.Discard()
	}

	ctx = logging.NewContext(ctx, o.logger)
	ctx = visibility.WithCaller(ctx, "descvis.Evaluate")

	ds, err := descriptor.LoadFile(ctx, catalog, descriptor.WithStrict(o.strict))
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	var rules *filter.Rules

	if o.rules != "" {
		if rules, err = filter.LoadRules(o.rules); err != nil {
			return nil, err
		}
	}

	specs, err := rules.Effective(o.profile)
	if err != nil {
		return nil, err
	}

	filters, err := filter.BuildFilters(specs)
	if err != nil {
		return nil, fmt.Errorf("building filters: %w", err)
	}

	ledger := o.ledger
	if ledger == nil {
		ledger = NewLedger(o.interval)
	}

	chain := visibility.NewChain(visibility.Filters(filters), visibility.WithLedger(ledger))

	visible, err := apply(ctx, chain, o, ds)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Visible: make([]Descriptor, len(visible)),
		Total:   len(ds),
		Filters: make([]string, len(filters)),
		Profile: o.profile,
	}

	for i, d := range visible {
		res.Visible[i] = Descriptor{ID: d.ID(), DisplayName: d.DisplayName(), Category: d.Category, Since: d.Since}
	}

	for i, f := range filters {
		res.Filters[i] = f.Name()
	}

	return res, nil
}

func apply(ctx context.Context, chain *visibility.Chain, o *options, ds []*descriptor.Descriptor) ([]*descriptor.Descriptor, error) {
	meta := scope.Meta{Labels: o.labels, Version: o.version}
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	switch {
	case o.scopeRef != "":
		s, err := scope.ParseWith(o.scopeRef, meta)
		if err != nil {
			return nil, err
		}

		return visibility.Apply(ctx, chain, s, ds)

	case o.scopeType != "":
		k, err := scope.ParseKind(o.scopeType)
		if err != nil {
			return nil, err
		}

		return visibility.ApplyType(ctx, chain, scope.TypeOf(k), ds)
	}

	return visibility.Apply[*descriptor.Descriptor](ctx, chain, nil, ds)
}
