package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"time"

	"github.com/hupe1980/descvis/internal/config"
	"github.com/hupe1980/descvis/internal/descriptor"
	"github.com/hupe1980/descvis/internal/filter"
	"github.com/hupe1980/descvis/internal/logging"
	"github.com/hupe1980/descvis/internal/output"
	"github.com/hupe1980/descvis/internal/scope"
	"github.com/hupe1980/descvis/internal/telemetry"
	"github.com/hupe1980/descvis/internal/visibility"
)

// target is a resolved evaluation scope. For a type-only evaluation value
// is nil and typ is set; both are nil for an evaluation against a nil scope.
type target struct {
	value    scope.Scope
	typ      reflect.Type
	typeOnly bool
}

// label returns a short name of t for reports and diff headers.
func (t target) label() string {
	if t.value != nil {
		return fmt.Sprint(t.value)
	}

	return scope.TypeName(t.typ)
}

// resolveTarget turns scope flags into a target. Without --scope or
// --scope-type the evaluation runs against a nil scope.
func resolveTarget(opts *scopeOptions) (target, error) {
	lbls, err := parseLabels(opts.labels)
	if err != nil {
		return target{}, &ExitError{Code: exitUsage, Err: err}
	}

	meta := scope.Meta{Labels: lbls, Version: opts.version}
	if err := meta.Validate(); err != nil {
		return target{}, &ExitError{Code: exitUsage, Err: fmt.Errorf("parsing --scope-version: %w", err)}
	}

	switch {
	case opts.ref != "":
		s, err := scope.ParseWith(opts.ref, meta)
		if err != nil {
			return target{}, &ExitError{Code: exitUsage, Err: fmt.Errorf("parsing --scope: %w", err)}
		}

		return target{value: s, typ: reflect.TypeOf(s)}, nil

	case opts.kind != "":
		k, err := scope.ParseKind(opts.kind)
		if err != nil {
			return target{}, &ExitError{Code: exitUsage, Err: fmt.Errorf("parsing --scope-type: %w", err)}
		}

		return target{typ: scope.TypeOf(k), typeOnly: true}, nil
	}

	return target{}, nil
}

// evaluator holds a loaded catalog and the chain built from the rules.
// It is safe for concurrent evaluations.
type evaluator struct {
	descriptors []*descriptor.Descriptor
	registry    *visibility.Registry
	chain       *visibility.Chain
	profile     string
	metrics     *telemetry.VisibilityMetrics
}

// newLedger creates a ledger from the suppression settings in cfg.
func newLedger(cfg *config.Config) *visibility.Ledger {
	return visibility.NewLedger(
		visibility.WithInterval(cfg.SuppressionInterval()),
		visibility.WithSize(cfg.LedgerSize),
	)
}

// newEvaluator assembles an evaluator with an empty registry tracked by
// ledger. A nil metrics records nothing.
func newEvaluator(ledger *visibility.Ledger, metrics *telemetry.VisibilityMetrics) *evaluator {
	registry := visibility.NewRegistry()

	opts := []visibility.Option{visibility.WithLedger(ledger)}
	if metrics != nil {
		opts = append(opts, visibility.WithObserver(metrics))
	}

	chain := visibility.NewChain(registry, opts...)
	chain.Ledger().Track(registry)

	return &evaluator{
		registry: registry,
		chain:    chain,
		metrics:  metrics,
	}
}

// load reads the catalogs and replaces the registered filters with those
// of the effective profile. Filters that disappear are unregistered, which
// drops their ledger entries; filters kept under the same name keep theirs.
// A failed load leaves the registry unchanged.
func (e *evaluator) load(ctx context.Context, opts *sourceOptions) error {
	logger := logging.FromContext(ctx)
	cfg := config.FromContext(ctx)

	if len(opts.catalogs) == 0 {
		return &ExitError{Code: exitUsage, Err: errors.New("at least one --catalog is required")}
	}

	ds, err := descriptor.LoadFiles(ctx, opts.catalogs, descriptor.WithStrict(opts.strict))
	if err != nil {
		return &ExitError{Code: exitRuntime, Err: fmt.Errorf("loading catalog: %w", err)}
	}

	filters, profile, err := buildChain(cfg, opts)
	if err != nil {
		return err
	}

	if err := e.registry.Replace(filters); err != nil {
		return &ExitError{Code: exitUsage, Err: fmt.Errorf("registering filters: %w", err)}
	}

	e.descriptors = ds
	e.profile = profile

	logger.Info("catalog loaded",
		slog.Int("descriptors", len(ds)),
		slog.String("profile", profile),
		slog.Any("filters", e.registry.Names()),
	)

	return nil
}

// buildChain resolves the rules file and profile, from flags first and
// configuration second, and builds the filters.
func buildChain(cfg *config.Config, opts *sourceOptions) ([]visibility.Filter, string, error) {
	rulesPath := opts.rules
	if rulesPath == "" {
		rulesPath = cfg.Rules
	}

	profile := opts.profile
	if profile == "" {
		profile = cfg.Profile
	}

	if profile == "" {
		profile = filter.DefaultProfile
	}

	var rules *filter.Rules

	if rulesPath != "" {
		r, err := filter.LoadRules(rulesPath)
		if err != nil {
			return nil, "", &ExitError{Code: exitUsage, Err: err}
		}

		rules = r
	}

	specs, err := rules.Effective(profile)
	if err != nil {
		return nil, "", &ExitError{Code: exitUsage, Err: err}
	}

	filters, err := filter.BuildFilters(specs)
	if err != nil {
		return nil, "", &ExitError{Code: exitUsage, Err: fmt.Errorf("building filters: %w", err)}
	}

	return filters, profile, nil
}

// evaluate runs the chain against t. An unrecoverable filter failure exits
// with code 3.
func (e *evaluator) evaluate(ctx context.Context, t target) (*output.Report, error) {
	start := time.Now()

	var (
		visible []*descriptor.Descriptor
		err     error
	)

	if t.typeOnly {
		visible, err = visibility.ApplyType(ctx, e.chain, t.typ, e.descriptors)
	} else {
		visible, err = visibility.Apply[*descriptor.Descriptor](ctx, e.chain, t.value, e.descriptors)
	}

	e.metrics.RecordEvaluation(ctx, scope.TypeName(t.typ), time.Since(start), err == nil)

	if err != nil {
		var fe *visibility.FilterError
		if errors.As(err, &fe) {
			return nil, &ExitError{Code: exitUnrecoverable, Err: err}
		}

		return nil, &ExitError{Code: exitRuntime, Err: fmt.Errorf("evaluating %s: %w", t.label(), err)}
	}

	rep := &output.Report{
		ScopeType: scope.TypeName(t.typ),
		Profile:   e.profile,
		Filters:   e.registry.Names(),
		Total:     len(e.descriptors),
		Visible:   output.Entries(visible),
	}

	if t.value != nil {
		rep.Scope = t.label()
	}

	return rep, nil
}

// metricsSink creates the metrics collector when --metrics is set and
// returns a function that prints the samples and releases it.
func metricsSink(enabled bool, w io.Writer) (*telemetry.VisibilityMetrics, func(context.Context), error) {
	if !enabled {
		return nil, func(context.Context) {}, nil
	}

	collector, err := telemetry.NewCollector()
	if err != nil {
		return nil, nil, &ExitError{Code: exitRuntime, Err: err}
	}

	flush := func(ctx context.Context) {
		defer func() { _ = collector.Shutdown(ctx) }()

		samples, err := collector.Samples(ctx)
		if err != nil {
			logging.FromContext(ctx).Warn("collecting metrics", slog.String("error", err.Error()))
			return
		}

		writeSamples(w, samples)
	}

	return collector.Metrics(), flush, nil
}

func writeSamples(w io.Writer, samples []telemetry.Sample) {
	_, _ = fmt.Fprintln(w, "metrics:")

	for _, s := range samples {
		attrs := ""
		if s.Attributes != "" {
			attrs = "{" + s.Attributes + "}"
		}

		_, _ = fmt.Fprintf(w, "  %s%s %g\n", s.Name, attrs, s.Value)
	}
}
