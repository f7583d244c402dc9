package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/descvis/internal/config"
	"github.com/hupe1980/descvis/internal/logging"
	"github.com/hupe1980/descvis/internal/output"
	"github.com/hupe1980/descvis/internal/visibility"
)

type filterOptions struct {
	sourceOptions
	scopeOptions
	outputOptions
}

func newFilterCommand() *cobra.Command {
	opts := &filterOptions{}

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Print the descriptors visible in a scope",
		Long: `Filter evaluates the filter chain of the selected profile against the
descriptors of one or more catalogs and prints those that are visible.

With --scope the chain is evaluated against a scope instance, consulting
both the type-level and the instance-level checks of every filter. With
--scope-type only the type-level checks run. Without either, filters are
asked about a nil scope.

Exit codes:
  0  Success
  1  Error
  2  Invalid arguments or rules
  3  A filter failed unrecoverably`,
		Example: `  descvis filter -c catalog.yaml --scope project:web --scope-version 2.1.0
  descvis filter -c catalog.yaml --scope-type agent -f json
  descvis filter -c catalog.yaml -r rules.yaml -p strict --scope folder:ops --metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFilter(cmd.Context(), cmd, opts)
		},
	}

	registerSourceFlags(cmd, &opts.sourceOptions)
	registerScopeFlags(cmd, &opts.scopeOptions)
	registerOutputFlags(cmd, &opts.outputOptions)

	return cmd
}

func runFilter(ctx context.Context, cmd *cobra.Command, opts *filterOptions) error {
	formats := output.DefaultRegistry()

	formatter, err := formats.Formatter(opts.format)
	if err != nil {
		return &ExitError{Code: exitUsage, Err: err}
	}

	t, err := resolveTarget(&opts.scopeOptions)
	if err != nil {
		return err
	}

	metrics, flush, err := metricsSink(opts.metrics, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer flush(ctx)

	ctx = visibility.WithCaller(ctx, cmd.CommandPath())

	ev := newEvaluator(newLedger(config.FromContext(ctx)), metrics)
	if err := ev.load(ctx, &opts.sourceOptions); err != nil {
		return err
	}

	rep, err := ev.evaluate(ctx, t)
	if err != nil {
		return err
	}

	data, err := formatter(rep)
	if err != nil {
		return &ExitError{Code: exitRuntime, Err: fmt.Errorf("rendering report: %w", err)}
	}

	w := output.NewWriter(opts.output, cmd.OutOrStdout(), output.WithLogger(logging.FromContext(ctx)))
	if err := w.Write(data); err != nil {
		return &ExitError{Code: exitRuntime, Err: fmt.Errorf("writing report: %w", err)}
	}

	return nil
}
