package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/descvis/internal/config"
	"github.com/hupe1980/descvis/internal/logging"
	"github.com/hupe1980/descvis/internal/output"
	"github.com/hupe1980/descvis/internal/visibility"
	"github.com/hupe1980/descvis/internal/watch"
)

type watchOptions struct {
	filterOptions

	debounce time.Duration
}

func newWatchCommand() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-evaluate visibility whenever catalogs or rules change",
		Long: `Watch monitors the catalog and rules files and re-runs the filter
evaluation when they are modified, until interrupted.

File changes are debounced to avoid rapid re-runs. Each run reports how
the visible set changed since the previous one. The failure ledger is
kept across runs; a filter removed by a reload loses its entry.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), cmd, opts)
		},
	}

	registerSourceFlags(cmd, &opts.sourceOptions)
	registerScopeFlags(cmd, &opts.scopeOptions)
	registerOutputFlags(cmd, &opts.outputOptions)

	cmd.Flags().DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "debounce interval for file changes")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, opts *watchOptions) error {
	if len(opts.catalogs) == 0 {
		return &ExitError{Code: exitUsage, Err: fmt.Errorf("at least one --catalog is required")}
	}

	formatter, err := output.DefaultRegistry().Formatter(opts.format)
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

	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)
	ctx = visibility.WithCaller(ctx, cmd.CommandPath())

	ev := newEvaluator(newLedger(cfg), metrics)

	paths := append([]string{}, opts.catalogs...)

	rulesPath := opts.rules
	if rulesPath == "" {
		rulesPath = cfg.Rules
	}

	if rulesPath != "" {
		paths = append(paths, rulesPath)
	}

	runFn := func(fnCtx context.Context) (*watch.RunResult, error) {
		if err := ev.load(fnCtx, &opts.sourceOptions); err != nil {
			return nil, err
		}

		rep, err := ev.evaluate(fnCtx, t)
		if err != nil {
			return nil, err
		}

		data, err := formatter(rep)
		if err != nil {
			return nil, fmt.Errorf("rendering report: %w", err)
		}

		w := output.NewWriter(opts.output, cmd.OutOrStdout(), output.WithLogger(logger))
		if err := w.Write(data); err != nil {
			return nil, fmt.Errorf("writing report: %w", err)
		}

		return &watch.RunResult{
			Total:      rep.Total,
			Visible:    rep.IDs(),
			OutputPath: opts.output,
		}, nil
	}

	watchOpts := watch.Options{
		Paths:    paths,
		Debounce: opts.debounce,
		Logger:   logger,
		Out:      cmd.ErrOrStderr(),
	}

	return watch.Run(ctx, watchOpts, runFn)
}
