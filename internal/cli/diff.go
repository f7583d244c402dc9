package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/descvis/internal/config"
	"github.com/hupe1980/descvis/internal/diff"
	"github.com/hupe1980/descvis/internal/visibility"
)

type diffOptions struct {
	sourceOptions

	from scopeOptions
	to   scopeOptions

	// Output format: "unified" (default), "json".
	format string

	// Exit with code 4 when the visible sets differ.
	exitCode bool
}

// diffReport is the JSON form of a diff.
type diffReport struct {
	From string `json:"from"`
	To   string `json:"to"`
	*diff.SetChange
}

func newDiffCommand() *cobra.Command {
	opts := &diffOptions{}

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare the descriptors visible in two scopes",
		Long: `Diff evaluates the same catalog and filter chain in two scopes and
prints a unified diff of the visible descriptor ids. Both scopes are
evaluated concurrently and share one failure ledger.

Exit codes:
  0  No differences, or differences without --exit-code
  1  Error
  2  Invalid arguments or rules
  3  A filter failed unrecoverably
  4  The visible sets differ (with --exit-code)`,
		Example: `  descvis diff -c catalog.yaml --from project:web --to agent:builder
  descvis diff -c catalog.yaml --from project --from-version 1.0.0 --to project --to-version 2.0.0 --exit-code`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiff(cmd.Context(), cmd, opts)
		},
	}

	registerSourceFlags(cmd, &opts.sourceOptions)

	f := cmd.Flags()
	f.StringVar(&opts.from.ref, "from", "", "baseline scope as kind[:name] (required)")
	f.StringVar(&opts.from.version, "from-version", "", "semantic version of the baseline scope")
	f.StringArrayVar(&opts.from.labels, "from-label", nil, "baseline scope label as key=value (repeatable)")
	f.StringVar(&opts.to.ref, "to", "", "compared scope as kind[:name] (required)")
	f.StringVar(&opts.to.version, "to-version", "", "semantic version of the compared scope")
	f.StringArrayVar(&opts.to.labels, "to-label", nil, "compared scope label as key=value (repeatable)")
	f.StringVar(&opts.format, "format", "unified", "output format: unified, json")
	f.BoolVar(&opts.exitCode, "exit-code", false, "exit with code 4 when the visible sets differ")

	return cmd
}

func runDiff(ctx context.Context, cmd *cobra.Command, opts *diffOptions) error {
	if opts.from.ref == "" || opts.to.ref == "" {
		return &ExitError{Code: exitUsage, Err: fmt.Errorf("--from and --to flags are required")}
	}

	if opts.format != "unified" && opts.format != "json" {
		return &ExitError{Code: exitUsage, Err: fmt.Errorf("invalid format %q: must be one of unified, json", opts.format)}
	}

	from, err := resolveTarget(&opts.from)
	if err != nil {
		return err
	}

	to, err := resolveTarget(&opts.to)
	if err != nil {
		return err
	}

	ctx = visibility.WithCaller(ctx, cmd.CommandPath())

	ev := newEvaluator(newLedger(config.FromContext(ctx)), nil)
	if err := ev.load(ctx, &opts.sourceOptions); err != nil {
		return err
	}

	var oldIDs, newIDs []string

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rep, err := ev.evaluate(gctx, from)
		if err != nil {
			return err
		}

		oldIDs = rep.IDs()

		return nil
	})

	g.Go(func() error {
		rep, err := ev.evaluate(gctx, to)
		if err != nil {
			return err
		}

		newIDs = rep.IDs()

		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	change := diff.Compare(oldIDs, newIDs)
	w := cmd.OutOrStdout()

	switch opts.format {
	case "json":
		data, err := json.MarshalIndent(diffReport{From: from.label(), To: to.label(), SetChange: change}, "", "  ")
		if err != nil {
			return &ExitError{Code: exitRuntime, Err: fmt.Errorf("formatting JSON: %w", err)}
		}

		_, _ = fmt.Fprintln(w, string(data))
	default:
		diffOpts := diff.DefaultOptions()
		diffOpts.OldLabel = from.label()
		diffOpts.NewLabel = to.label()

		result, err := diff.Unified(oldIDs, newIDs, diffOpts)
		if err != nil {
			return &ExitError{Code: exitRuntime, Err: fmt.Errorf("computing diff: %w", err)}
		}

		noColor := config.FromContext(ctx).NoColor
		diff.Write(w, result, !noColor)

		_, _ = fmt.Fprintf(w, "visible: %s\n", change)
	}

	if opts.exitCode && !change.Empty() {
		return &ExitError{
			Code: exitDifferences,
			Err:  fmt.Errorf("visible descriptors differ between %s and %s", from.label(), to.label()),
		}
	}

	return nil
}
