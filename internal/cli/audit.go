package cli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/descvis/internal/audit"
	"github.com/hupe1980/descvis/internal/config"
	"github.com/hupe1980/descvis/internal/logging"
	"github.com/hupe1980/descvis/internal/output"
	"github.com/hupe1980/descvis/internal/visibility"
)

type auditOptions struct {
	sourceOptions

	format      string
	output      string
	failOn      string
	policyPaths []string
}

func newAuditCommand() *cobra.Command {
	opts := &auditOptions{}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check a catalog and its filter chain for problems",
		Long: `Audit examines the descriptors of one or more catalogs against built-in
rules (CAT-001 through CAT-006) and any custom policies supplied via
--policy.

Besides data checks, the auditor evaluates the filter chain of the selected
profile in every scope kind and reports each filter that fails on a
descriptor. At runtime such failures hide the descriptor and are only
logged, rate-limited.

Use --fail-on to set a severity threshold: the command exits with code 5
if any finding meets or exceeds the threshold.

Output formats: table (default), json, sarif.`,
		Example: `  descvis audit -c catalog.yaml
  descvis audit -c catalog.yaml -r rules.yaml -p strict --fail-on high
  descvis audit -c catalog.yaml --policy team.yaml --format sarif -o audit.sarif`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAudit(cmd.Context(), cmd, opts)
		},
	}

	registerSourceFlags(cmd, &opts.sourceOptions)

	f := cmd.Flags()
	f.StringVarP(&opts.format, "format", "f", "table", "output format: table, json, sarif")
	f.StringVarP(&opts.output, "output", "o", "", "write the report to a file instead of stdout")
	f.StringVar(&opts.failOn, "fail-on", "", "fail with exit code 5 if findings >= severity (critical, high, medium, low, info)")
	f.StringArrayVar(&opts.policyPaths, "policy", nil, "custom policy YAML files (can specify multiple)")

	return cmd
}

func runAudit(ctx context.Context, cmd *cobra.Command, opts *auditOptions) error {
	logger := logging.FromContext(ctx)

	// Fail fast on bad arguments.
	formatter, err := audit.NewFormatter(opts.format)
	if err != nil {
		return &ExitError{Code: exitUsage, Err: err}
	}

	threshold := audit.Severity(-1)

	if opts.failOn != "" {
		if threshold, err = audit.ParseSeverity(opts.failOn); err != nil {
			return &ExitError{Code: exitUsage, Err: err}
		}
	}

	ctx = visibility.WithCaller(ctx, cmd.CommandPath())

	ev := newEvaluator(newLedger(config.FromContext(ctx)), nil)
	if err := ev.load(ctx, &opts.sourceOptions); err != nil {
		return err
	}

	checks := audit.DefaultChecks()

	for _, path := range opts.policyPaths {
		pf, loadErr := audit.LoadPolicyFile(path)
		if loadErr != nil {
			return &ExitError{Code: exitUsage, Err: fmt.Errorf("loading policy %s: %w", path, loadErr)}
		}

		checks = append(checks, pf.ToChecks()...)

		logger.Info("audit: loaded custom policy",
			slog.String("path", path),
			slog.Int("rules", len(pf.Rules)),
		)
	}

	result, err := audit.New(checks...).Run(ctx, &audit.Input{
		Descriptors: ev.descriptors,
		Filters:     ev.registry,
	})
	if err != nil {
		return &ExitError{Code: exitRuntime, Err: fmt.Errorf("running audit: %w", err)}
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, result); err != nil {
		return &ExitError{Code: exitRuntime, Err: fmt.Errorf("formatting results: %w", err)}
	}

	w := output.NewWriter(opts.output, cmd.OutOrStdout(), output.WithLogger(logger))
	if err := w.Write(buf.Bytes()); err != nil {
		return &ExitError{Code: exitRuntime, Err: fmt.Errorf("writing report: %w", err)}
	}

	if opts.failOn != "" && !result.Passed(threshold) {
		return &ExitError{
			Code: exitAuditFailed,
			Err:  fmt.Errorf("audit failed: findings at or above %s severity", threshold.String()),
		}
	}

	return nil
}
