package cli

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/descvis/internal/config"
	"github.com/hupe1980/descvis/internal/docs"
	"github.com/hupe1980/descvis/internal/logging"
	"github.com/hupe1980/descvis/internal/output"
	"github.com/hupe1980/descvis/internal/visibility"
)

type docsOptions struct {
	sourceOptions

	format          string
	title           string
	includeExamples bool
	outputFile      string
}

func newDocsCommand() *cobra.Command {
	opts := &docsOptions{}

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Generate a reference of a descriptor catalog",
		Long: `Generate human-readable reference documentation from one or more
descriptor catalogs.

Outputs every descriptor with its category, version, applicable scope kinds
and labels, and a matrix of the scope kinds the filter chain of the selected
profile shows it in. The matrix reflects the type-level checks only.

Supports markdown, HTML, and ASCIIDoc output formats.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDocs(cmd, opts)
		},
	}

	registerSourceFlags(cmd, &opts.sourceOptions)

	cmd.Flags().StringVarP(&opts.format, "format", "f", "markdown", "output format (markdown, html, asciidoc)")
	cmd.Flags().StringVar(&opts.title, "title", "", "override document title")
	cmd.Flags().BoolVar(&opts.includeExamples, "include-examples", true, "include an example catalog entry in output")
	cmd.Flags().StringVarP(&opts.outputFile, "output", "o", "", "write to file instead of stdout")

	return cmd
}

func runDocs(cmd *cobra.Command, opts *docsOptions) error {
	ctx := visibility.WithCaller(cmd.Context(), cmd.CommandPath())

	formatter, err := docs.NewFormatter(opts.format)
	if err != nil {
		return &ExitError{Code: exitUsage, Err: err}
	}

	ev := newEvaluator(newLedger(config.FromContext(ctx)), nil)
	if err := ev.load(ctx, &opts.sourceOptions); err != nil {
		return err
	}

	model, err := docs.Build(ctx, ev.chain, ev.descriptors, ev.registry.Names())
	if err != nil {
		code := exitRuntime
		if errors.Is(err, visibility.ErrUnrecoverable) {
			code = exitUnrecoverable
		}

		return &ExitError{Code: code, Err: err}
	}

	model.Profile = ev.profile
	model.Title = opts.title
	model.IncludeExamples = opts.includeExamples

	var buf bytes.Buffer
	if err := formatter.Format(&buf, model); err != nil {
		return &ExitError{Code: exitRuntime, Err: fmt.Errorf("formatting docs: %w", err)}
	}

	w := output.NewWriter(opts.outputFile, cmd.OutOrStdout(), output.WithLogger(logging.FromContext(ctx)))
	if err := w.Write(buf.Bytes()); err != nil {
		return &ExitError{Code: exitRuntime, Err: fmt.Errorf("writing docs: %w", err)}
	}

	return nil
}
