package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/descvis/internal/filter"
	"github.com/hupe1980/descvis/internal/output"
	"github.com/hupe1980/descvis/internal/scope"
)

// sourceOptions select the catalogs and the filter chain.
type sourceOptions struct {
	catalogs []string
	rules    string
	profile  string
	strict   bool
}

// scopeOptions describe the scope a catalog is evaluated in.
type scopeOptions struct {
	ref     string
	kind    string
	version string
	labels  []string
}

// outputOptions control how a report is rendered.
type outputOptions struct {
	format  string
	output  string
	metrics bool
}

// registerSourceFlags adds the catalog and rules flags to a cobra command.
// The rules and profile flags are bound to configuration by name.
func registerSourceFlags(cmd *cobra.Command, opts *sourceOptions) {
	f := cmd.Flags()
	f.StringArrayVarP(&opts.catalogs, "catalog", "c", nil, "descriptor catalog file (repeatable)")
	f.StringVarP(&opts.rules, "rules", "r", "", "filter rules file")
	f.StringVarP(&opts.profile, "profile", "p", "",
		fmt.Sprintf("filter profile (built-in: %s)", strings.Join(filter.BuiltinProfileNames(), ", ")))
	f.BoolVar(&opts.strict, "strict", false, "reject unknown fields in catalogs")

	_ = cmd.RegisterFlagCompletionFunc("profile", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return filter.BuiltinProfileNames(), cobra.ShellCompDirectiveNoFileComp
	})
}

// registerScopeFlags adds the --scope family of flags to a cobra command.
func registerScopeFlags(cmd *cobra.Command, opts *scopeOptions) {
	f := cmd.Flags()
	f.StringVarP(&opts.ref, "scope", "s", "", "scope to evaluate in, as kind[:name] (e.g. project:web)")
	f.StringVar(&opts.kind, "scope-type", "", "evaluate for a scope kind only, without an instance")
	f.StringVar(&opts.version, "scope-version", "", "semantic version of the scope")
	f.StringArrayVar(&opts.labels, "scope-label", nil, "scope label as key=value (repeatable)")

	cmd.MarkFlagsMutuallyExclusive("scope", "scope-type")

	_ = cmd.RegisterFlagCompletionFunc("scope-type", completeKinds)
}

// registerOutputFlags adds the report rendering flags to a cobra command.
func registerOutputFlags(cmd *cobra.Command, opts *outputOptions) {
	registry := output.DefaultRegistry()

	f := cmd.Flags()
	f.StringVarP(&opts.format, "format", "f", "table", "output format: "+registry.AvailableFormats())
	f.StringVarP(&opts.output, "output", "o", "", "write the report to a file instead of stdout")
	f.BoolVar(&opts.metrics, "metrics", false, "print filter metrics to stderr after the run")

	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return registry.Formats(), cobra.ShellCompDirectiveNoFileComp
	})
}

func completeKinds(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	kinds := scope.Kinds()
	names := make([]string, len(kinds))

	for i, k := range kinds {
		names[i] = string(k)
	}

	return names, cobra.ShellCompDirectiveNoFileComp
}

// parseLabels parses key=value pairs.
func parseLabels(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	out := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)

		if !ok || key == "" {
			return nil, fmt.Errorf("invalid label %q: expected key=value", pair)
		}

		out[key] = strings.TrimSpace(value)
	}

	return out, nil
}
