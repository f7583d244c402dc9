package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/descvis/internal/config"
	"github.com/hupe1980/descvis/internal/filter"
)

type rulesOptions struct {
	rules    string
	profile  string
	profiles bool
	check    bool
}

func newRulesCommand() *cobra.Command {
	opts := &rulesOptions{}

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Show the effective filter chain",
		Long: `Rules prints the filters of the selected profile in evaluation order:
the top-level filters of the rules file followed by those of the
profile and the profiles it extends.

Use --profiles to list the available profiles and --check to build every
profile and report those that are invalid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRules(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.rules, "rules", "r", "", "filter rules file")
	f.StringVarP(&opts.profile, "profile", "p", "", "filter profile")
	f.BoolVar(&opts.profiles, "profiles", false, "list the available profiles")
	f.BoolVar(&opts.check, "check", false, "build every profile and report errors")

	return cmd
}

func runRules(ctx context.Context, w io.Writer, opts *rulesOptions) error {
	cfg := config.FromContext(ctx)

	path := opts.rules
	if path == "" {
		path = cfg.Rules
	}

	var rules *filter.Rules

	if path != "" {
		r, err := filter.LoadRules(path)
		if err != nil {
			return &ExitError{Code: exitUsage, Err: err}
		}

		rules = r
	}

	switch {
	case opts.check:
		if err := rules.Validate(); err != nil {
			return &ExitError{Code: exitUsage, Err: fmt.Errorf("invalid rules: %w", err)}
		}

		_, _ = fmt.Fprintf(w, "%d profiles OK\n", len(rules.ProfileNames()))

		return nil

	case opts.profiles:
		return writeProfiles(w, rules)
	}

	profile := opts.profile
	if profile == "" {
		profile = cfg.Profile
	}

	if profile == "" {
		profile = filter.DefaultProfile
	}

	specs, err := rules.Effective(profile)
	if err != nil {
		return &ExitError{Code: exitUsage, Err: err}
	}

	// Building names the filters exactly as the chain will.
	filters, err := filter.BuildFilters(specs)
	if err != nil {
		return &ExitError{Code: exitUsage, Err: fmt.Errorf("building filters: %w", err)}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tNAME\tTYPE\tSETTINGS")

	for i, s := range specs {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, filters[i].Name(), strings.ToLower(s.Type), settings(s))
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "\nprofile %s: %d filters\n", profile, len(specs))

	return nil
}

func writeProfiles(w io.Writer, rules *filter.Rules) error {
	custom := map[string]filter.Profile{}
	if rules != nil {
		custom = rules.Profiles
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PROFILE\tORIGIN\tDESCRIPTION")

	for _, name := range rules.ProfileNames() {
		origin := "custom"
		if filter.IsBuiltinProfile(name) {
			origin = "built-in"
		}

		p, err := filter.ResolveProfile(name, custom)
		if err != nil {
			return &ExitError{Code: exitUsage, Err: err}
		}

		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", name, origin, dash(p.Description))
	}

	return tw.Flush()
}

// settings summarises the meaningful fields of s.
func settings(s filter.Spec) string {
	var parts []string

	add := func(key string, values ...string) {
		var nonEmpty []string

		for _, v := range values {
			if v != "" {
				nonEmpty = append(nonEmpty, v)
			}
		}

		if len(nonEmpty) > 0 {
			parts = append(parts, key+"="+strings.Join(nonEmpty, ","))
		}
	}

	add("categories", s.Categories...)
	add("kinds", s.Kinds...)
	add("include", s.Include...)
	add("exclude", s.Exclude...)
	add("selector", s.Selector)
	add("scopeSelector", s.ScopeSelector)
	add("constraint", s.Constraint)

	return dash(strings.Join(parts, " "))
}

func dash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
