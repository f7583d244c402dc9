// Package cli implements the cobra command tree for descvis.
package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/descvis/internal/config"
	"github.com/hupe1980/descvis/internal/logging"
)

// Process exit codes.
const (
	exitRuntime       = 1
	exitUsage         = 2
	exitUnrecoverable = 3
	exitDifferences   = 4
	exitAuditFailed   = 5
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute builds the command tree, runs it, and returns the exit code.
func Execute() int {
	cmd := NewRootCommand()

	if err := cmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Err != nil {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Error:", exitErr.Err)
			}

			return exitErr.Code
		}

		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)

		return exitRuntime
	}

	return 0
}

// NewRootCommand constructs the top-level cobra.Command with all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "descvis",
		Short: "Decide which descriptors are visible in a scope",
		Long: `descvis evaluates a chain of visibility filters against a catalog of
descriptors and reports which of them are visible in a given scope.

Filters are consulted in order and the first one to hide a descriptor
removes it. A filter that fails hides the descriptor and is reported,
at most once per suppression interval at warning level; further
failures of the same filter are logged at debug level.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return &ExitError{Code: exitUsage, Err: err}
			}

			logger := logging.SetupWithWriter(cfg, cmd.ErrOrStderr())

			ctx := cmd.Context()
			ctx = config.NewContext(ctx, cfg)
			ctx = logging.NewContext(ctx, logger)
			cmd.SetContext(ctx)

			logger.Debug("configuration loaded",
				slog.String("logLevel", cfg.LogLevel),
				slog.String("logFormat", cfg.LogFormat),
				slog.String("configFile", cfg.ConfigFile),
				slog.Int64("badFilterLogInterval", cfg.BadFilterLogInterval),
			)

			return nil
		},
	}

	// Global persistent flags.
	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .descvis.yaml)")
	pf.String("log-level", "info", "log level: trace, debug, info, warn, error")
	pf.String("log-format", "text", "log format: text, json")
	pf.Bool("no-color", false, "disable colored output")
	pf.BoolP("quiet", "q", false, "suppress non-essential output")
	pf.Int64(config.KeyBadFilterLogInterval, config.DefaultBadFilterLogInterval,
		"minutes between two warnings about the same failing filter")
	pf.Int("ledger-size", config.DefaultLedgerSize, "maximum number of failing filters remembered")

	// Flag parsing errors return exit code 2.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: exitUsage, Err: err}
	})

	// Register subcommands.
	cmd.AddCommand(
		newVersionCommand(),
		newFilterCommand(),
		newDiffCommand(),
		newWatchCommand(),
		newRulesCommand(),
		newAuditCommand(),
		newDocsCommand(),
		newCompletionCommand(),
	)

	return cmd
}
