package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/actgraph/internal/config"
)

// ValidationError is one reported config problem.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Config *config.Config    `json:"config,omitempty"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a config file",
		Long: `Validate a YAML or CUE config file against the config schema.

On success the effective configuration, defaults included, is printed.

Example:
  actgraph validate actgraph.yaml
  actgraph validate --format json actgraph.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	formatter.VerboseLog("Validating %s", path)

	cfg, err := config.Load(path)
	if err != nil {
		var cfgErr *config.Error
		if !errors.As(err, &cfgErr) {
			_ = formatter.Fail(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read config", err)
		}
		return outputValidationError(formatter, cfgErr)
	}

	shown := cfg
	if shown.Store.DSN != "" {
		shown.Store.DSN = "redacted"
	}
	return formatter.Emit(ValidationResult{Valid: true, Config: &shown}, func(w io.Writer) {
		fmt.Fprintln(w, "✓ Config valid")
		fmt.Fprintf(w, "  store: %s\n", describeStore(cfg.Store))
		fmt.Fprintf(w, "  compression: %t\n", cfg.Compression)
		fmt.Fprintf(w, "  max_steps: %d\n", cfg.MaxSteps)
		fmt.Fprintf(w, "  log_level: %s\n", cfg.LogLevel)
	})
}

func outputValidationError(formatter *OutputFormatter, cfgErr *config.Error) error {
	ve := ValidationError{Field: cfgErr.Field, Message: cfgErr.Message}
	if cfgErr.Pos.IsValid() {
		ve.Line = cfgErr.Pos.Line()
		ve.Column = cfgErr.Pos.Column()
	}

	if formatter.Format == "json" {
		if err := formatter.Fail(ErrCodeConfig, ve.Message, ValidationResult{Errors: []ValidationError{ve}}); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		fmt.Fprintln(w, "✗ Validation failed")
		fmt.Fprintln(w)
		if ve.Line > 0 {
			fmt.Fprintf(w, "line %d\n", ve.Line)
		}
		fmt.Fprintf(w, "  %s: %s\n", ve.Field, ve.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, "config validation failed")
}

func describeStore(s config.StoreConfig) string {
	switch {
	case s.DSN != "":
		return s.Kind + " (dsn set)"
	case s.Path != "" && s.Driver != "":
		return fmt.Sprintf("%s %s (driver %s)", s.Kind, s.Path, s.Driver)
	case s.Path != "":
		return s.Kind + " " + s.Path
	default:
		return s.Kind
	}
}
