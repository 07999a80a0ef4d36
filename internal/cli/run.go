package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/actgraph/internal/harness"
	"github.com/roach88/actgraph/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	// UseStore runs the nodes section against the configured store
	// instead of a fresh in-memory hook.
	UseStore bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario and print its trace",
		Long: `Run a field and scheduler scenario and print the execution trace.

The config's max_steps caps the drain when the scenario sets none, and its
compression flag applies to node records. With --store the nodes section
suspends into the configured store.

Example:
  actgraph run ./scenarios/linear.yaml
  actgraph --config actgraph.yaml run --store ./scenarios/suspension.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.UseStore, "store", false, "suspend nodes into the configured store")

	return cmd
}

func runScenarioFile(ctx context.Context, opts *RunOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Fail(ErrCodeScenario, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	runOpts := []harness.Option{
		harness.WithMaxSteps(opts.Config.MaxSteps),
		harness.WithKeepDocuments(opts.Config.Suspension.KeepDocuments),
	}
	if opts.Config.Compression {
		runOpts = append(runOpts, harness.WithCompression(true))
	}
	if opts.UseStore {
		hook, err := store.NewHook(ctx, opts.Config.StoreOptions())
		if err != nil {
			_ = formatter.Fail(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open store", err)
		}
		defer func() {
			if closeErr := store.CloseIfSupported(hook); closeErr != nil {
				slog.Error("error closing store", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, harness.WithHook(hook))
	}

	slog.Debug("running scenario", "name", scenario.Name, "path", path)
	result, err := harness.Run(ctx, scenario, runOpts...)
	if err != nil {
		_ = formatter.Fail(ErrCodeFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "scenario execution failed", err)
	}

	if err := formatter.Emit(result, func(w io.Writer) {
		writeResultText(w, scenario.Name, result)
	}); err != nil {
		return err
	}
	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed with %d error(s)", scenario.Name, len(result.Errors)))
	}
	return nil
}

func writeResultText(w io.Writer, name string, result *harness.Result) {
	io.WriteString(w, harness.FormatTrace(result))
	if result.Pass {
		fmt.Fprintf(w, "PASS %s\n", name)
		return
	}
	fmt.Fprintf(w, "FAIL %s\n", name)
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
