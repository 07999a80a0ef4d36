package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/actgraph/internal/graph"
	"github.com/roach88/actgraph/internal/store"
)

// RecordInfo describes one stored node record.
type RecordInfo struct {
	ID      int64   `json:"id"`
	Type    string  `json:"type"`
	Size    int     `json:"size"`
	Label   string  `json:"label,omitempty"`
	Bias    float64 `json:"bias,omitempty"`
	Outputs int     `json:"outputs,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List node records in the configured store",
		Long: `List the suspended node records held by the configured store.

Each record is decoded with the config's compression setting. Records that
fail to decode are listed with their error.

Example:
  actgraph --config actgraph.yaml inspect
  actgraph --config actgraph.cue inspect --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), rootOpts, cmd)
		},
	}

	return cmd
}

func runInspect(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

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

	records, err := inspectRecords(ctx, hook, opts.Config.Compression)
	if err != nil {
		_ = formatter.Fail(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list records", err)
	}

	return formatter.Emit(records, func(w io.Writer) {
		writeRecordsText(w, records)
	})
}

// inspectRecords reads and decodes every record of hook in id order.
func inspectRecords(ctx context.Context, hook graph.SuspensionHook, compress bool) ([]RecordInfo, error) {
	ids, err := store.ListIDs(ctx, hook)
	if err != nil {
		return nil, err
	}

	reg := graph.DefaultRegistry()
	scratch := graph.NewModel(graph.WithRegistry(reg))
	records := make([]RecordInfo, 0, len(ids))
	for _, id := range ids {
		data, ok, err := hook.Retrieve(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("retrieve %d: %w", id, err)
		}
		if !ok {
			continue
		}

		info := RecordInfo{ID: int64(id), Size: len(data)}
		typ, err := graph.PeekType(reg, data, compress)
		if err != nil {
			info.Error = err.Error()
			records = append(records, info)
			continue
		}
		info.Type = typ

		node, err := graph.Decode(reg, scratch, data, compress)
		if err != nil {
			info.Error = err.Error()
		} else if n, ok := node.(*graph.Neuron); ok {
			info.Label = n.Label
			info.Bias = n.Bias
			info.Outputs = len(n.Outputs())
		}
		records = append(records, info)
	}
	return records, nil
}

func writeRecordsText(w io.Writer, records []RecordInfo) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSIZE\tLABEL\tBIAS\tOUTPUTS")
	for _, r := range records {
		if r.Error != "" {
			fmt.Fprintf(tw, "%d\t%s\t%d\terror: %s\t\t\n", r.ID, r.Type, r.Size, r.Error)
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%g\t%d\n", r.ID, r.Type, r.Size, r.Label, r.Bias, r.Outputs)
	}
	tw.Flush()
}
