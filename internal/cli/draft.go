package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/chartkeep/internal/chart"
)

// DraftSaveOptions holds flags for draft save.
type DraftSaveOptions struct {
	*RootOptions
	Data string
}

// NewDraftCommand creates the draft command group.
func NewDraftCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Read, save and clear autosaved form drafts",
	}
	cmd.AddCommand(newDraftGetCommand(rootOpts))
	cmd.AddCommand(newDraftSaveCommand(rootOpts))
	cmd.AddCommand(newDraftClearCommand(rootOpts))
	return cmd
}

func newDraftGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <patient-id> <form-key>",
		Short: "Show a saved draft",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChart(cmd, opts, func(ctx context.Context, m *chart.Manager, out *OutputFormatter) error {
				d, err := m.GetDraft(ctx, args[0], args[1])
				if err != nil {
					return failed("failed to read draft", err)
				}
				if d == nil {
					return notFound("draft %s for %s", args[1], args[0])
				}
				return out.Success(d)
			})
		},
	}
}

func newDraftSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DraftSaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save <patient-id> <form-key>",
		Short: "Save a draft now, replacing any earlier one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data map[string]any
			if err := decodeData(cmd, opts.Data, &data); err != nil {
				return err
			}
			return withChart(cmd, opts.RootOptions, func(ctx context.Context, m *chart.Manager, out *OutputFormatter) error {
				d, err := m.SaveDraft(ctx, args[0], args[1], data)
				if err != nil {
					return failed("failed to save draft", err)
				}
				return out.Success(d)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "form data as a JSON object, @file or - for stdin (required)")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func newDraftClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <patient-id> <form-key>",
		Short: "Remove a draft",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChart(cmd, opts, func(ctx context.Context, m *chart.Manager, out *OutputFormatter) error {
				if err := m.ClearDraft(ctx, args[0], args[1]); err != nil {
					return failed("failed to clear draft", err)
				}
				return out.Success("draft cleared")
			})
		},
	}
}
