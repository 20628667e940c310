package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/chartkeep/internal/chart"
	"github.com/roach88/chartkeep/internal/schema"
	"github.com/roach88/chartkeep/internal/section"
)

// SectionWriteOptions holds flags for section put and patch.
type SectionWriteOptions struct {
	*RootOptions
	Data   string
	Actor  string
	Status string
}

// NewSectionCommand creates the section command group.
func NewSectionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "section",
		Short: "Read and write chart sections",
		Long: `Read and write chart sections.

List sections (allergies, appointments, visits, ...) are read with get and
replaced wholesale with put. Document sections (intake, history, ...) are
read with doc and merged with patch. "section names" lists every section
and its shape.`,
	}
	cmd.AddCommand(newSectionNamesCommand(rootOpts))
	cmd.AddCommand(newSectionGetCommand(rootOpts))
	cmd.AddCommand(newSectionPutCommand(rootOpts))
	cmd.AddCommand(newSectionDocCommand(rootOpts))
	cmd.AddCommand(newSectionPatchCommand(rootOpts))
	return cmd
}

type sectionList []schema.Section

func (l sectionList) RenderText(w io.Writer) {
	for _, s := range l {
		fmt.Fprintf(w, "%-14s %-9s %s\n", s.Name, s.Shape, s.Label)
	}
}

func newSectionNamesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "names",
		Short: "List declared sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChart(cmd, opts, func(ctx context.Context, m *chart.Manager, out *OutputFormatter) error {
				return out.Success(sectionList(m.Sections()))
			})
		},
	}
}

func newSectionGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <patient-id> <section>",
		Short: "Show a list section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChart(cmd, opts, func(ctx context.Context, m *chart.Manager, out *OutputFormatter) error {
				items, err := m.GetPatientSectionList(ctx, args[0], args[1])
				if err != nil {
					return failed("failed to read section", err)
				}
				return out.Success(items)
			})
		},
	}
}

func newSectionPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SectionWriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "put <patient-id> <section>",
		Short: "Replace a list section",
		Long: `Replace a list section with the JSON array given by --data.

Every item needs an "id" unique within the list. With --actor an audit
entry is written alongside the list.

Example:
  chartkeep section put p1 allergies --data '[{"id":"al1","substance":"latex"}]' --actor dr1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []section.Item
			if err := decodeData(cmd, opts.Data, &items); err != nil {
				return err
			}
			return withChart(cmd, opts.RootOptions, func(ctx context.Context, m *chart.Manager, out *OutputFormatter) error {
				if err := m.SavePatientSectionList(ctx, args[0], args[1], items, opts.Actor); err != nil {
					return failed("failed to save section", err)
				}
				return out.Success(map[string]any{
					"patientId": args[0],
					"section":   args[1],
					"count":     len(items),
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "items as a JSON array, @file or - for stdin (required)")
	_ = cmd.MarkFlagRequired("data")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "audit actor id (no audit entry when empty)")

	return cmd
}

func newSectionDocCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doc <patient-id> <section>",
		Short: "Show a document section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChart(cmd, opts, func(ctx context.Context, m *chart.Manager, out *OutputFormatter) error {
				d, err := m.GetPatientSection(ctx, args[0], args[1])
				if err != nil {
					return failed("failed to read section", err)
				}
				if d == nil {
					return notFound("section %s for %s", args[1], args[0])
				}
				return out.Success(d)
			})
		},
	}
}

func newSectionPatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SectionWriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "patch <patient-id> <section>",
		Short: "Merge into a document section",
		Long: `Merge into a document section, creating it when absent.

--data replaces the document's data object; --status sets its status.
Fields not given are kept.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch section.Patch
			if cmd.Flags().Changed("data") {
				if err := decodeData(cmd, opts.Data, &patch.Data); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("status") {
				patch.Status = &opts.Status
			}
			return withChart(cmd, opts.RootOptions, func(ctx context.Context, m *chart.Manager, out *OutputFormatter) error {
				d, err := m.UpdatePatientSection(ctx, args[0], args[1], patch)
				if err != nil {
					return failed("failed to update section", err)
				}
				return out.Success(d)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "data as a JSON object, @file or - for stdin")
	cmd.Flags().StringVar(&opts.Status, "status", "", "document status")

	return cmd
}
