package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/chartkeep/internal/audit"
	"github.com/roach88/chartkeep/internal/chart"
	"github.com/roach88/chartkeep/internal/patient"
)

// PatientSaveOptions holds flags for patient save.
type PatientSaveOptions struct {
	*RootOptions
	Data   string
	Action string
	Actor  string
}

// NewPatientCommand creates the patient command group.
func NewPatientCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patient",
		Short: "Read and write patient records",
	}
	cmd.AddCommand(newPatientGetCommand(rootOpts))
	cmd.AddCommand(newPatientListCommand(rootOpts))
	cmd.AddCommand(newPatientSaveCommand(rootOpts))
	return cmd
}

func newPatientGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <patient-id>",
		Short: "Show one patient record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChart(cmd, opts, func(ctx context.Context, m *chart.Manager, out *OutputFormatter) error {
				rec, err := m.GetPatient(ctx, args[0])
				if err != nil {
					return failed("failed to read patient", err)
				}
				if rec == nil {
					return notFound("patient %s", args[0])
				}
				return out.Success(rec)
			})
		},
	}
}

// patientList renders one line per record in text output.
type patientList []patient.Record

func (l patientList) RenderText(w io.Writer) {
	if len(l) == 0 {
		fmt.Fprintln(w, "No patients.")
		return
	}
	for _, r := range l {
		fmt.Fprintf(w, "%s  %s  [%s]  %s\n", r.ID, r.Name, r.Status, r.Physician)
	}
}

func newPatientListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every patient record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChart(cmd, opts, func(ctx context.Context, m *chart.Manager, out *OutputFormatter) error {
				all, err := m.GetAllPatients(ctx)
				if err != nil {
					return failed("failed to list patients", err)
				}
				return out.Success(patientList(all))
			})
		},
	}
}

func newPatientSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PatientSaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create or replace a patient record",
		Long: `Create or replace a patient record and append an audit entry.

Example:
  chartkeep patient save --data '{"id":"p3","name":"Grace Hopper"}' --actor nurse-1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rec patient.Record
			if err := decodeData(cmd, opts.Data, &rec); err != nil {
				return err
			}
			return withChart(cmd, opts.RootOptions, func(ctx context.Context, m *chart.Manager, out *OutputFormatter) error {
				saved, err := m.SavePatient(ctx, rec, opts.Action, opts.Actor)
				if err != nil {
					return failed("failed to save patient", err)
				}
				return out.Success(saved)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "record as JSON, @file or - for stdin (required)")
	_ = cmd.MarkFlagRequired("data")
	cmd.Flags().StringVar(&opts.Action, "action", audit.ActionUpdate, "audit action")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "audit actor id (default: configured actor)")

	return cmd
}
