package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/chartkeep/internal/chart"
	"github.com/roach88/chartkeep/internal/reconcile"
)

// CallEndOptions holds flags for call end.
type CallEndOptions struct {
	*RootOptions
	reconcile.CallMetadata
}

// NewCallCommand creates the call command group.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call",
		Short: "Live session hooks",
	}
	cmd.AddCommand(newCallEndCommand(rootOpts))
	return cmd
}

func newCallEndCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CallEndOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "end",
		Short: "Reconcile an appointment claim after a call ends",
		Long: `Reconcile an appointment claim after a call ends.

If the doctor ending the call holds the claim and no documentation was
started on the visit, the appointment, visit and patient record go back
to the waiting pool in one batch. Otherwise nothing is written.

Example:
  chartkeep call end --patient p1 --appointment a1 --visit v1 --doctor dr1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChart(cmd, opts.RootOptions, func(ctx context.Context, m *chart.Manager, out *OutputFormatter) error {
				outcome := m.EndCall(ctx, opts.CallMetadata)
				if err := out.Success(outcome); err != nil {
					return err
				}
				if outcome.Decision == reconcile.DecisionFailed {
					return NewExitError(ExitFailure, "reconciliation failed: "+outcome.Reason)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.PatientID, "patient", "", "patient id (required)")
	_ = cmd.MarkFlagRequired("patient")
	cmd.Flags().StringVar(&opts.AppointmentID, "appointment", "", "appointment id (required)")
	_ = cmd.MarkFlagRequired("appointment")
	cmd.Flags().StringVar(&opts.DoctorID, "doctor", "", "id of the doctor ending the call (required)")
	_ = cmd.MarkFlagRequired("doctor")
	cmd.Flags().StringVar(&opts.VisitID, "visit", "", "visit id")

	return cmd
}
