package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/chartkeep/internal/audit"
	"github.com/roach88/chartkeep/internal/chart"
)

// NewAuditCommand creates the audit command group.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit trail",
	}
	cmd.AddCommand(newAuditListCommand(rootOpts))
	return cmd
}

// auditTrail renders newest-first entries, one per line.
type auditTrail []audit.Entry

func (t auditTrail) RenderText(w io.Writer) {
	if len(t) == 0 {
		fmt.Fprintln(w, "No audit entries.")
		return
	}
	for _, e := range t {
		actor := e.ActorID
		if e.ActorLabel != "" {
			actor = fmt.Sprintf("%s (%s)", e.ActorID, e.ActorLabel)
		}
		fmt.Fprintf(w, "%s  %-8s %-12s %s\n", e.Timestamp.Format(time.RFC3339), e.Action, e.Section, actor)
	}
}

func newAuditListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <patient-id>",
		Short: "List a patient's audit entries, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withChart(cmd, opts, func(ctx context.Context, m *chart.Manager, out *OutputFormatter) error {
				entries, err := m.AuditTrail(ctx, args[0])
				if err != nil {
					return failed("failed to read audit trail", err)
				}
				return out.Success(auditTrail(entries))
			})
		},
	}
}
