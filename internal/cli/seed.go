package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/chartkeep/internal/chart"
	"github.com/roach88/chartkeep/internal/fixture"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Load patients, sections and drafts from a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := fixture.Load(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load seed", err)
			}
			return withChart(cmd, opts, func(ctx context.Context, m *chart.Manager, out *OutputFormatter) error {
				out.VerboseLog("applying seed %q (%d patients)", seed.Name, len(seed.Patients))
				sum, err := seed.Apply(ctx, m)
				if err != nil {
					return failed("failed to apply seed", err)
				}
				return out.Success(sum)
			})
		},
	}
}
