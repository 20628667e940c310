package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/chartkeep/internal/chart"
	"github.com/roach88/chartkeep/internal/config"
	"github.com/roach88/chartkeep/internal/logging"
	"github.com/roach88/chartkeep/internal/patient"
	"github.com/roach88/chartkeep/internal/section"
)

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// withChart loads configuration, opens the chart store, runs fn and closes
// the store again, flushing anything still pending.
func withChart(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, m *chart.Manager, out *OutputFormatter) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.LogFormat, out.GetErrWriter())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure logging", err)
	}

	out.VerboseLog("opening %s store", cfg.Backend)
	m, err := chart.Open(ctx, cfg, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer func() {
		if cerr := m.Close(ctx); cerr != nil && err == nil {
			err = WrapExitError(ExitFailure, "failed to close store", cerr)
		}
	}()

	return fn(ctx, m, out)
}

// failed maps an operation error to an exit code: caller mistakes such as
// unknown sections or missing ids are command errors, the rest failures.
func failed(message string, err error) error {
	switch {
	case errors.Is(err, section.ErrUnknownSection),
		errors.Is(err, section.ErrShape),
		errors.Is(err, section.ErrItemID),
		errors.Is(err, section.ErrDuplicateID),
		errors.Is(err, patient.ErrMissingID):
		return WrapExitError(ExitCommandError, message, err)
	}
	return WrapExitError(ExitFailure, message, err)
}

// decodeData parses a --data value as JSON into dst. "@path" reads the
// file at path and "-" reads stdin.
func decodeData(cmd *cobra.Command, raw string, dst any) error {
	var r io.Reader
	switch {
	case raw == "-":
		r = cmd.InOrStdin()
	case strings.HasPrefix(raw, "@"):
		f, err := os.Open(strings.TrimPrefix(raw, "@"))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read --data file", err)
		}
		defer f.Close()
		r = f
	default:
		r = strings.NewReader(raw)
	}

	if err := json.NewDecoder(r).Decode(dst); err != nil {
		return WrapExitError(ExitCommandError, "invalid --data JSON", err)
	}
	return nil
}

func notFound(format string, args ...any) error {
	return NewExitError(ExitFailure, fmt.Sprintf(format, args...)+" not found")
}
