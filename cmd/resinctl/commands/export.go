package commands

import (
	"context"
	"fmt"
	"io"

	"resin_tracker/internal/config"
	"resin_tracker/internal/service"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
)

type exportOptions struct {
	file     string
	workshop string
	out      string
}

func newExportCmd() *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Write the completed lots of one workshop to a CSV file",
		Example: `  resinctl export --file data.csv --workshop FX1 --out lots_fx1.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configDir)
			if err != nil {
				return failure(cmd.ErrOrStderr(), "Cannot load configuration", err)
			}
			return runExport(cmd.Context(), cfg, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "historian CSV export")
	cmd.Flags().StringVar(&opts.workshop, "workshop", "", "workshop name")
	cmd.Flags().StringVar(&opts.out, "out", "", "destination CSV file")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("workshop")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runExport(ctx context.Context, cfg config.Config, opts *exportOptions, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	reports, err := analyzeFile(ctx, cfg, opts.file, opts.workshop, errOut)
	if err != nil {
		return err
	}
	rep := reports[0]

	if err := writeFileAtomic(opts.out, func(w io.Writer) error {
		return service.WriteCSV(w, rep.Records)
	}); err != nil {
		return failure(errOut, "Cannot write "+opts.out, err)
	}

	if len(rep.Records) == 0 {
		warning(out, "%s: no completed lot, wrote header only", rep.Workshop)
	}
	success(out, "%d lots of %s written to %s", len(rep.Records), rep.Workshop, opts.out)
	return nil
}

// writeFileAtomic replaces path only once write has fully succeeded.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if err := write(pending); err != nil {
		return err
	}
	return pending.CloseAtomicallyReplace()
}
