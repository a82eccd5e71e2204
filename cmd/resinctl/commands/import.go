package commands

import (
	"context"
	"io"
	"os"

	"resin_tracker/internal/config"
	"resin_tracker/internal/logger"
	"resin_tracker/internal/repository"
	"resin_tracker/internal/repository/db"
	"resin_tracker/internal/service"

	"github.com/spf13/cobra"
)

type importOptions struct {
	file   string
	dbPath string
}

func newImportCmd() *cobra.Command {
	opts := &importOptions{}
	cmd := &cobra.Command{
		Use:     "import",
		Short:   "Load a CSV export into the dashboard's sqlite store",
		Example: `  resinctl import --file data.csv --db resin.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configDir)
			if err != nil {
				return failure(cmd.ErrOrStderr(), "Cannot load configuration", err)
			}
			return runImport(cmd.Context(), cfg, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "historian CSV export")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "sqlite file (defaults to db.path from config)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runImport(ctx context.Context, cfg config.Config, opts *importOptions, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.dbPath != "" {
		cfg.DB.Path = opts.dbPath
	}

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		return failure(errOut, "Cannot open store "+cfg.DB.Path, err)
	}
	defer sqlDB.Close()

	f, err := os.Open(opts.file)
	if err != nil {
		return failure(errOut, "Cannot read export "+opts.file, err)
	}
	defer f.Close()

	services := service.NewService(repository.NewRepository(sqlDB), cfg, logger.Nop())
	defer services.Close()

	stats, err := services.Readings.Import(ctx, f)
	if err != nil {
		return failure(errOut, "Import failed", err)
	}
	if stats.Skipped > 0 {
		warning(out, "%d of %d rows skipped", stats.Skipped, stats.Rows)
	}
	success(out, "%d readings stored in %s", stats.Events, cfg.DB.Path)
	return nil
}
