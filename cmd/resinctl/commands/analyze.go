package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	rt "resin_tracker"
	"resin_tracker/internal/config"
	"resin_tracker/internal/logger"
	"resin_tracker/internal/service"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

type analyzeOptions struct {
	file     string
	workshop string
	format   string
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute the consumption of every completed lot in a CSV export",
		Example: `  resinctl analyze --file data.csv
  resinctl analyze --file data.csv --workshop FX1 --format csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configDir)
			if err != nil {
				return failure(cmd.ErrOrStderr(), "Cannot load configuration", err)
			}
			return runAnalyze(cmd.Context(), cfg, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "historian CSV export")
	cmd.Flags().StringVar(&opts.workshop, "workshop", "", "workshop name (all when empty)")
	cmd.Flags().StringVar(&opts.format, "format", formatTable, "output format: table, csv or json")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runAnalyze(ctx context.Context, cfg config.Config, opts *analyzeOptions, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	format := strings.ToLower(strings.TrimSpace(opts.format))
	switch format {
	case formatTable, formatJSON:
	case formatCSV:
		if opts.workshop == "" {
			return failure(errOut, "CSV output needs a workshop", fmt.Errorf("use --workshop with --format csv"))
		}
	default:
		return failure(errOut, "Unknown output format", fmt.Errorf("%q (want table, csv or json)", opts.format))
	}

	reports, err := analyzeFile(ctx, cfg, opts.file, opts.workshop, errOut)
	if err != nil {
		return err
	}

	switch format {
	case formatCSV:
		return service.WriteCSV(out, reports[0].Records)
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	default:
		return printReports(out, reports)
	}
}

// analyzeFile decodes path and analyzes one workshop, or all when name is empty.
func analyzeFile(ctx context.Context, cfg config.Config, path, name string, errOut io.Writer) ([]rt.WorkshopReport, error) {
	events, stats, err := readExport(cfg, path)
	if err != nil {
		return nil, failure(errOut, "Cannot read export "+path, err)
	}
	if stats.Skipped > 0 {
		warning(errOut, "%d of %d rows skipped (unreadable timestamp or empty tag)", stats.Skipped, stats.Rows)
	}

	analysis := service.NewAnalysisService(cfg.Workshops, service.NewMemorySource(events), logger.Nop())
	if name == "" {
		reports, err := analysis.AnalyzeAll(ctx, service.RangeFilter{})
		if err != nil {
			return nil, failure(errOut, "Analysis failed", err)
		}
		return reports, nil
	}
	rep, err := analysis.AnalyzeWorkshop(ctx, name, service.RangeFilter{})
	if err != nil {
		return nil, failure(errOut, "Analysis failed", err)
	}
	return []rt.WorkshopReport{rep}, nil
}

func printReports(out io.Writer, reports []rt.WorkshopReport) error {
	for _, rep := range reports {
		if len(rep.Records) == 0 {
			warning(out, "%s: no completed lot", rep.Workshop)
			continue
		}

		table := tablewriter.NewWriter(out)
		table.Header("Workshop", "Lot", "Start", "End", "Duration", "Total kg")
		for _, r := range rep.Records {
			if err := table.Append([]string{
				rep.Workshop,
				r.LotID,
				r.Start.Format(time.DateTime),
				r.End.Format(time.DateTime),
				r.DisplayDuration().String(),
				strconv.FormatFloat(r.RoundedKg(), 'f', 2, 64),
			}); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	return nil
}
