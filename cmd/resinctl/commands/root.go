// Package commands implements resinctl, the offline companion of the
// dashboard: it analyzes, exports and imports historian CSV files.
package commands

import (
	"fmt"
	"os"

	rt "resin_tracker"
	"resin_tracker/internal/config"
	"resin_tracker/internal/ingest"

	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resinctl",
		Short: "Resin consumption per production lot",
		Long: `resinctl reconciles resin counter readings into per-lot consumption.

It reads the historian CSV export (TagName, Valeur, DateTime or
Date_Cible + Heure) and uses the workshop table from configs/config.yml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringVar(&configDir, "config", "configs", "directory holding config.yml")

	cmd.AddCommand(newAnalyzeCmd(), newExportCmd(), newImportCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", v, c)
}

// readExport decodes a CSV export using the configured workshop table.
func readExport(cfg config.Config, path string) ([]rt.Event, ingest.Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ingest.Stats{}, err
	}
	defer f.Close()

	return ingest.NewDecoder(cfg.Workshops, nil).Decode(f)
}
