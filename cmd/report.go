package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalnine/aiscore/internal/config"
	"github.com/signalnine/aiscore/internal/report"
)

var flagReportFormat string

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [run-dir]",
		Short: "Generate summary from stored results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runDir := ""
			if len(args) > 0 {
				runDir = args[0]
			}
			resolved, err := resolveRunDir(runDir)
			if err != nil {
				return err
			}
			return report.Generate(resolved, flagReportFormat, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&flagReportFormat, "format", "table", "output format (table, markdown, json)")
	return cmd
}

// resolveRunDir follows runDir, defaulting to the latest run under the
// configured results directory.
func resolveRunDir(runDir string) (string, error) {
	if runDir == "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return "", err
		}
		runDir = filepath.Join(cfg.Results.Dir, "latest")
	}
	resolved, err := filepath.EvalSymlinks(runDir)
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	return resolved, nil
}
