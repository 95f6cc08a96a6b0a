package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"circuitbench/internal/config"
	"circuitbench/internal/report"
)

var reportFlags struct {
	runDir     string
	configPath string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize a run directory (default: the latest run)",
	RunE:  runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.runDir, "run-dir", "", "Run directory to summarize (default: outputs/latest)")
	f.StringVar(&reportFlags.configPath, "config", "bench_config.yaml", "Path to the bench config file")
}

func runReport(cmd *cobra.Command, _ []string) error {
	dir := reportFlags.runDir
	if dir == "" {
		cfg, err := config.Load(reportFlags.configPath)
		if err != nil {
			return err
		}
		dir = filepath.Join(cfg.Paths.OutputsRoot, "latest")
	}

	s, err := report.Summarize(dir)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), s.Render())
	if err := s.WriteJSON(dir); err != nil {
		return fmt.Errorf("write summary.json: %w", err)
	}
	return nil
}
