package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"circuitbench/internal/config"
	"circuitbench/internal/dataset"
)

var itemsFlags struct {
	split      string
	configPath string
}

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List discovered items and questions for a split",
	RunE:  runItems,
}

func init() {
	f := itemsCmd.Flags()
	f.StringVar(&itemsFlags.split, "split", "dev", "Dataset split directory under the data root")
	f.StringVar(&itemsFlags.configPath, "config", "bench_config.yaml", "Path to the bench config file")
}

func runItems(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(itemsFlags.configPath)
	if err != nil {
		return err
	}
	items, err := dataset.Discover(filepath.Join(cfg.Paths.DataRoot, itemsFlags.split))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	questions := 0
	for _, it := range items {
		fmt.Fprintf(out, "%s/%s (%d elements, %d questions)\n",
			it.Family, it.ID, len(it.Inventory.Elements), len(it.Questions))
		for _, q := range it.Questions {
			bug := ""
			if q.InjectBug() {
				bug = " [fault]"
			}
			fmt.Fprintf(out, "  %-16s %-10s %s%s\n", q.ID, q.Track, q.Modality, bug)
			questions++
		}
	}
	fmt.Fprintf(out, "%d items, %d questions\n", len(items), questions)
	return nil
}
