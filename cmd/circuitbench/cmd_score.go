package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"circuitbench/internal/dataset"
	"circuitbench/internal/judge"
)

var scoreFlags struct {
	answer string
	rubric string
	item   string
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a saved answer against a rubric and item inventory (Stage A only)",
	RunE:  runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.StringVar(&scoreFlags.answer, "answer", "", "Path to the answer text file")
	f.StringVar(&scoreFlags.rubric, "rubric", "", "Path to the rubric JSON file")
	f.StringVar(&scoreFlags.item, "item", "", "Path to the item directory (for inventory.json)")
	scoreCmd.MarkFlagRequired("answer")
	scoreCmd.MarkFlagRequired("rubric")
	scoreCmd.MarkFlagRequired("item")
}

func runScore(cmd *cobra.Command, _ []string) error {
	answer, err := os.ReadFile(scoreFlags.answer)
	if err != nil {
		return err
	}
	rubric, err := judge.LoadRubric(scoreFlags.rubric)
	if err != nil {
		return err
	}
	item, err := dataset.LoadItem(filepath.Clean(scoreFlags.item))
	if err != nil {
		return err
	}

	res := judge.Score(string(answer), rubric, &item.Inventory)
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
