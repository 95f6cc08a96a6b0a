package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"circuitbench/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel  string
	logFormat string
}

var rootCmd = &cobra.Command{
	Use:   "circuitbench",
	Short: "Benchmark LLMs on analog circuit analysis, debugging and design",
	Long: "Circuitbench evaluates language models on analog-circuit tasks:\n" +
		"it mutates artifacts for anti-memorization, dispatches prompts across\n" +
		"models under rate limits, and scores answers with rubric plus anchored\n" +
		"LLM judging.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(*cobra.Command, []string) {
		logging.Init(logging.ParseLevel(rootFlags.logLevel), rootFlags.logFormat)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(mutateCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
