package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"circuitbench/internal/adapters"
	"circuitbench/internal/config"
	"circuitbench/internal/judge"
	"circuitbench/internal/ratelimit"
	"circuitbench/internal/run"
)

var runFlags struct {
	models       string
	split        string
	maxItems     int
	useJudge     bool
	judgeModel   string
	parallel     int
	modelWorkers int
	taskTimeout  int
	modelTimeout int
	configPath   string
	out          string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a full evaluation over models x items x questions",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.models, "models", "dummy", "Comma-separated model names (dummy, or any OpenAI-compatible model)")
	f.StringVar(&runFlags.split, "split", "dev", "Dataset split directory under the data root")
	f.IntVar(&runFlags.maxItems, "max-items", 0, "Cap on evaluated items (0 = all)")
	f.BoolVar(&runFlags.useJudge, "use-judge", false, "Enable the anchored LLM judge (Stage B)")
	f.StringVar(&runFlags.judgeModel, "judge-model", "", "Override the judge model name")
	f.IntVar(&runFlags.parallel, "parallel", 0, "Item workers per model pool (0 = config default)")
	f.IntVar(&runFlags.modelWorkers, "model-workers", 0, "Concurrent model pools (0 = one per model)")
	f.IntVar(&runFlags.taskTimeout, "task-timeout", 0, "Per-task timeout in seconds (0 = config default)")
	f.IntVar(&runFlags.modelTimeout, "model-timeout", 0, "Per-model-pool timeout in seconds (0 = config default)")
	f.StringVar(&runFlags.configPath, "config", "bench_config.yaml", "Path to the bench config file")
	f.StringVar(&runFlags.out, "out", "", "Override the outputs root directory")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(runFlags.configPath)
	if err != nil {
		return err
	}
	if runFlags.out != "" {
		cfg.Paths.OutputsRoot = runFlags.out
	}
	if runFlags.parallel > 0 {
		cfg.Workers.Items = runFlags.parallel
	}
	if runFlags.modelWorkers > 0 {
		cfg.Workers.Models = runFlags.modelWorkers
	}
	if runFlags.taskTimeout > 0 {
		cfg.Timeouts.TaskSeconds = runFlags.taskTimeout
	}
	if runFlags.modelTimeout > 0 {
		cfg.Timeouts.ModelSeconds = runFlags.modelTimeout
	}

	var models []string
	for _, m := range strings.Split(runFlags.models, ",") {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	if len(models) == 0 {
		return fmt.Errorf("no models given")
	}

	ads := make(map[string]adapters.Adapter, len(models))
	for _, m := range models {
		ad, err := buildAdapter(m)
		if err != nil {
			return err
		}
		ads[m] = ad
	}

	registry := ratelimit.NewRegistry()
	var anchored *judge.Anchored
	if runFlags.useJudge {
		model := runFlags.judgeModel
		if model == "" {
			model = cfg.Judge.Model
		}
		chat, err := judge.NewOpenAIChat(model, "", "", cfg.Judge.Temperature, cfg.Judge.MaxTokens)
		if err != nil {
			return err
		}
		limits := cfg.Resources["judge"]
		anchored = judge.NewAnchored(chat, model,
			registry.Limiter("judge", limits.RPM, limits.TPM),
			cfg.Judge.MaxConcurrent, cfg.Judge.MaxAttempts,
			time.Duration(cfg.Judge.BackoffBaseSec*float64(time.Second)))
	}

	orch := run.New(cfg, ads, anchored, registry)
	runDir, err := orch.Run(cmd.Context(), models, runFlags.split, runFlags.maxItems)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Run %s complete: %s\n", orch.RunID(), runDir)
	return nil
}

// buildAdapter maps a model name to its adapter: "dummy" stays offline,
// everything else goes through the OpenAI-compatible client.
func buildAdapter(model string) (adapters.Adapter, error) {
	if model == "dummy" {
		return adapters.Build("dummy", adapters.Options{})
	}
	return adapters.Build("openai", adapters.Options{Model: model})
}
