package run

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"circuitbench/internal/adapters"
	"circuitbench/internal/config"
	"circuitbench/internal/dataset"
	"circuitbench/internal/judge"
	"circuitbench/internal/logging"
	"circuitbench/internal/mutate"
	"circuitbench/internal/ratelimit"
	"circuitbench/internal/template"
)

// defaultJudgeInstructions is used when a question carries no judge prompt
// document of its own.
const defaultJudgeInstructions = "Score the answer per-criterion with values in [0,1]." +
	" Required output format (JSON only):\n" +
	"{\n  \"scores\": { \"<criterion_id>\": <float 0..1>, ... },\n  \"overall\": <float 0..1>\n}\n" +
	"Do not include any other keys or text."

// Orchestrator owns one evaluation run end to end.
type Orchestrator struct {
	cfg      config.Config
	adapters map[string]adapters.Adapter
	anchored *judge.Anchored
	registry *ratelimit.Registry
	runID    string
	log      *slog.Logger

	rubricMu sync.Mutex
	rubrics  map[string]*judge.Rubric

	knowMu    sync.Mutex
	knowledge map[string]string
}

// New wires an orchestrator. anchored may be nil to skip Stage B judging.
func New(cfg config.Config, ads map[string]adapters.Adapter, anchored *judge.Anchored, registry *ratelimit.Registry) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		adapters:  ads,
		anchored:  anchored,
		registry:  registry,
		runID:     uuid.NewString(),
		log:       logging.New("run"),
		rubrics:   make(map[string]*judge.Rubric),
		knowledge: make(map[string]string),
	}
}

// RunID returns the unique id stamped on every record of this run.
func (o *Orchestrator) RunID() string { return o.runID }

// Run evaluates models × items × questions for one split and returns the
// run directory. Only startup failures (dataset discovery, run dir
// creation) return an error; task failures are recorded and contained.
func (o *Orchestrator) Run(ctx context.Context, models []string, split string, maxItems int) (string, error) {
	splitDir := filepath.Join(o.cfg.Paths.DataRoot, split)
	items, err := dataset.Discover(splitDir)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", fmt.Errorf("run: no items in split %s", splitDir)
	}
	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}

	runDir, err := NewRunDir(o.cfg.Paths.OutputsRoot)
	if err != nil {
		return "", err
	}
	rec, err := NewRecorder(runDir, models)
	if err != nil {
		return "", err
	}

	total := 0
	for i := range items {
		total += len(items[i].Questions)
	}
	total *= len(models)
	o.log.Info("run starting",
		"run_id", o.runID, "models", len(models), "items", len(items), "tasks", total, "dir", runDir)

	g, gctx := errgroup.WithContext(ctx)
	limit := o.cfg.Workers.Models
	if limit <= 0 {
		limit = len(models)
	}
	g.SetLimit(limit)
	for _, model := range models {
		model := model
		g.Go(func() error {
			o.runModelPool(gctx, model, items, rec, total)
			return nil
		})
	}
	g.Wait()

	if err := rec.Close(); err != nil {
		o.log.Error("closing result sinks", "err", err)
	}
	if err := UpdateLatest(o.cfg.Paths.OutputsRoot, runDir); err != nil {
		o.log.Error("updating latest pointer", "err", err)
	}
	o.log.Info("run finished", "run_id", o.runID, "recorded", rec.Count(), "dir", runDir)
	return runDir, nil
}

// runModelPool runs every task of one model under the per-model deadline.
// After the pool drains, any task left unrecorded (abandoned by the
// deadline) gets a synthetic timeout record so accounting stays complete.
func (o *Orchestrator) runModelPool(ctx context.Context, model string, items []dataset.Item, rec *Recorder, total int) {
	mctx, cancel := context.WithTimeout(ctx, o.cfg.ModelTimeout())
	defer cancel()

	tasks := BuildTasks([]string{model}, items)
	g, gctx := errgroup.WithContext(mctx)
	workers := o.cfg.Workers.Items
	if workers <= 0 {
		workers = 8
	}
	g.SetLimit(workers)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			o.runTask(gctx, t, rec, total)
			return nil
		})
	}
	g.Wait()

	if mctx.Err() != nil {
		o.log.Warn("model pool deadline exceeded", "model", model)
	}
	for _, t := range tasks {
		wrote, err := rec.Record(t.Key(), o.synthetic(t, "model pool deadline exceeded"))
		if err != nil {
			o.log.Error("recording synthetic result", "task", t.Key(), "err", err)
		}
		if wrote {
			o.log.Warn("task never completed, recorded synthetic timeout", "task", t.Key())
		}
	}
}

// runTask runs one task body under the per-task deadline. The body runs in
// its own goroutine; on expiry the synthetic record wins and the late body
// result is discarded by the recorder's exactly-once flag.
func (o *Orchestrator) runTask(ctx context.Context, t Task, rec *Recorder, total int) {
	key := t.Key()
	if ctx.Err() != nil {
		o.record(rec, key, o.synthetic(t, "model pool deadline exceeded"), total)
		return
	}

	tctx, cancel := context.WithTimeout(ctx, o.cfg.TaskTimeout())
	defer cancel()

	done := make(chan ResultRecord, 1)
	go func() { done <- o.evalTask(tctx, t) }()

	select {
	case r := <-done:
		o.record(rec, key, r, total)
	case <-tctx.Done():
		// The task budget and the model-pool deadline share tctx; name
		// whichever actually expired so reports attribute it correctly.
		msg := "task deadline exceeded"
		if ctx.Err() != nil {
			msg = "model pool deadline exceeded"
		}
		o.record(rec, key, o.synthetic(t, msg), total)
	}
}

func (o *Orchestrator) record(rec *Recorder, key string, r ResultRecord, total int) {
	wrote, err := rec.Record(key, r)
	if err != nil {
		o.log.Error("recording result", "task", key, "err", err)
		return
	}
	if wrote {
		o.log.Info("task recorded",
			"progress", fmt.Sprintf("%d/%d", rec.Count(), total),
			"task", key, "error_class", r.ErrorClass)
	}
}

// synthetic builds the failure record for a task that never produced one.
func (o *Orchestrator) synthetic(t Task, msg string) ResultRecord {
	r := o.baseRecord(t)
	r.Error = msg
	r.ErrorClass = ErrClassTimeout
	return r
}

func (o *Orchestrator) baseRecord(t Task) ResultRecord {
	return ResultRecord{
		RunID:      o.runID,
		Model:      t.Model,
		ItemID:     t.Item.ID,
		Family:     t.Item.Family,
		QuestionID: t.Question.ID,
		RubricID:   t.Question.RubricID,
		Track:      t.Question.Track,
		Modality:   t.Question.Modality,
	}
}

// evalTask is the task body: prompt → mutate → predict → score → judge.
// Every failure is folded into the returned record, never propagated.
func (o *Orchestrator) evalTask(ctx context.Context, t Task) ResultRecord {
	start := time.Now()
	r := o.baseRecord(t)
	q := t.Question
	fail := func(class string, err error) ResultRecord {
		r.Error = err.Error()
		r.ErrorClass = class
		r.DurationMS = time.Since(start).Milliseconds()
		return r
	}

	tmpl, err := os.ReadFile(filepath.Join(o.cfg.Paths.PromptsRoot, q.PromptTemplate))
	if err != nil {
		return fail(ErrClassSetup, fmt.Errorf("prompt template: %w", err))
	}
	prompt := template.Render(string(tmpl), map[string]string{"modality": q.Modality}, o.cfg.Paths.PromptsRoot)

	artifact := ""
	artifactPath := ""
	if q.ArtifactPath != "" {
		artifactPath = filepath.Join(t.Item.Dir, q.ArtifactPath)
		data, err := os.ReadFile(artifactPath)
		if err != nil {
			return fail(ErrClassSetup, fmt.Errorf("artifact: %w", err))
		}
		artifact = string(data)
	}

	if artifact != "" && o.cfg.Mutation.Randomize && q.Modality == "spice_netlist" {
		seed := mutate.DeriveSeed(o.cfg.Mutation.ItemSeed, t.Item.ID, q.ID, "randomize")
		artifact = mutate.RandomizeSpice(artifact, seed, o.mutateOptions())
	}
	if artifact != "" && q.InjectBug() {
		seed := mutate.DeriveSeed(o.cfg.Mutation.ItemSeed, t.Item.ID, q.ID, "bug")
		mutated, fault, err := mutate.InjectFault(artifact, q.Modality, seed)
		if err != nil {
			return fail(ErrClassSetup, err)
		}
		artifact = mutated
		r.Fault = fault
	}

	ad, ok := o.adapters[t.Model]
	if !ok {
		return fail(ErrClassSetup, fmt.Errorf("no adapter for model %q", t.Model))
	}
	limits := o.cfg.Resources[t.Model]
	limiter := o.registry.Limiter(t.Model, limits.RPM, limits.TPM)
	if err := limiter.Acquire(ctx, 1, judge.EstimateTokens(prompt)+judge.EstimateTokens(artifact)); err != nil {
		return fail(ErrClassTimeout, fmt.Errorf("rate limit wait: %w", err))
	}

	answer, err := ad.Predict(ctx, adapters.Request{
		Prompt:          prompt,
		Artifact:        artifact,
		ArtifactPath:    artifactPath,
		Modality:        q.Modality,
		InventoryIDs:    t.Item.Inventory.AllIDs(),
		RequireSections: q.RequireSections,
		AnswerFormat:    q.AnswerFormat,
	})
	if err != nil {
		return fail(ErrClassPredict, err)
	}
	r.Answer = answer

	rubric, err := o.rubric(q.RubricID)
	if err != nil {
		return fail(ErrClassSetup, err)
	}
	scores := judge.Score(answer, rubric, &t.Item.Inventory)
	r.Scores = &scores

	if o.anchored != nil {
		o.judgeTask(ctx, t, &r, rubric, answer, scores.Raw)
	}
	r.DurationMS = time.Since(start).Milliseconds()
	return r
}

// judgeTask runs Stage B and folds the outcome into r. Judge failures keep
// the deterministic scores; only the blended metric is lost.
func (o *Orchestrator) judgeTask(ctx context.Context, t Task, r *ResultRecord, rubric *judge.Rubric, answer string, raw float64) {
	q := t.Question
	instrText := defaultJudgeInstructions
	if q.JudgePrompt != "" {
		data, err := os.ReadFile(filepath.Join(o.cfg.Paths.PromptsRoot, q.JudgePrompt))
		if err != nil {
			o.log.Warn("judge prompt unreadable, using default instructions",
				"task", t.Key(), "err", err)
		} else {
			instrText = string(data)
		}
	}

	vars := map[string]string{
		"modality": q.Modality,
		"item":     t.Item.ID,
		"question": q.ID,
	}
	if r.Fault != nil {
		vars["fault_grammar"] = r.Fault.Grammar
		vars["fault_site"] = r.Fault.Site
		vars["fault_before"] = r.Fault.Before
		vars["fault_after"] = r.Fault.After
	}
	instructions := judge.RenderInstructions(instrText, vars, o.cfg.Paths.PromptsRoot)

	refs := o.readRefs(t.Item.Dir)
	if r.Fault != nil {
		refs["fault"] = r.Fault
	}

	verdict, err := o.anchored.Score(ctx, judge.ScoreRequest{
		Answer:       answer,
		Rubric:       rubric,
		Knowledge:    o.knowledgeFor(q.RubricID),
		Refs:         refs,
		InventoryIDs: t.Item.Inventory.AllIDs(),
		Instructions: instructions,
	})
	if err != nil {
		r.Error = err.Error()
		r.ErrorClass = ErrClassJudge
		return
	}
	r.Judge = verdict
	blended := 0.8*raw + 0.2*verdict.Overall
	r.Blended = &blended
}

func (o *Orchestrator) mutateOptions() mutate.Options {
	opts := mutate.DefaultOptions()
	m := o.cfg.Mutation
	if m.TailProbability > 0 {
		opts.TailProbability = m.TailProbability
	}
	if m.TailSpanFactor > 0 {
		opts.TailSpanFactor = m.TailSpanFactor
	}
	if m.CapJitter > 0 {
		opts.CapJitter = m.CapJitter
	}
	if m.QuantStep > 0 {
		opts.QuantStep = m.QuantStep
	}
	return opts
}

// rubric loads and caches one rubric by id.
func (o *Orchestrator) rubric(id string) (*judge.Rubric, error) {
	o.rubricMu.Lock()
	defer o.rubricMu.Unlock()
	if r, ok := o.rubrics[id]; ok {
		return r, nil
	}
	r, err := judge.LoadRubric(filepath.Join(o.cfg.Paths.RubricsRoot, id+".json"))
	if err != nil {
		return nil, err
	}
	o.rubrics[id] = r
	return r, nil
}

// knowledgeFor loads and caches the anchoring document for a rubric.
// Missing knowledge is not an error; the judge grades without it.
func (o *Orchestrator) knowledgeFor(rubricID string) string {
	o.knowMu.Lock()
	defer o.knowMu.Unlock()
	if k, ok := o.knowledge[rubricID]; ok {
		return k
	}
	data, err := os.ReadFile(filepath.Join(o.cfg.Paths.KnowledgeRoot, rubricID+".md"))
	if err != nil {
		o.knowledge[rubricID] = ""
		return ""
	}
	o.knowledge[rubricID] = string(data)
	return string(data)
}

// readRefs loads the item's refs.json, if any.
func (o *Orchestrator) readRefs(itemDir string) map[string]any {
	refs := map[string]any{}
	data, err := os.ReadFile(filepath.Join(itemDir, "refs.json"))
	if err != nil {
		return refs
	}
	if err := json.Unmarshal(data, &refs); err != nil {
		return map[string]any{}
	}
	return refs
}
