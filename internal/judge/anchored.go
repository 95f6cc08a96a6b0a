package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"circuitbench/internal/logging"
	"circuitbench/internal/ratelimit"
	"circuitbench/internal/template"
)

// judgeSystem anchors the judge model to the provided context and pins the
// output to bare JSON.
const judgeSystem = "You are an impartial grading assistant for analog/mixed-signal design. " +
	"You ONLY output JSON. Your job is to score the answer per rubric, strictly anchored " +
	"to the provided knowledge, refs, and inventory."

// maxBackoff caps any single retry sleep; timeout failures get a shorter
// cap since the call itself already burned its deadline.
const (
	maxBackoff        = 20 * time.Second
	maxTimeoutBackoff = 10 * time.Second
)

// retryableSubstrings classify transient vendor failures worth another
// attempt. Everything else fails fast.
var retryableSubstrings = []string{
	"rate limit", "429", "tpm", "rpm", "quota",
	"timeout", "timed out", "deadline exceeded",
	"service unavailable", "overloaded", "temporarily", "503",
}

var timeoutSubstrings = []string{"timeout", "timed out", "deadline exceeded"}

func retryable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range retryableSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range timeoutSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Verdict is the judge's parsed reply.
type Verdict struct {
	Scores  map[string]float64 `json:"scores"`
	Overall float64            `json:"overall"`
}

// JudgeError carries everything needed to debug a failed judge call: what
// the judge was told, what it was grading, and which model refused.
type JudgeError struct {
	Model        string
	Instructions string
	Payload      string
	Err          error
}

func (e *JudgeError) Error() string {
	return fmt.Sprintf("judge %s: %v", e.Model, e.Err)
}

func (e *JudgeError) Unwrap() error { return e.Err }

// ScoreRequest is one anchored judging call. InventoryIDs is the citable
// allow-list the verdict must stay anchored to.
type ScoreRequest struct {
	Answer       string
	Rubric       *Rubric
	Knowledge    string
	Refs         map[string]any
	InventoryIDs []string
	Instructions string
}

// RenderInstructions expands a judge instruction template with runtime vars
// (fault descriptor fields included) and resolves {calc:} placeholders.
func RenderInstructions(text string, vars map[string]string, baseDir string) string {
	return SubstituteCalc(template.Render(text, vars, baseDir))
}

// Anchored is the Stage B judge: one shared instance per run, gated on both
// the judge rate limiter and a concurrency semaphore so a burst of finished
// predictions cannot stampede the judge endpoint.
type Anchored struct {
	chat        Chat
	model       string
	limiter     *ratelimit.Limiter
	sem         *semaphore.Weighted
	maxAttempts int
	backoffBase time.Duration
	log         *slog.Logger

	// sleep and jitter are split out for deterministic backoff tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// NewAnchored wires the judge. maxConcurrent bounds in-flight judge calls;
// the limiter is shared with whatever else targets the judge resource.
func NewAnchored(chat Chat, model string, limiter *ratelimit.Limiter, maxConcurrent int64, maxAttempts int, backoffBase time.Duration) *Anchored {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	return &Anchored{
		chat:        chat,
		model:       model,
		limiter:     limiter,
		sem:         semaphore.NewWeighted(maxConcurrent),
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		log:         logging.New("judge"),
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
		jitter: func() time.Duration {
			return time.Duration((0.1 + rand.Float64()*0.4) * float64(time.Second))
		},
	}
}

// Score runs one anchored judging call with bounded retries. It returns a
// parsed Verdict or a *JudgeError; it never panics and never returns
// (nil, nil).
func (a *Anchored) Score(ctx context.Context, req ScoreRequest) (*Verdict, error) {
	payload, err := json.Marshal(map[string]any{
		"rubric":    req.Rubric,
		"knowledge": req.Knowledge,
		"refs":      req.Refs,
		"inventory": req.InventoryIDs,
		"answer":    req.Answer,
	})
	if err != nil {
		return nil, &JudgeError{Model: a.model, Instructions: req.Instructions, Err: err}
	}
	user := req.Instructions + "\n\nCONTEXT:\n" + string(payload)

	fail := func(err error) *JudgeError {
		return &JudgeError{Model: a.model, Instructions: req.Instructions, Payload: string(payload), Err: err}
	}

	var lastErr error
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if err := a.sem.Acquire(ctx, 1); err != nil {
			return nil, fail(err)
		}
		if err := a.limiter.Acquire(ctx, 1, EstimateTokens(user)); err != nil {
			a.sem.Release(1)
			return nil, fail(err)
		}
		reply, err := a.chat.Complete(ctx, judgeSystem, user)
		a.sem.Release(1)

		if err == nil {
			v, perr := ParseVerdict(reply)
			if perr != nil {
				return nil, fail(fmt.Errorf("unparsable verdict %q: %w", reply, perr))
			}
			return v, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, fail(err)
		}
		if attempt == a.maxAttempts {
			break
		}

		delay := a.backoffDelay(attempt, err)
		a.log.Warn("judge call failed, backing off",
			"attempt", attempt, "of", a.maxAttempts, "delay", delay, "err", err)
		if serr := a.sleep(ctx, delay); serr != nil {
			return nil, fail(serr)
		}
	}
	return nil, fail(fmt.Errorf("retries exhausted after %d attempts: %w", a.maxAttempts, lastErr))
}

// backoffDelay computes the exponential delay for a failed attempt.
func (a *Anchored) backoffDelay(attempt int, err error) time.Duration {
	d := a.backoffBase * (1 << (attempt - 1))
	limit := maxBackoff
	if isTimeout(err) {
		limit = maxTimeoutBackoff
	}
	if d > limit {
		d = limit
	}
	return d + a.jitter()
}

// ParseVerdict decodes a judge reply. A surrounding markdown fence is
// tolerated; everything else must be the documented JSON shape with a
// scores map. A missing overall is filled with the mean criterion score.
func ParseVerdict(reply string) (*Verdict, error) {
	txt := strings.TrimSpace(reply)
	if strings.HasPrefix(txt, "```") {
		txt = strings.TrimPrefix(txt, "```json")
		txt = strings.TrimPrefix(txt, "```")
		txt = strings.TrimSuffix(strings.TrimSpace(txt), "```")
		txt = strings.TrimSpace(txt)
	}

	var raw struct {
		Scores  map[string]float64 `json:"scores"`
		Overall *float64           `json:"overall"`
	}
	if err := json.Unmarshal([]byte(txt), &raw); err != nil {
		return nil, err
	}
	if raw.Scores == nil {
		return nil, errors.New("missing scores map")
	}
	v := &Verdict{Scores: raw.Scores}
	if raw.Overall != nil {
		v.Overall = *raw.Overall
	} else if len(raw.Scores) > 0 {
		sum := 0.0
		for _, s := range raw.Scores {
			sum += s
		}
		v.Overall = sum / float64(len(raw.Scores))
	}
	return v, nil
}
