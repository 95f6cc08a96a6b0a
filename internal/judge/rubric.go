package judge

import (
	"encoding/json"
	"fmt"
	"os"

	"circuitbench/internal/dataset"
)

// defaultMinPass is the pass threshold when a rubric does not set one.
const defaultMinPass = 0.7

// Criterion is one weighted check of the deterministic rubric pass.
type Criterion struct {
	ID       string  `json:"id"`
	Weight   float64 `json:"weight"`
	Required bool    `json:"required,omitempty"`

	// PatternsAny passes when at least MinCount of the patterns occur
	// (MinCount defaults to 1). PatternsAll requires every pattern.
	PatternsAny []string `json:"patterns_any,omitempty"`
	MinCount    int      `json:"min_count,omitempty"`
	PatternsAll []string `json:"patterns_all,omitempty"`

	// AntiPatterns veto the criterion outright: any match zeroes it and,
	// when Required, fails the gate.
	AntiPatterns []string `json:"anti_patterns,omitempty"`

	// Section scopes pattern matching to one markdown section of the
	// answer. A missing section fails the criterion.
	Section string `json:"section,omitempty"`

	// RequiresGrounding demands MinRefs citations resolved against the
	// inventory. Combined with patterns, the weight splits 50/50 between
	// the two checks.
	RequiresGrounding bool `json:"requires_grounding,omitempty"`
	MinRefs           int  `json:"min_refs,omitempty"`
}

// Scoring carries the rubric-level knobs.
type Scoring struct {
	MinPass              float64 `json:"min_pass,omitempty"`
	HallucinationPenalty float64 `json:"hallucination_penalty,omitempty"`
}

// Rubric is the deterministic grading program for one question.
type Rubric struct {
	ID       string      `json:"id"`
	Criteria []Criterion `json:"criteria"`
	Scoring  Scoring     `json:"scoring"`
}

// LoadRubric reads a rubric JSON file and applies defaults.
func LoadRubric(path string) (*Rubric, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("judge: read rubric: %w", err)
	}
	var r Rubric
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("judge: parse rubric %s: %w", path, err)
	}
	if r.Scoring.MinPass == 0 {
		r.Scoring.MinPass = defaultMinPass
	}
	return &r, nil
}

// CriterionResult is the normalized outcome of one criterion.
type CriterionResult struct {
	Score          float64       `json:"score"`
	RequiredFailed bool          `json:"required_failed,omitempty"`
	Groundedness   *Groundedness `json:"groundedness,omitempty"`
}

// Hallucination records whether out-of-inventory ids were cited and the
// penalty that cost.
type Hallucination struct {
	Has           bool     `json:"has_hallucination"`
	Penalty       float64  `json:"penalty"`
	FalsePositive []string `json:"false_positive,omitempty"`
}

// Result is the deterministic Stage A score for one answer.
type Result struct {
	Raw           float64                    `json:"raw"`
	Points        float64                    `json:"points"`
	TotalWeight   float64                    `json:"total_weight"`
	PerCriterion  map[string]CriterionResult `json:"per_criterion"`
	Hallucination Hallucination              `json:"hallucination"`
	Pass          bool                       `json:"pass"`
}

// Score runs the rubric against one answer. Pattern checks respect section
// scoping; grounding always resolves over the whole answer so citations in
// any section count.
func Score(answer string, rubric *Rubric, inv *dataset.Inventory) Result {
	totalWeight := 0.0
	for _, c := range rubric.Criteria {
		totalWeight += c.Weight
	}

	points := 0.0
	perCrit := make(map[string]CriterionResult, len(rubric.Criteria))
	requiredFailed := false

	for _, c := range rubric.Criteria {
		score, res := scoreCriterion(answer, c, inv)
		if res.RequiredFailed {
			requiredFailed = true
		}
		perCrit[c.ID] = res
		points += score
	}

	hallu := Hallucination{}
	g := Ground(answer, inv)
	if len(g.FalsePositive) > 0 {
		hallu = Hallucination{
			Has:           true,
			Penalty:       rubric.Scoring.HallucinationPenalty,
			FalsePositive: g.FalsePositive,
		}
		points = max(points-hallu.Penalty, 0)
	}

	raw := 0.0
	if totalWeight > 0 {
		raw = points / totalWeight
	}
	return Result{
		Raw:           raw,
		Points:        points,
		TotalWeight:   totalWeight,
		PerCriterion:  perCrit,
		Hallucination: hallu,
		Pass:          raw >= rubric.Scoring.MinPass && !requiredFailed,
	}
}

// scoreCriterion returns the weighted points earned plus the normalized
// per-criterion record.
func scoreCriterion(answer string, c Criterion, inv *dataset.Inventory) (float64, CriterionResult) {
	scope := answer
	if c.Section != "" {
		body, ok := SectionBody(answer, c.Section)
		if !ok {
			return 0, CriterionResult{Score: 0, RequiredFailed: c.Required}
		}
		scope = body
	}

	// Weight split between pattern and grounding halves.
	patternWeight := c.Weight
	groundingWeight := 0.0
	if c.RequiresGrounding && len(c.PatternsAny) > 0 {
		patternWeight = c.Weight * 0.5
		groundingWeight = c.Weight * 0.5
	} else if c.RequiresGrounding {
		patternWeight = 0
		groundingWeight = c.Weight
	}

	score := 0.0
	okRequired := true

	if len(c.PatternsAny) > 0 {
		minCount := c.MinCount
		if minCount <= 0 {
			minCount = 1
		}
		if CountAny(scope, c.PatternsAny) >= minCount {
			score += patternWeight
		} else if c.Required {
			okRequired = false
		}
	}
	if len(c.PatternsAll) > 0 {
		if !ContainsAll(scope, c.PatternsAll) {
			if c.Required {
				okRequired = false
			}
		} else if len(c.PatternsAny) == 0 && !c.RequiresGrounding {
			score += patternWeight
		}
	}
	if ContainsAny(scope, c.AntiPatterns) {
		score = 0
		okRequired = false
	}

	res := CriterionResult{}
	if c.RequiresGrounding {
		g := Ground(answer, inv)
		if len(g.TruePositive) >= c.MinRefs {
			score += groundingWeight
		}
		res.Groundedness = &g
	}

	if c.Weight > 0 {
		res.Score = score / c.Weight
	} else {
		res.Score = 1
	}
	res.RequiredFailed = c.Required && !okRequired
	return score, res
}
