package adapters

import (
	"context"
	"fmt"
	"strings"
)

// dummyAnswer is the canned analysis shape: sectioned markdown with inline
// citations, enough for the grader to exercise its full path offline.
const dummyAnswer = `### Observations
The amplifier uses negative feedback [%[1]s, %[2]s] with a single-ended topology [%[1]s] and an inverting configuration.

### Calculations
1. Low-frequency closed-loop gain: Acl = -gm*Rout [%[1]s, %[2]s]
2. Bandwidth depends on the dominant pole set by the output node [%[2]s, CL].

### Answer
GBW is set by gm/CL; feedforward or current-steering paths change the relation. A CMFB loop, when present, should be slower than the main loop and compensated at its own amplifier.`

// Dummy returns a deterministic canned answer that cites real inventory IDs
// from the request. It keeps smoke runs and the orchestrator tests fully
// offline.
type Dummy struct{}

// NewDummy builds the offline adapter.
func NewDummy() *Dummy { return &Dummy{} }

func (*Dummy) Name() string { return "dummy" }

func (*Dummy) Predict(_ context.Context, req Request) (string, error) {
	first, second := "M1", "CL"
	if len(req.InventoryIDs) > 0 {
		first = req.InventoryIDs[0]
	}
	if len(req.InventoryIDs) > 1 {
		second = req.InventoryIDs[1]
	}
	answer := fmt.Sprintf(dummyAnswer, first, second)
	// Echo required sections that the canned shape does not already carry,
	// so section gates in rubrics still pass.
	for _, sec := range req.RequireSections {
		if !strings.Contains(answer, "### "+sec) {
			answer += fmt.Sprintf("\n\n### %s\nCovered above; see [%s].", sec, first)
		}
	}
	return answer, nil
}
