package judge

import "circuitbench/internal/dataset"

// Groundedness classifies an answer's citations against the item inventory.
type Groundedness struct {
	Cited         []string `json:"cited"`
	TruePositive  []string `json:"true_positive"`
	FalsePositive []string `json:"false_positive"`
	Ratio         float64  `json:"ratio"`
}

// Ground resolves every cited id against the inventory allow-list, aliases
// included. The ratio denominator is clamped so an answer with no citations
// scores 0, not NaN.
func Ground(answer string, inv *dataset.Inventory) Groundedness {
	alias := inv.AliasMap()
	cited := ExtractCitations(answer)
	g := Groundedness{Cited: cited}
	for _, c := range cited {
		if _, ok := alias[c]; ok {
			g.TruePositive = append(g.TruePositive, c)
		} else {
			g.FalsePositive = append(g.FalsePositive, c)
		}
	}
	denom := len(cited)
	if denom == 0 {
		denom = 1
	}
	g.Ratio = float64(len(g.TruePositive)) / float64(denom)
	return g
}
