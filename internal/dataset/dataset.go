// Package dataset discovers evaluation items and loads their inventories and
// questions. An item directory holds inventory.json (the allow-list of
// citable identifiers) and questions.jsonl (one question per line).
package dataset

import (
	"sort"
)

// Element is one named circuit element in an item inventory.
type Element struct {
	Type    string   `json:"type"`
	Role    string   `json:"role,omitempty"`
	Nets    []string `json:"nets,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
}

// Inventory is the allow-list of citable element, net and block identifiers
// for one evaluation item. Read-only during evaluation.
type Inventory struct {
	Elements map[string]Element        `json:"elements"`
	Nets     []string                  `json:"nets"`
	Blocks   map[string]map[string]any `json:"blocks"`
}

// AllIDs returns the sorted, de-duplicated set of citable identifiers.
func (inv *Inventory) AllIDs() []string {
	seen := make(map[string]struct{})
	for k := range inv.Elements {
		seen[k] = struct{}{}
	}
	for k := range inv.Blocks {
		seen[k] = struct{}{}
	}
	for _, n := range inv.Nets {
		seen[n] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AliasMap maps every alias (and every canonical name) to its canonical id.
func (inv *Inventory) AliasMap() map[string]string {
	amap := make(map[string]string)
	for k, el := range inv.Elements {
		amap[k] = k
		for _, a := range el.Aliases {
			amap[a] = k
		}
	}
	for b := range inv.Blocks {
		amap[b] = b
	}
	for _, n := range inv.Nets {
		amap[n] = n
	}
	return amap
}

// Question is one evaluation question attached to an item.
type Question struct {
	ID              string         `json:"id"`
	Track           string         `json:"track"`
	Modality        string         `json:"modality"`
	ArtifactPath    string         `json:"artifact_path"`
	PromptTemplate  string         `json:"prompt_template"`
	JudgePrompt     string         `json:"judge_prompt"`
	RequireSections []string       `json:"require_sections"`
	AnswerFormat    string         `json:"answer_format"`
	RubricID        string         `json:"rubric_id"`
	Meta            map[string]any `json:"meta,omitempty"`
}

// InjectBug reports whether this question calls for single-fault injection
// on its artifact. Debugging-track questions inject by default; the
// "inject_bug" meta key overrides either way.
func (q *Question) InjectBug() bool {
	if v, ok := q.Meta["inject_bug"]; ok {
		b, _ := v.(bool)
		return b
	}
	return q.Track == "debugging"
}

// Item is one discovered evaluation item: a directory with an inventory and
// its questions.
type Item struct {
	Dir       string
	ID        string
	Family    string
	Inventory Inventory
	Questions []Question
}
