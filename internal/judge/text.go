// Package judge scores model answers in two stages: a deterministic rubric
// pass (patterns, grounding, hallucination penalty) and an optional anchored
// LLM judge whose verdict is blended in by the orchestrator.
package judge

import (
	"regexp"
	"strings"
)

var (
	// codeIDRe captures inline-code citations like `M1` or `nets/vout`.
	codeIDRe = regexp.MustCompile("`([A-Za-z0-9_./-]+)`")
	// tokenIDRe captures bare short device/net tokens the answers use when
	// they skip the backticks.
	tokenIDRe = regexp.MustCompile(`\b([A-Za-z]{1,4}[0-9]{1,3}|CMFB|CL|Cc|VDD|VSS|GND|vinp|vinn|vout)\b`)
)

// ExtractCitations returns every id-like token cited in the answer,
// deduplicated in first-seen order.
func ExtractCitations(answer string) []string {
	var ids []string
	for _, m := range codeIDRe.FindAllStringSubmatch(answer, -1) {
		ids = append(ids, m[1])
	}
	for _, m := range tokenIDRe.FindAllStringSubmatch(answer, -1) {
		ids = append(ids, m[1])
	}
	seen := make(map[string]bool, len(ids))
	uniq := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	return uniq
}

// Section is one markdown section: lowercased header text plus body.
type Section struct {
	Name string
	Body string
}

var headerPrefixRe = regexp.MustCompile(`^#+\s*`)

// Sections splits an answer on markdown headers. Text before the first
// header is not part of any section.
func Sections(answer string) []Section {
	var parts []Section
	name := ""
	started := false
	var buf []string
	flush := func() {
		if started {
			parts = append(parts, Section{Name: name, Body: strings.TrimSpace(strings.Join(buf, "\n"))})
		}
	}
	for _, line := range strings.Split(answer, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			flush()
			name = strings.ToLower(strings.TrimSpace(headerPrefixRe.ReplaceAllString(strings.TrimSpace(line), "")))
			started = true
			buf = nil
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return parts
}

// SectionBody returns the body of the named section (case-insensitive) and
// whether it exists.
func SectionBody(answer, name string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, s := range Sections(answer) {
		if s.Name == want {
			return s.Body, true
		}
	}
	return "", false
}

// ContainsAny reports whether any pattern occurs in text,
// case-insensitively. Patterns are literal substrings, not regexes.
func ContainsAny(text string, patterns []string) bool {
	return CountAny(text, patterns) > 0
}

// CountAny counts how many of the patterns occur in text.
func CountAny(text string, patterns []string) int {
	t := strings.ToLower(text)
	n := 0
	for _, p := range patterns {
		if p != "" && strings.Contains(t, strings.ToLower(p)) {
			n++
		}
	}
	return n
}

// ContainsAll reports whether every pattern occurs in text.
func ContainsAll(text string, patterns []string) bool {
	return CountAny(text, patterns) == len(patterns)
}

// EstimateTokens approximates the token cost of a payload for rate
// accounting. The factor tracks typical tokenizer density for English plus
// netlist text.
func EstimateTokens(text string) float64 {
	return float64(len(text)) / 4
}
