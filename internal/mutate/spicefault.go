package mutate

import "strings"

// spiceGrammar finds MOS model tokens on SPICE device statements. Comments,
// directives and continuation lines are never eligible; the model token must
// be exactly a polarity keyword.
type spiceGrammar struct{}

func (spiceGrammar) Name() string { return "spice_netlist" }

func (spiceGrammar) Locate(text string) []Occurrence {
	var occs []Occurrence
	offset := 0
	for _, line := range strings.Split(text, "\n") {
		lineStart := offset
		offset += len(line) + 1

		trimmed := strings.TrimSpace(line)
		if trimmed == "" ||
			strings.HasPrefix(trimmed, "*") ||
			strings.HasPrefix(trimmed, ";") ||
			strings.HasPrefix(trimmed, ".") ||
			strings.HasPrefix(trimmed, "+") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		// Model token is the first polarity-keyword field after the device
		// name; node names never collide because they are net identifiers.
		pos := 0
		for i, f := range fields {
			start := strings.Index(line[pos:], f) + pos
			pos = start + len(f)
			if i == 0 {
				continue
			}
			if _, ok := polarityPairs[strings.ToLower(f)]; ok {
				occs = append(occs, Occurrence{
					Site:  fields[0],
					Start: lineStart + start,
					End:   lineStart + start + len(f),
					Token: f,
				})
				break
			}
		}
	}
	return occs
}

func (spiceGrammar) Swap(text string, occ Occurrence) string {
	return swapAt(text, occ)
}
