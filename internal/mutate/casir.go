package mutate

import (
	"regexp"
	"strings"
)

// casirGrammar finds polarity keywords inside the "type" strings of casIR
// motif objects. The site reported is the key of the nearest enclosing
// object, which in casIR is the motif's name.
type casirGrammar struct{}

var (
	casirTypeRe = regexp.MustCompile(`"type"\s*:\s*"([^"]*)"`)
	casirKeyRe  = regexp.MustCompile(`"([A-Za-z0-9_]+)"\s*:\s*\{`)
)

func (casirGrammar) Name() string { return "casIR" }

func (casirGrammar) Locate(text string) []Occurrence {
	var occs []Occurrence
	for _, m := range casirTypeRe.FindAllStringSubmatchIndex(text, -1) {
		valStart, valEnd := m[2], m[3]
		val := text[valStart:valEnd]
		lower := strings.ToLower(val)
		for _, kw := range polarityKeywords {
			i := strings.Index(lower, kw)
			if i < 0 {
				continue
			}
			occs = append(occs, Occurrence{
				Site:  nearestCasirKey(text, m[0]),
				Start: valStart + i,
				End:   valStart + i + len(kw),
				Token: val[i : i+len(kw)],
			})
			break
		}
	}
	return occs
}

// nearestCasirKey returns the object key most recently opened before pos.
func nearestCasirKey(text string, pos int) string {
	site := ""
	for _, m := range casirKeyRe.FindAllStringSubmatchIndex(text[:pos], -1) {
		site = text[m[2]:m[3]]
	}
	return site
}

func (casirGrammar) Swap(text string, occ Occurrence) string {
	return swapAt(text, occ)
}
