package mutate

import (
	"fmt"
	"math/rand"
	"strings"
	"unicode"
)

// FaultDescriptor records the single polarity fault injected into an
// artifact, in the vocabulary the grader and reports use.
type FaultDescriptor struct {
	Grammar string `json:"grammar"`
	Site    string `json:"site"`
	Before  string `json:"before"`
	After   string `json:"after"`
}

// Occurrence is one eligible polarity token found by a grammar. Start and
// End are byte offsets of exactly the polarity keyword within the artifact
// text, so swapping never touches surrounding syntax.
type Occurrence struct {
	Site  string
	Start int
	End   int
	Token string
}

// Grammar locates eligible polarity tokens in one artifact syntax and swaps
// a chosen one. Implementations must be stateless.
type Grammar interface {
	Name() string
	Locate(text string) []Occurrence
	Swap(text string, occ Occurrence) string
}

// polarityKeywords is the scan order for substring matches; a fixed order
// keeps Locate deterministic.
var polarityKeywords = []string{"nch", "pch", "nmos", "pmos", "nfet", "pfet"}

// polarityPairs maps each lowercase polarity keyword to its opposite.
var polarityPairs = map[string]string{
	"nch":  "pch",
	"pch":  "nch",
	"nmos": "pmos",
	"pmos": "nmos",
	"nfet": "pfet",
	"pfet": "nfet",
}

// flipPolarity returns the opposite-polarity token with tok's case pattern
// carried over rune by rune ("NCH" to "PCH", "Nmos" to "Pmos").
func flipPolarity(tok string) (string, bool) {
	opp, ok := polarityPairs[strings.ToLower(tok)]
	if !ok {
		return "", false
	}
	runes := []rune(opp)
	for i, c := range tok {
		if i >= len(runes) {
			break
		}
		if unicode.IsUpper(c) {
			runes[i] = unicode.ToUpper(runes[i])
		}
	}
	return string(runes), true
}

// swapAt replaces the occurrence's byte range with the flipped token. Shared
// by all grammars since Locate pins the exact keyword span.
func swapAt(text string, occ Occurrence) string {
	flipped, ok := flipPolarity(occ.Token)
	if !ok {
		return text
	}
	return text[:occ.Start] + flipped + text[occ.End:]
}

// grammarFor maps a question modality to its artifact grammar.
func grammarFor(modality string) (Grammar, error) {
	switch modality {
	case "spice_netlist":
		return spiceGrammar{}, nil
	case "casIR":
		return casirGrammar{}, nil
	case "cascode":
		return cascodeGrammar{}, nil
	default:
		return nil, fmt.Errorf("mutate: no fault grammar for modality %q", modality)
	}
}

// InjectFault flips the polarity of exactly one device/motif chosen
// uniformly by seed. An artifact with no eligible occurrences is returned
// unchanged with a nil descriptor; that is a valid outcome, not an error.
func InjectFault(text, modality string, seed int64) (string, *FaultDescriptor, error) {
	g, err := grammarFor(modality)
	if err != nil {
		return text, nil, err
	}
	occs := g.Locate(text)
	if len(occs) == 0 {
		return text, nil, nil
	}
	r := rand.New(rand.NewSource(seed))
	occ := occs[r.Intn(len(occs))]
	flipped, ok := flipPolarity(occ.Token)
	if !ok {
		return text, nil, nil
	}
	return g.Swap(text, occ), &FaultDescriptor{
		Grammar: g.Name(),
		Site:    occ.Site,
		Before:  occ.Token,
		After:   flipped,
	}, nil
}
