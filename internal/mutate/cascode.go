package mutate

import (
	"regexp"
	"strings"
)

// cascodeGrammar finds polarity-suffixed identifiers in cascode scripts.
// Only identifiers in live code are eligible: comments and string literals
// are prose and must never be mutated, and the identifier has to appear in a
// construction, attachment or assignment statement rather than bare text.
type cascodeGrammar struct{}

var cascodeIdentRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

func (cascodeGrammar) Name() string { return "cascode" }

func (cascodeGrammar) Locate(text string) []Occurrence {
	var occs []Occurrence
	offset := 0
	for _, line := range strings.Split(text, "\n") {
		lineStart := offset
		offset += len(line) + 1

		code, quoted := cascodeCode(line)
		if !isCascodeStatement(code) {
			continue
		}
		for _, m := range cascodeIdentRe.FindAllStringIndex(code, -1) {
			if quoted[m[0]] {
				continue
			}
			ident := code[m[0]:m[1]]
			kw, kwStart := polaritySuffix(ident)
			if kw == "" {
				continue
			}
			occs = append(occs, Occurrence{
				Site:  ident,
				Start: lineStart + m[0] + kwStart,
				End:   lineStart + m[1],
				Token: ident[kwStart:],
			})
		}
	}
	return occs
}

// cascodeCode strips the trailing comment from a line and marks which bytes
// sit inside string literals. Comment markers inside strings do not count.
func cascodeCode(line string) (string, []bool) {
	quoted := make([]bool, len(line))
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			quoted[i] = true
			if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '"' || c == '\'':
			quote = c
			quoted[i] = true
		case c == '#':
			return line[:i], quoted[:i]
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return line[:i], quoted[:i]
		}
	}
	return line, quoted
}

// isCascodeStatement reports whether the code portion of a line is a
// construction/attachment/assignment statement.
func isCascodeStatement(code string) bool {
	t := strings.TrimSpace(code)
	if t == "" {
		return false
	}
	return strings.Contains(t, "=") || strings.Contains(t, "(")
}

// polaritySuffix returns the polarity keyword the identifier ends with and
// the byte offset where it starts, or "" when there is none.
func polaritySuffix(ident string) (string, int) {
	lower := strings.ToLower(ident)
	for _, kw := range polarityKeywords {
		if strings.HasSuffix(lower, kw) {
			return kw, len(ident) - len(kw)
		}
	}
	return "", 0
}

func (cascodeGrammar) Swap(text string, occ Occurrence) string {
	return swapAt(text, occ)
}
