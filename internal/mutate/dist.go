package mutate

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// triangular samples a triangular distribution on [lo, hi] with the given
// mode via the inverse CDF.
func triangular(r *rand.Rand, lo, mode, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	u := r.Float64()
	c := (mode - lo) / (hi - lo)
	if u < c {
		return lo + math.Sqrt(u*(hi-lo)*(mode-lo))
	}
	return hi - math.Sqrt((1-u)*(hi-lo)*(hi-mode))
}

// logUniform samples log-uniformly on [lo, hi]; used for the rare
// heavy-tailed width draws.
func logUniform(r *rand.Rand, lo, hi float64) float64 {
	if lo <= 0 || hi <= lo {
		return lo
	}
	u := r.Float64()
	return math.Exp(math.Log(lo) + u*(math.Log(hi)-math.Log(lo)))
}

// quantize rounds v to the nearest multiple of step so resampled values do
// not come out as arbitrary-precision floats.
func quantize(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Round(v/step) * step
}

// spiceValue is a numeric literal in suffix-unit convention: "10u" parses to
// {10, "u"} and is resampled in suffix units so the original unit survives.
type spiceValue struct {
	Num    float64
	Suffix string
}

// parseSpiceValue splits a token like "0.18u", "5p" or "2.2Meg" into number
// and trailing unit suffix. Tokens without a leading number (parameter
// references such as "W1" or "R") do not parse.
func parseSpiceValue(tok string) (spiceValue, bool) {
	i := 0
	seenDigit := false
	for i < len(tok) {
		c := tok[i]
		if c >= '0' && c <= '9' {
			seenDigit = true
			i++
			continue
		}
		if c == '.' || c == '+' || c == '-' {
			i++
			continue
		}
		// Exponent only counts when followed by a digit; otherwise it is
		// the start of a unit suffix ("1e3" vs "10u").
		if (c == 'e' || c == 'E') && i+1 < len(tok) {
			next := tok[i+1]
			if next >= '0' && next <= '9' || next == '+' || next == '-' {
				i += 2
				continue
			}
		}
		break
	}
	if !seenDigit {
		return spiceValue{}, false
	}
	num, err := strconv.ParseFloat(tok[:i], 64)
	if err != nil {
		return spiceValue{}, false
	}
	suffix := tok[i:]
	for _, c := range suffix {
		if !isLetter(byte(c)) {
			return spiceValue{}, false
		}
	}
	return spiceValue{Num: num, Suffix: suffix}, true
}

// String re-renders the value with the original suffix, trimming float noise.
func (v spiceValue) String() string {
	s := strconv.FormatFloat(v.Num, 'f', 4, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s + v.Suffix
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
