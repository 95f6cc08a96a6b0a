package mutate

import (
	"math/rand"
	"strings"
)

// Options tunes the randomization distributions. The defaults preserve the
// intended shape (a rare heavy-tailed width draw plus a common narrow
// jitter); none of the literals are correctness requirements. Polarity is
// guessed from a model-name substring, so unusual netlists may misclassify
// and simply get the NMOS ranges.
type Options struct {
	// TailProbability is the chance a MOS width takes a log-uniform
	// heavy-tail draw instead of the narrow triangular jitter.
	TailProbability float64
	// TailSpanFactor is the upper end of the heavy-tail range as a multiple
	// of the original width.
	TailSpanFactor float64
	// CapJitter is the +/- fraction for uniform capacitor resampling.
	CapJitter float64
	// QuantStep is the quantization step as a fraction of the original
	// value's magnitude.
	QuantStep float64
}

// DefaultOptions returns the documented default tuning.
func DefaultOptions() Options {
	return Options{
		TailProbability: 0.18,
		TailSpanFactor:  50,
		CapJitter:       0.30,
		QuantStep:       0.05,
	}
}

type segKind int

const (
	segHeader segKind = iota
	segSubckt
	segDevice
	segFooter
)

// segment is one position class of a parsed netlist: header lines, a
// verbatim subckt...ends block, one device statement with its continuation
// lines, or footer lines.
type segment struct {
	kind  segKind
	lines []string
}

// parseNetlist splits text into position classes. Subcircuit blocks are kept
// verbatim; continuation lines stay attached to their parent statement;
// comments between devices attach to the statement that follows them.
func parseNetlist(text string) []segment {
	lines := strings.Split(text, "\n")

	var segs []segment
	var pending []string // comments/blanks waiting for the next statement
	inSubckt := 0
	seenBody := false

	flushPendingTo := func(kind segKind) {
		if len(pending) == 0 {
			return
		}
		if kind == segHeader || kind == segFooter {
			segs = append(segs, segment{kind: kind, lines: pending})
		}
		pending = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		switch {
		case inSubckt > 0:
			cur := &segs[len(segs)-1]
			cur.lines = append(cur.lines, line)
			if strings.HasPrefix(lower, ".ends") {
				inSubckt--
			} else if strings.HasPrefix(lower, ".subckt") {
				inSubckt++
			}

		case strings.HasPrefix(lower, ".subckt"):
			flushPendingTo(segHeader)
			seenBody = true
			segs = append(segs, segment{kind: segSubckt, lines: []string{line}})
			inSubckt = 1

		case trimmed == "" || strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, ";"):
			pending = append(pending, line)

		case strings.HasPrefix(trimmed, "."):
			// Directives before the first device/subckt are header
			// (.param, .include); afterwards they are footer (.backanno,
			// .end).
			if !seenBody {
				pending = append(pending, line)
				flushPendingTo(segHeader)
			} else {
				pending = append(pending, line)
				flushPendingTo(segFooter)
			}

		case strings.HasPrefix(trimmed, "+"):
			// Continuation of the previous statement.
			if n := len(segs); n > 0 && segs[n-1].kind == segDevice {
				segs[n-1].lines = append(segs[n-1].lines, line)
			} else {
				pending = append(pending, line)
			}

		default:
			// Device/source statement. Interior comments ride along with
			// the statement they precede so shuffling keeps them adjacent.
			seenBody = true
			stmt := append(pending, line)
			pending = nil
			segs = append(segs, segment{kind: segDevice, lines: stmt})
		}
	}
	flushPendingTo(segFooter)
	return segs
}

// RandomizeSpice applies seed-deterministic geometry jitter and top-level
// statement shuffling to a SPICE netlist. Subcircuit blocks pass through
// byte-identical and in their original relative order; headers stay first
// and footer lines last. Identical (text, seed, opts) always produce
// byte-identical output.
func RandomizeSpice(text string, seed int64, opts Options) string {
	r := rand.New(rand.NewSource(seed))
	segs := parseNetlist(text)

	var headers, subckts, footers []segment
	var devices []segment
	for _, s := range segs {
		switch s.kind {
		case segHeader:
			headers = append(headers, s)
		case segSubckt:
			subckts = append(subckts, s)
		case segDevice:
			devices = append(devices, s)
		case segFooter:
			footers = append(footers, s)
		}
	}

	// Jitter first (in original statement order), then shuffle, so the
	// random stream consumed per device does not depend on shuffle order.
	for i := range devices {
		jitterStatement(r, &devices[i], opts)
	}
	r.Shuffle(len(devices), func(i, j int) {
		devices[i], devices[j] = devices[j], devices[i]
	})

	var out []string
	for _, group := range [][]segment{headers, subckts, devices, footers} {
		for _, s := range group {
			out = append(out, s.lines...)
		}
	}
	return strings.Join(out, "\n")
}

// jitterStatement resamples W/L on MOS statements and values on capacitor
// statements. Statements it cannot parse pass through untouched.
func jitterStatement(r *rand.Rand, seg *segment, opts Options) {
	// Statement line is the last line of the segment's leading comments,
	// i.e. the first non-comment line.
	idx := -1
	for i, line := range seg.lines {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "*") || strings.HasPrefix(t, ";") || strings.HasPrefix(t, "+") {
			continue
		}
		idx = i
		break
	}
	if idx < 0 {
		return
	}
	line := seg.lines[idx]
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	name := strings.ToLower(fields[0])

	switch {
	case isMOSStatement(name, fields):
		pmos := strings.Contains(strings.ToLower(line), "pch") ||
			strings.Contains(strings.ToLower(line), "pfet") ||
			strings.Contains(strings.ToLower(line), "pmos")
		for i, f := range fields {
			upper := strings.ToUpper(f)
			switch {
			case strings.HasPrefix(upper, "W="):
				if v, ok := parseSpiceValue(f[2:]); ok {
					v.Num = resampleWidth(r, v.Num, pmos, opts)
					fields[i] = f[:2] + v.String()
				}
			case strings.HasPrefix(upper, "L="):
				if v, ok := parseSpiceValue(f[2:]); ok {
					v.Num = quantize(triangular(r, 0.9*v.Num, v.Num, 1.15*v.Num), opts.QuantStep*v.Num)
					fields[i] = f[:2] + v.String()
				}
			}
		}
		seg.lines[idx] = strings.Join(fields, " ")

	case strings.HasPrefix(name, "c"):
		// Last parseable token is the capacitor value.
		for i := len(fields) - 1; i >= 1; i-- {
			if v, ok := parseSpiceValue(fields[i]); ok {
				lo := (1 - opts.CapJitter) * v.Num
				hi := (1 + opts.CapJitter) * v.Num
				v.Num = quantize(lo+r.Float64()*(hi-lo), opts.QuantStep*v.Num)
				fields[i] = v.String()
				seg.lines[idx] = strings.Join(fields, " ")
				break
			}
		}
	}
}

// isMOSStatement reports whether a top-level statement is a 3-or-more
// terminal active device (M... or XM... with at least name + 3 nodes +
// model token).
func isMOSStatement(name string, fields []string) bool {
	if len(fields) < 5 {
		return false
	}
	return strings.HasPrefix(name, "m") || strings.HasPrefix(name, "xm")
}

// resampleWidth draws a new MOS width: occasionally a heavy-tailed
// log-uniform outlier, usually a narrow triangular jitter biased slightly
// high for NMOS and slightly low for PMOS.
func resampleWidth(r *rand.Rand, orig float64, pmos bool, opts Options) float64 {
	if orig <= 0 {
		return orig
	}
	var w float64
	if r.Float64() < opts.TailProbability {
		w = logUniform(r, 1.5*orig, opts.TailSpanFactor*orig)
	} else if pmos {
		w = triangular(r, 0.65*orig, 0.9*orig, 1.3*orig)
	} else {
		w = triangular(r, 0.7*orig, 1.1*orig, 1.4*orig)
	}
	return quantize(w, opts.QuantStep*orig)
}
