package mutate

import (
	"strings"
	"testing"
)

const sampleNetlist = `* two-stage OTA
.param vdd=1.8
.subckt opamp in_n in_p out
M10 out in_n VDD VSS nch W=1u L=0.18u
M11 out in_p VDD VSS nch W=1u L=0.18u
.ends opamp
M1 d g s b nch W=10u L=1u
M2 d2 g2 s2 b2 pch W=20u L=1u
XU1 S_in 0 S_out opamp
+ Aol=100K GBW=10Meg
C1 out 0 2p
R1 S_out S_in 10k
.backanno
.end`

func TestRandomizeSpice_Deterministic(t *testing.T) {
	a := RandomizeSpice(sampleNetlist, 42, DefaultOptions())
	b := RandomizeSpice(sampleNetlist, 42, DefaultOptions())
	if a != b {
		t.Fatalf("same seed must give byte-identical output:\n%s\n----\n%s", a, b)
	}
	c := RandomizeSpice(sampleNetlist, 43, DefaultOptions())
	if a == c {
		t.Error("different seeds should give different output")
	}
}

func TestRandomizeSpice_SubcktBlocksIntact(t *testing.T) {
	out := RandomizeSpice(sampleNetlist, 42, DefaultOptions())

	want := `.subckt opamp in_n in_p out
M10 out in_n VDD VSS nch W=1u L=0.18u
M11 out in_p VDD VSS nch W=1u L=0.18u
.ends opamp`
	if !strings.Contains(out, want) {
		t.Fatalf("subckt block must pass through byte-identical, got:\n%s", out)
	}

	// Subcircuits come before any top-level device statement.
	endsIdx := strings.Index(out, ".ends")
	devIdx := strings.Index(out, "\nM1 ")
	if devIdx < 0 {
		devIdx = strings.Index(out, "\nM2 ")
	}
	if devIdx >= 0 && endsIdx > devIdx {
		t.Errorf("subckt block must precede devices:\n%s", out)
	}
}

func TestRandomizeSpice_MultipleSubcktsKeepOrder(t *testing.T) {
	netlist := `* bias and gain blocks
.subckt bias vref out
M20 out vref VDD VDD pch W=2u L=1u
.ends bias
.subckt gain in out
M30 out in 0 0 nch W=4u L=0.5u
.ends gain
M1 d g s b nch W=10u L=1u
C1 out 0 2p
.end`

	blockA := `.subckt bias vref out
M20 out vref VDD VDD pch W=2u L=1u
.ends bias`
	blockB := `.subckt gain in out
M30 out in 0 0 nch W=4u L=0.5u
.ends gain`

	for seed := int64(1); seed <= 10; seed++ {
		out := RandomizeSpice(netlist, seed, DefaultOptions())
		ia := strings.Index(out, blockA)
		ib := strings.Index(out, blockB)
		if ia < 0 || ib < 0 {
			t.Fatalf("seed %d: subckt blocks must pass through byte-identical:\n%s", seed, out)
		}
		if ia > ib {
			t.Errorf("seed %d: subckt blocks reordered:\n%s", seed, out)
		}
		if dev := strings.Index(out, "\nM1 "); dev >= 0 && dev < ib {
			t.Errorf("seed %d: devices must follow every subckt block:\n%s", seed, out)
		}
	}
}

func TestRandomizeSpice_ContinuationsStayAttached(t *testing.T) {
	out := RandomizeSpice(sampleNetlist, 7, DefaultOptions())
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "XU1") {
			if i+1 >= len(lines) || !strings.HasPrefix(strings.TrimSpace(lines[i+1]), "+") {
				t.Fatalf("continuation must follow its statement:\n%s", out)
			}
			return
		}
	}
	t.Fatalf("XU1 statement missing from output:\n%s", out)
}

func TestRandomizeSpice_HeaderAndFooterAnchored(t *testing.T) {
	out := RandomizeSpice(sampleNetlist, 99, DefaultOptions())
	lines := strings.Split(out, "\n")
	if lines[0] != "* two-stage OTA" {
		t.Errorf("header comment must stay first, got %q", lines[0])
	}
	if last := lines[len(lines)-1]; last != ".end" {
		t.Errorf(".end must stay last, got %q", last)
	}
	if !strings.Contains(out, ".param vdd=1.8") {
		t.Error("header directive dropped")
	}
}

func TestRandomizeSpice_GeometryWithinRanges(t *testing.T) {
	opts := DefaultOptions()
	for seed := int64(1); seed <= 20; seed++ {
		out := RandomizeSpice("M1 d g s b nch W=10u L=1u", seed, opts)
		fields := strings.Fields(out)
		var w, l spiceValue
		for _, f := range fields {
			if strings.HasPrefix(f, "W=") {
				v, ok := parseSpiceValue(f[2:])
				if !ok {
					t.Fatalf("seed %d: unparseable width %q", seed, f)
				}
				w = v
			}
			if strings.HasPrefix(f, "L=") {
				v, ok := parseSpiceValue(f[2:])
				if !ok {
					t.Fatalf("seed %d: unparseable length %q", seed, f)
				}
				l = v
			}
		}
		if w.Suffix != "u" || l.Suffix != "u" {
			t.Fatalf("seed %d: unit suffixes must survive, got W=%q L=%q", seed, w.Suffix, l.Suffix)
		}
		// Width is either the narrow jitter band or the heavy tail.
		if w.Num < 0.6*10 || w.Num > opts.TailSpanFactor*10 {
			t.Errorf("seed %d: width %v outside any sampling range", seed, w.Num)
		}
		if l.Num < 0.85 || l.Num > 1.2 {
			t.Errorf("seed %d: length %v outside jitter band", seed, l.Num)
		}
	}
}

func TestRandomizeSpice_CapacitorJitterBounded(t *testing.T) {
	opts := DefaultOptions()
	for seed := int64(1); seed <= 20; seed++ {
		out := RandomizeSpice("C1 out 0 2p", seed, opts)
		fields := strings.Fields(out)
		v, ok := parseSpiceValue(fields[len(fields)-1])
		if !ok {
			t.Fatalf("seed %d: unparseable cap value in %q", seed, out)
		}
		if v.Suffix != "p" {
			t.Fatalf("seed %d: cap suffix lost, got %q", seed, v.Suffix)
		}
		if v.Num < 2*(1-opts.CapJitter)-0.1 || v.Num > 2*(1+opts.CapJitter)+0.1 {
			t.Errorf("seed %d: cap value %v outside jitter band", seed, v.Num)
		}
	}
}

func TestParseSpiceValue(t *testing.T) {
	cases := []struct {
		tok    string
		ok     bool
		num    float64
		suffix string
	}{
		{"10u", true, 10, "u"},
		{"0.18u", true, 0.18, "u"},
		{"2.2Meg", true, 2.2, "Meg"},
		{"1e3", true, 1000, ""},
		{"5", true, 5, ""},
		{"W1", false, 0, ""},
		{"R", false, 0, ""},
		{"10k2x=", false, 0, ""},
	}
	for _, c := range cases {
		v, ok := parseSpiceValue(c.tok)
		if ok != c.ok {
			t.Errorf("parseSpiceValue(%q) ok=%v, want %v", c.tok, ok, c.ok)
			continue
		}
		if ok && (v.Num != c.num || v.Suffix != c.suffix) {
			t.Errorf("parseSpiceValue(%q) = %v/%q, want %v/%q", c.tok, v.Num, v.Suffix, c.num, c.suffix)
		}
	}
}

func TestDeriveSeed_PurposesDisjoint(t *testing.T) {
	a := DeriveSeed(1234, "ota_5t", "q1", "randomize")
	b := DeriveSeed(1234, "ota_5t", "q1", "bug")
	if a == b {
		t.Error("randomize and bug streams must not share a seed")
	}
	if a != DeriveSeed(1234, "ota_5t", "q1", "randomize") {
		t.Error("seed derivation must be stable")
	}
}

func TestInjectFault_Spice(t *testing.T) {
	netlist := "M1 d g s b nch W=10u L=1u\nR1 out 0 10k"
	out, desc, err := InjectFault(netlist, "spice_netlist", 42)
	if err != nil {
		t.Fatal(err)
	}
	if desc == nil {
		t.Fatal("expected a fault descriptor")
	}
	if desc.Grammar != "spice_netlist" || desc.Site != "M1" || desc.Before != "nch" || desc.After != "pch" {
		t.Errorf("descriptor = %+v", desc)
	}
	if out != "M1 d g s b pch W=10u L=1u\nR1 out 0 10k" {
		t.Errorf("swap must touch only the model token:\n%s", out)
	}

	again, _, _ := InjectFault(netlist, "spice_netlist", 42)
	if again != out {
		t.Error("fault injection must be deterministic per seed")
	}
}

func TestInjectFault_SpiceSkipsCommentsAndDirectives(t *testing.T) {
	netlist := "* bias uses nch everywhere\n.model nch nmos level=1\nR1 a b 1k"
	out, desc, err := InjectFault(netlist, "spice_netlist", 1)
	if err != nil {
		t.Fatal(err)
	}
	if desc != nil {
		t.Fatalf("comments and directives are not eligible, got %+v", desc)
	}
	if out != netlist {
		t.Error("text with no eligible sites must pass through unchanged")
	}
}

func TestInjectFault_CasePreserved(t *testing.T) {
	out, desc, err := InjectFault("M1 d g s b NCH W=1u L=1u", "spice_netlist", 3)
	if err != nil {
		t.Fatal(err)
	}
	if desc == nil || desc.After != "PCH" {
		t.Fatalf("case pattern must carry over, got %+v", desc)
	}
	if !strings.Contains(out, " PCH ") {
		t.Errorf("output missing swapped token:\n%s", out)
	}
}

func TestInjectFault_CasIR(t *testing.T) {
	ir := `{
  "motifs": {
    "diff_pair": { "type": "nmos_diff_pair", "nets": ["vinp", "vinn"] },
    "load": { "type": "current_mirror", "nets": ["vout"] }
  }
}`
	out, desc, err := InjectFault(ir, "casIR", 11)
	if err != nil {
		t.Fatal(err)
	}
	if desc == nil {
		t.Fatal("expected a fault descriptor")
	}
	if desc.Grammar != "casIR" || desc.Site != "diff_pair" || desc.Before != "nmos" || desc.After != "pmos" {
		t.Errorf("descriptor = %+v", desc)
	}
	if !strings.Contains(out, `"type": "pmos_diff_pair"`) {
		t.Errorf("type string not swapped:\n%s", out)
	}
	if !strings.Contains(out, `"current_mirror"`) {
		t.Error("unrelated motif must stay untouched")
	}
}

func TestInjectFault_Cascode(t *testing.T) {
	script := `# input stage uses an nch pair
stage = diff_pair(m_in_nch)
out = mirror(stage)`
	mutated, desc, err := InjectFault(script, "cascode", 5)
	if err != nil {
		t.Fatal(err)
	}
	if desc == nil {
		t.Fatal("expected a fault descriptor")
	}
	if desc.Grammar != "cascode" || desc.Site != "m_in_nch" || desc.After != "pch" {
		t.Errorf("descriptor = %+v", desc)
	}
	if !strings.Contains(mutated, "diff_pair(m_in_pch)") {
		t.Errorf("identifier not swapped:\n%s", mutated)
	}
	if !strings.Contains(mutated, "# input stage uses an nch pair") {
		t.Error("comments must never be mutated")
	}
}

func TestInjectFault_CascodeIgnoresStrings(t *testing.T) {
	script := `label = "the nch mirror"
out = mirror(label)`
	mutated, desc, err := InjectFault(script, "cascode", 2)
	if err != nil {
		t.Fatal(err)
	}
	if desc != nil {
		t.Fatalf("string literals are prose, got %+v", desc)
	}
	if mutated != script {
		t.Error("text with no eligible sites must pass through unchanged")
	}
}

func TestInjectFault_UnknownModality(t *testing.T) {
	if _, _, err := InjectFault("x", "verilog", 1); err == nil {
		t.Fatal("unknown modality must error")
	}
}
