package judge

import (
	"math"
	"testing"
)

func TestEvalArith(t *testing.T) {
	cases := []struct {
		expr string
		want float64
		ok   bool
	}{
		{"1+2", 3, true},
		{"2 * (3 + 4)", 14, true},
		{"10 / 4", 2.5, true},
		{"-3 + 1", -2, true},
		{"1.5 * 2", 3, true},
		{"(1 + 2) * (3 - 1)", 6, true},
		{"1 / 0", 0, false},
		{"1 / (2 - 2)", 0, false},
		{"gm / CL", 0, false},
		{"exp(1)", 0, false},
		{"1 + ", 0, false},
		{"(1 + 2", 0, false},
		{"1 ** 2", 0, false},
		{"", 0, false},
		{"2; 3", 0, false},
	}
	for _, c := range cases {
		got, ok := EvalArith(c.expr)
		if ok != c.ok {
			t.Errorf("EvalArith(%q) ok=%v, want %v", c.expr, ok, c.ok)
			continue
		}
		if ok && math.Abs(got-c.want) > 1e-9 {
			t.Errorf("EvalArith(%q) = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestSubstituteCalc(t *testing.T) {
	in := "GBW target is {calc:100/4} MHz, phase margin {calc:45+15} deg, bad {calc:gm/CL}."
	want := "GBW target is 25 MHz, phase margin 60 deg, bad {calc:gm/CL}."
	if got := SubstituteCalc(in); got != want {
		t.Errorf("SubstituteCalc = %q, want %q", got, want)
	}
}
