package judge

import (
	"regexp"
	"strconv"
	"strings"
)

// EvalArith evaluates a plain arithmetic expression: numeric literals, the
// four operators, unary sign and parentheses. Anything else (identifiers,
// function calls, division by zero, unbalanced parens) returns (0, false).
// The whitelist matters: expressions come from judge instruction documents
// and must never reach a general evaluator.
func EvalArith(expr string) (float64, bool) {
	p := &arithParser{src: expr}
	v, ok := p.parseExpr()
	if !ok {
		return 0, false
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return 0, false
	}
	return v, true
}

type arithParser struct {
	src string
	pos int
}

func (p *arithParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *arithParser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *arithParser) parseExpr() (float64, bool) {
	v, ok := p.parseTerm()
	if !ok {
		return 0, false
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '+':
			p.pos++
			rhs, ok := p.parseTerm()
			if !ok {
				return 0, false
			}
			v += rhs
		case '-':
			p.pos++
			rhs, ok := p.parseTerm()
			if !ok {
				return 0, false
			}
			v -= rhs
		default:
			return v, true
		}
	}
}

func (p *arithParser) parseTerm() (float64, bool) {
	v, ok := p.parseFactor()
	if !ok {
		return 0, false
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '*':
			p.pos++
			rhs, ok := p.parseFactor()
			if !ok {
				return 0, false
			}
			v *= rhs
		case '/':
			p.pos++
			rhs, ok := p.parseFactor()
			if !ok || rhs == 0 {
				return 0, false
			}
			v /= rhs
		default:
			return v, true
		}
	}
}

func (p *arithParser) parseFactor() (float64, bool) {
	p.skipSpace()
	switch p.peek() {
	case '(':
		p.pos++
		v, ok := p.parseExpr()
		if !ok {
			return 0, false
		}
		p.skipSpace()
		if p.peek() != ')' {
			return 0, false
		}
		p.pos++
		return v, true
	case '-':
		p.pos++
		v, ok := p.parseFactor()
		return -v, ok
	case '+':
		p.pos++
		return p.parseFactor()
	}
	return p.parseNumber()
}

func (p *arithParser) parseNumber() (float64, bool) {
	start := p.pos
	seenDigit := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c >= '0' && c <= '9' {
			seenDigit = true
			p.pos++
			continue
		}
		if c == '.' {
			p.pos++
			continue
		}
		break
	}
	if !seenDigit {
		return 0, false
	}
	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var calcRe = regexp.MustCompile(`\{calc:([^}]*)\}`)

// SubstituteCalc replaces {calc:expr} placeholders with their evaluated
// value. Placeholders that do not evaluate are left verbatim so the judge
// sees what failed instead of an empty hole.
func SubstituteCalc(text string) string {
	return calcRe.ReplaceAllStringFunc(text, func(m string) string {
		expr := calcRe.FindStringSubmatch(m)[1]
		v, ok := EvalArith(expr)
		if !ok {
			return m
		}
		s := strconv.FormatFloat(v, 'f', 6, 64)
		if strings.Contains(s, ".") {
			s = strings.TrimRight(s, "0")
			s = strings.TrimSuffix(s, ".")
		}
		return s
	})
}
