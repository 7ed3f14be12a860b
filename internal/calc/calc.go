// Package calc evaluates the small arithmetic language typed into the search
// bar: numbers, + - * / **, parentheses and thousands separators.
package calc

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrInvalid   = errors.New("invalid expression")
	ErrNotFinite = errors.New("result is not a finite number")
)

const maxDepth = 200

// Evaluate computes expr. Commas are dropped before parsing so "1,000 + 5"
// is 1005.
func Evaluate(expr string) (float64, error) {
	p := &parser{src: strings.ReplaceAll(expr, ",", "")}

	p.skipSpace()
	if p.eof() {
		return 0, fmt.Errorf("%w: empty", ErrInvalid)
	}

	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if !p.eof() {
		return 0, fmt.Errorf("%w: unexpected %q at %d", ErrInvalid, p.src[p.pos], p.pos)
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotFinite
	}
	return v, nil
}

// Format renders v the way it is spoken back: integers without a fraction,
// everything else with the shortest exact representation.
func Format(v float64) string {
	if v == 0 {
		return "0"
	}
	abs := math.Abs(v)
	if abs >= 1e21 || abs < 1e-6 {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type parser struct {
	src   string
	pos   int
	depth int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

// expr := term (('+' | '-') term)*
func (p *parser) expr() (float64, error) {
	left, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.term()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

// term := unary (('*' | '/') unary)*
func (p *parser) term() (float64, error) {
	left, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		if op == '*' && strings.HasPrefix(p.src[p.pos:], "**") {
			return left, nil
		}
		p.pos++
		right, err := p.unary()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
		} else {
			left /= right
		}
	}
}

// unary := ('+' | '-') unary | power
func (p *parser) unary() (float64, error) {
	p.skipSpace()
	switch p.peek() {
	case '-', '+':
		op := p.peek()
		p.pos++
		if err := p.enter(); err != nil {
			return 0, err
		}
		v, err := p.unary()
		p.depth--
		if err != nil {
			return 0, err
		}
		if op == '-' {
			return -v, nil
		}
		return v, nil
	}
	return p.power()
}

// power := primary ('**' unary)?
func (p *parser) power() (float64, error) {
	base, err := p.primary()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if !strings.HasPrefix(p.src[p.pos:], "**") {
		return base, nil
	}
	p.pos += 2
	if err := p.enter(); err != nil {
		return 0, err
	}
	exp, err := p.unary()
	p.depth--
	if err != nil {
		return 0, err
	}
	return math.Pow(base, exp), nil
}

// primary := number | '(' expr ')'
func (p *parser) primary() (float64, error) {
	p.skipSpace()
	if p.eof() {
		return 0, fmt.Errorf("%w: unexpected end", ErrInvalid)
	}

	if p.peek() == '(' {
		p.pos++
		if err := p.enter(); err != nil {
			return 0, err
		}
		v, err := p.expr()
		p.depth--
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return 0, fmt.Errorf("%w: missing )", ErrInvalid)
		}
		p.pos++
		return v, nil
	}

	return p.number()
}

func (p *parser) number() (float64, error) {
	start := p.pos
	digits := 0
	for !p.eof() && isDigit(p.peek()) {
		p.pos++
		digits++
	}
	if p.peek() == '.' {
		p.pos++
		for !p.eof() && isDigit(p.peek()) {
			p.pos++
			digits++
		}
	}
	if digits == 0 {
		p.pos = start
		if p.eof() {
			return 0, fmt.Errorf("%w: unexpected end", ErrInvalid)
		}
		return 0, fmt.Errorf("%w: unexpected %q at %d", ErrInvalid, p.src[start], start)
	}

	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return v, nil
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return fmt.Errorf("%w: nested too deeply", ErrInvalid)
	}
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
