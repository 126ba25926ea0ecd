package rule

import (
	"fmt"
	"strconv"
)

// parser is a recursive-descent parser for the grammar:
//
//	expr    := and { "or" and }
//	and     := unary { "and" unary }
//	unary   := "not" unary | primary
//	primary := "(" expr ")" | cross | trend | comparison
//	cross   := LAYER "cross" "from" SIGNUM "to" SIGNUM
//	trend   := "histogram" ("rising" | "falling")
//	compare := operand OP operand
//	operand := NUMBER | IDENT
type parser struct {
	toks []token
	pos  int
}

func parse(input string) (node, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("position %d: unexpected %q after expression", p.peek().pos, p.peek().text)
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }
func (p *parser) next() token { t := p.toks[p.pos]; p.pos++; return t }
func (p *parser) accept(k tokenKind) bool {
	if p.peek().kind == k {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != k {
		return t, fmt.Errorf("position %d: expected %s, got %q", t.pos, what, t.text)
	}
	return t, nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept(tokOr) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &orNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.accept(tokAnd) {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &andNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.accept(tokNot) {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notNode{inner: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	if p.accept(tokLParen) {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	}

	t := p.peek()
	switch t.kind {
	case tokIdent:
		// Crossover shorthand: "Lk cross from X to Y".
		if idx, prev, ok := layerVar(t.text); ok && !prev && p.toks[p.pos+1].kind == tokCross {
			p.next() // layer ident
			p.next() // cross
			return p.parseCross(idx)
		}
		// Trend shorthand: "histogram rising" / "histogram falling".
		if t.text == "histogram" {
			switch p.toks[p.pos+1].kind {
			case tokRising:
				p.next()
				p.next()
				return &trendNode{rising: true}, nil
			case tokFalling:
				p.next()
				p.next()
				return &trendNode{rising: false}, nil
			}
		}
		return p.parseComparison()

	case tokNumber:
		return p.parseComparison()
	}
	return nil, fmt.Errorf("position %d: unexpected %q", t.pos, t.text)
}

func (p *parser) parseCross(layer int) (node, error) {
	if _, err := p.expect(tokFrom, `"from"`); err != nil {
		return nil, err
	}
	from, err := p.parseSignum()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokTo, `"to"`); err != nil {
		return nil, err
	}
	to, err := p.parseSignum()
	if err != nil {
		return nil, err
	}
	return &crossNode{layer: layer, from: from, to: to}, nil
}

// parseSignum reads a crossover endpoint, which must be -1, 0 or 1.
func (p *parser) parseSignum() (int, error) {
	t, err := p.expect(tokNumber, "-1, 0 or 1")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(t.text)
	if err != nil || n < -1 || n > 1 {
		return 0, fmt.Errorf("position %d: crossover endpoint must be -1, 0 or 1, got %q", t.pos, t.text)
	}
	return n, nil
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	op, err := p.expect(tokOp, "comparison operator")
	if err != nil {
		return nil, err
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &compareNode{op: op.text, left: left, right: right}, nil
}

func (p *parser) parseOperand() (operand, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return operand{}, fmt.Errorf("position %d: bad number %q", t.pos, t.text)
		}
		return operand{value: v}, nil
	case tokIdent:
		if !validIdent(t.text) {
			return operand{}, fmt.Errorf("position %d: unknown identifier %q", t.pos, t.text)
		}
		return operand{isVar: true, name: t.text}, nil
	}
	return operand{}, fmt.Errorf("position %d: expected number or identifier, got %q", t.pos, t.text)
}
