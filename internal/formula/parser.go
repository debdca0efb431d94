package formula

import (
	formulaerrors "go-twk/internal/formula/errors"
)

const (
	// MaxExpressionLength bounds the source text of a formula in bytes.
	MaxExpressionLength = 4096
	maxDepth            = 64
	maxNodes            = 2000
)

// binding powers, higher binds tighter
const (
	precLowest = iota
	precTernary
	precOr
	precAnd
	precEquality
	precCompare
	precSum
	precProduct
	precUnary
)

func infixPrecedence(k tokenKind) int {
	switch k {
	case tokQuestion:
		return precTernary
	case tokOr:
		return precOr
	case tokAnd:
		return precAnd
	case tokEQ, tokNEQ:
		return precEquality
	case tokLT, tokLTE, tokGT, tokGTE:
		return precCompare
	case tokPlus, tokMinus:
		return precSum
	case tokStar, tokSlash, tokPercent:
		return precProduct
	}
	return precLowest
}

type parser struct {
	toks  []token
	pos   int
	depth int
	nodes int
}

func parse(src string) (node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.expression(precLowest)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, syntaxError(tok.pos, "unexpected %s after end of expression", tok.kind)
	}
	return root, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.next()
	if tok.kind != kind {
		return tok, syntaxError(tok.pos, "expected %s, found %s", kind, tok.kind)
	}
	return tok, nil
}

func (p *parser) count() error {
	p.nodes++
	if p.nodes > maxNodes {
		return formulaerrors.ErrExpressionTooComplex
	}
	return nil
}

func (p *parser) expression(minPrec int) (node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return nil, formulaerrors.ErrExpressionTooComplex
	}

	left, err := p.prefix()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		prec := infixPrecedence(tok.kind)
		if prec == precLowest || prec <= minPrec {
			return left, nil
		}
		p.next()
		if err := p.count(); err != nil {
			return nil, err
		}

		if tok.kind == tokQuestion {
			then, err := p.expression(precLowest)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokColon); err != nil {
				return nil, err
			}
			// right associative: a ? b : c ? d : e
			els, err := p.expression(precTernary - 1)
			if err != nil {
				return nil, err
			}
			left = &ternary{pos: tok.pos, cond: left, then: then, else_: els}
			continue
		}

		right, err := p.expression(prec)
		if err != nil {
			return nil, err
		}
		left = &binary{pos: tok.pos, op: tok.kind, left: left, right: right}
	}
}

func (p *parser) prefix() (node, error) {
	if err := p.count(); err != nil {
		return nil, err
	}
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return &numberLit{pos: tok.pos, value: tok.num}, nil
	case tokString:
		return &stringLit{pos: tok.pos, value: tok.text}, nil
	case tokTrue, tokFalse:
		return &boolLit{pos: tok.pos, value: tok.kind == tokTrue}, nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.call(tok)
		}
		return &ident{pos: tok.pos, name: tok.text}, nil
	case tokMinus, tokNot, tokPlus:
		x, err := p.expression(precUnary)
		if err != nil {
			return nil, err
		}
		if tok.kind == tokPlus {
			return x, nil
		}
		return &unary{pos: tok.pos, op: tok.kind, x: x}, nil
	case tokLParen:
		inner, err := p.expression(precLowest)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case tokEOF:
		return nil, syntaxError(tok.pos, "unexpected end of expression")
	}
	return nil, syntaxError(tok.pos, "unexpected %s", tok.kind)
}

func (p *parser) call(name token) (node, error) {
	p.next() // (
	c := &call{pos: name.pos, fn: name.text}
	if p.peek().kind == tokRParen {
		p.next()
		return c, nil
	}
	for {
		arg, err := p.expression(precLowest)
		if err != nil {
			return nil, err
		}
		c.args = append(c.args, arg)

		tok := p.next()
		switch tok.kind {
		case tokComma:
			continue
		case tokRParen:
			return c, nil
		default:
			return nil, syntaxError(tok.pos, "expected , or ) in call to %s, found %s", name.text, tok.kind)
		}
	}
}
