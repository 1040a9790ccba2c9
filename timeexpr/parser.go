package timeexpr

import (
	"strconv"
	"strings"
)

// binaryPrecedence maps operators to their binding level; lower binds tighter.
var binaryPrecedence = map[string]int{
	"+": 2,
	"-": 2,
	"*": 1,
	"/": 1,
}

const maxPrecedence = 2

var unaryOperators = map[string]bool{
	"-": true,
	"!": true,
	"+": true,
	"@": true,
}

type parser struct {
	input  string
	tokens []token
	pos    int
}

func parse(input string) (Node, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, &SyntaxError{Input: input, Msg: "empty expression"}
	}

	p := &parser{input: input, tokens: tokens}
	root, err := p.parseBinary(maxPrecedence)
	if err != nil {
		return nil, err
	}
	if tok, ok := p.peek(); ok {
		return nil, p.errorAt(tok, "unexpected token "+strconv.Quote(tok.text))
	}
	return root, nil
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) next() (token, bool) {
	tok, ok := p.peek()
	if ok {
		p.pos++
	}
	return tok, ok
}

func (p *parser) errorAt(tok token, msg string) *SyntaxError {
	return &SyntaxError{Input: p.input, Remainder: p.input[tok.offset:], Msg: msg}
}

func (p *parser) parseBinary(precedence int) (Node, error) {
	if precedence < 0 {
		return p.parseUnary()
	}

	left, err := p.parseBinary(precedence - 1)
	if err != nil {
		return nil, err
	}

	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokenOperator {
			return left, nil
		}
		if prec, isBinary := binaryPrecedence[tok.text]; !isBinary || prec != precedence {
			return left, nil
		}
		p.next()

		right, err := p.parseBinary(precedence - 1)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: tok.text[0], Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Node, error) {
	tok, ok := p.peek()
	if ok && tok.kind == tokenOperator && unaryOperators[tok.text] {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: tok.text[0], Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	tok, ok := p.next()
	if !ok {
		return nil, &SyntaxError{Input: p.input, Msg: "unexpected end of expression"}
	}

	switch tok.kind {
	case tokenPrimary:
		return newLiteral(tok), nil
	case tokenGlue:
		if tok.text != "(" {
			return nil, p.errorAt(tok, "unexpected "+strconv.Quote(tok.text))
		}
		expr, err := p.parseBinary(maxPrecedence)
		if err != nil {
			return nil, err
		}
		closing, ok := p.next()
		if !ok {
			return nil, &SyntaxError{Input: p.input, Msg: "expected )"}
		}
		if closing.text != ")" {
			return nil, p.errorAt(closing, "expected )")
		}
		return expr, nil
	default:
		return nil, p.errorAt(tok, "cannot process token "+strconv.Quote(tok.text))
	}
}

func newLiteral(tok token) *Literal {
	lit := &Literal{Unit: tok.unit}
	for i, c := range tok.captures {
		if i >= len(lit.Values) {
			break
		}
		if c == "" || c == "." {
			continue
		}
		// The lexer only captures digit runs, so this cannot fail.
		v, _ := strconv.ParseFloat(c, 64)
		lit.Values[i] = v
	}
	if tok.unit == UnitNote && len(tok.captures) > 1 {
		lit.Dotted = strings.HasPrefix(tok.captures[1], ".")
	}
	return lit
}
