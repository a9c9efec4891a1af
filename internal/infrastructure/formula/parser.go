package formula

import "fmt"

// Expression AST. Nodes are immutable after parsing; a parsed expression
// may be evaluated concurrently against different records.
type node interface{}

type literalNode struct {
	value any // string or float64
}

type fieldNode struct {
	name string
}

type unaryNode struct {
	op      string
	operand node
}

type binaryNode struct {
	op    string
	left  node
	right node
}

type callNode struct {
	fn   string
	args []node
}

// parser is a recursive-descent parser over the lexer's token stream.
//
// Grammar, lowest precedence first:
//
//	expr    := or
//	or      := and ("or" and)*
//	and     := cmp ("and" cmp)*
//	cmp     := add (("=="|"!="|"<"|"<="|">"|">=") add)?
//	add     := mul (("+"|"-") mul)*
//	mul     := unary (("*"|"/") unary)*
//	unary   := "-" unary | primary
//	primary := number | string | ident | ident "(" args ")" | "(" expr ")"
type parser struct {
	lex *lexer
	cur token
}

func parse(input string) (node, error) {
	p := &parser{lex: &lexer{input: input}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokenEOF {
		return nil, fmt.Errorf("unexpected token %q at position %d", p.cur.text, p.cur.pos)
	}
	return n, nil
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokenIdent && p.cur.text == "or" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "or", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokenIdent && p.cur.text == "and" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: "and", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.cur.kind == tokenOperator {
		switch p.cur.text {
		case "==", "!=", "<", "<=", ">", ">=":
			op := p.cur.text
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return &binaryNode{op: op, left: left, right: right}, nil
		}
	}
	return left, nil
}

func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokenOperator && (p.cur.text == "+" || p.cur.text == "-") {
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokenOperator && (p.cur.text == "*" || p.cur.text == "/") {
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.cur.kind == tokenOperator && p.cur.text == "-" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: "-", operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	switch p.cur.kind {
	case tokenNumber:
		text := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		f, err := parseFloat(text)
		if err != nil {
			return nil, err
		}
		return &literalNode{value: f}, nil
	case tokenString:
		text := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &literalNode{value: text}, nil
	case tokenIdent:
		name := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind == tokenLParen {
			return p.parseCall(name)
		}
		return &fieldNode{name: name}, nil
	case tokenLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.kind != tokenRParen {
			return nil, fmt.Errorf("expected ')' at position %d", p.cur.pos)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unexpected token %q at position %d", p.cur.text, p.cur.pos)
	}
}

func (p *parser) parseCall(fn string) (node, error) {
	// cur is '('
	if err := p.advance(); err != nil {
		return nil, err
	}
	call := &callNode{fn: fn}
	if p.cur.kind == tokenRParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return call, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)
		if p.cur.kind == tokenComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.cur.kind == tokenRParen {
			if err := p.advance(); err != nil {
				return nil, err
			}
			return call, nil
		}
		return nil, fmt.Errorf("expected ',' or ')' at position %d", p.cur.pos)
	}
}
