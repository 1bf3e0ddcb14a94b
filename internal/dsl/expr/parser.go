package expr

import (
	"fmt"
	"strings"
)

// Node is a parsed expression tree node.
type Node interface{ nodePos() int }

type literalNode struct {
	pos int
	val Value
}

type identNode struct {
	pos  int
	name string
}

type unaryNode struct {
	pos int
	op  string // "-" or "not"
	x   Node
}

type binaryNode struct {
	pos  int
	op   string // arithmetic, comparison, "and", "or"
	l, r Node
}

type callNode struct {
	pos  int
	name string
	args []Node
}

func (n *literalNode) nodePos() int { return n.pos }
func (n *identNode) nodePos() int   { return n.pos }
func (n *unaryNode) nodePos() int   { return n.pos }
func (n *binaryNode) nodePos() int  { return n.pos }
func (n *callNode) nodePos() int    { return n.pos }

type parser struct {
	toks []token
	idx  int
}

// Parse parses an expression into a tree. The grammar, loosest first:
//
//	or    := and (OR and)*
//	and   := not (AND not)*
//	not   := NOT not | cmp
//	cmp   := add ((== | != | < | <= | > | >=) add)?
//	add   := mul ((+ | -) mul)*
//	mul   := unary ((* | / | %) unary)*
//	unary := - unary | primary
func Parse(src string) (Node, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &SyntaxError{Pos: tok.pos, Msg: "unexpected trailing input"}
	}
	return node, nil
}

func (p *parser) peek() token { return p.toks[p.idx] }

func (p *parser) advance() token {
	tok := p.toks[p.idx]
	if tok.kind != tokEOF {
		p.idx++
	}
	return tok
}

func (p *parser) matchOp(ops ...string) (token, bool) {
	tok := p.peek()
	if tok.kind != tokOp {
		return token{}, false
	}
	for _, op := range ops {
		if tok.text == op {
			return p.advance(), true
		}
	}
	return token{}, false
}

// keyword operators are case-insensitive identifiers
func (p *parser) matchKeyword(words ...string) (token, bool) {
	tok := p.peek()
	if tok.kind != tokIdent {
		return token{}, false
	}
	for _, w := range words {
		if strings.EqualFold(tok.text, w) {
			return p.advance(), true
		}
	}
	return token{}, false
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.matchKeyword("or")
		if !ok {
			if tok, ok = p.matchOp("||"); !ok {
				return left, nil
			}
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{pos: tok.pos, op: "or", l: left, r: right}
	}
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.matchKeyword("and")
		if !ok {
			if tok, ok = p.matchOp("&&"); !ok {
				return left, nil
			}
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{pos: tok.pos, op: "and", l: left, r: right}
	}
}

func (p *parser) parseNot() (Node, error) {
	if tok, ok := p.matchKeyword("not"); ok {
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &unaryNode{pos: tok.pos, op: "not", x: x}, nil
	}
	if tok, ok := p.matchOp("!"); ok {
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &unaryNode{pos: tok.pos, op: "not", x: x}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if tok, ok := p.matchOp("==", "!=", "<=", ">=", "<", ">"); ok {
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &binaryNode{pos: tok.pos, op: tok.text, l: left, r: right}, nil
	}
	return left, nil
}

func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.matchOp("+", "-")
		if !ok {
			return left, nil
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{pos: tok.pos, op: tok.text, l: left, r: right}
	}
}

func (p *parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.matchOp("*", "/", "%")
		if !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{pos: tok.pos, op: tok.text, l: left, r: right}
	}
}

func (p *parser) parseUnary() (Node, error) {
	if tok, ok := p.matchOp("-"); ok {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{pos: tok.pos, op: "-", x: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.peek()
	switch tok.kind {
	case tokInt:
		p.advance()
		return &literalNode{pos: tok.pos, val: tok.i}, nil
	case tokFloat:
		p.advance()
		return &literalNode{pos: tok.pos, val: tok.f}, nil
	case tokString:
		p.advance()
		return &literalNode{pos: tok.pos, val: tok.s}, nil
	case tokIdent:
		p.advance()
		switch strings.ToLower(tok.text) {
		case "true":
			return &literalNode{pos: tok.pos, val: true}, nil
		case "false":
			return &literalNode{pos: tok.pos, val: false}, nil
		case "none", "null", "nil":
			return &literalNode{pos: tok.pos, val: nil}, nil
		}
		if _, ok := p.matchOp("("); ok {
			return p.parseCall(tok)
		}
		return &identNode{pos: tok.pos, name: tok.text}, nil
	case tokOp:
		if tok.text == "(" {
			p.advance()
			inner, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if _, ok := p.matchOp(")"); !ok {
				return nil, &SyntaxError{Pos: p.peek().pos, Msg: "expected ')'"}
			}
			return inner, nil
		}
	}
	return nil, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("unexpected token %q", tok.text)}
}

func (p *parser) parseCall(nameTok token) (Node, error) {
	call := &callNode{pos: nameTok.pos, name: strings.ToLower(nameTok.text)}
	if _, ok := p.matchOp(")"); ok {
		return call, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)
		if _, ok := p.matchOp(","); ok {
			continue
		}
		if _, ok := p.matchOp(")"); ok {
			return call, nil
		}
		return nil, &SyntaxError{Pos: p.peek().pos, Msg: "expected ',' or ')' in argument list"}
	}
}
