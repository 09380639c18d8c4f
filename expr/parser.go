package expr

import (
	"strconv"
	"strings"

	"github.com/dc3/cubebuilder/errs"
)

// Parse builds an AST for a band expression: the grammar is standard
// +/- (lowest), then * /  (higher), with parenthesized groups, numeric
// literals, alias.subband references, and min/max/clip function calls.
func Parse(src string) (Node, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != TokEOF {
		return nil, errs.BadRequestf("expression", "unexpected trailing input at position %d in %q", p.peek().Pos, src)
	}
	return n, nil
}

type parser struct {
	toks []Token
	pos  int
}

func (p *parser) peek() Token { return p.toks[p.pos] }
func (p *parser) next() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// parseExpr handles + and - at the lowest precedence.
func (p *parser) parseExpr() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Kind {
		case TokPlus, TokMinus:
			op := p.next()
			right, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			sym := byte('+')
			if op.Kind == TokMinus {
				sym = '-'
			}
			left = Binary{Op: sym, Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

// parseTerm handles * and / at the next precedence level.
func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Kind {
		case TokStar, TokSlash:
			op := p.next()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			sym := byte('*')
			if op.Kind == TokSlash {
				sym = '/'
			}
			left = Binary{Op: sym, Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseUnary() (Node, error) {
	if p.peek().Kind == TokMinus {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Binary{Op: '-', Left: Literal{Value: 0}, Right: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.peek()
	switch t.Kind {
	case TokNumber:
		p.next()
		v, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			return nil, errs.BadRequestf("expression", "invalid number %q at position %d", t.Text, t.Pos)
		}
		return Literal{Value: v}, nil
	case TokLParen:
		p.next()
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.peek().Kind != TokRParen {
			return nil, errs.BadRequestf("expression", "expected ')' at position %d", p.peek().Pos)
		}
		p.next()
		return n, nil
	case TokIdent:
		p.next()
		if p.peek().Kind == TokLParen {
			return p.parseCall(t.Text)
		}
		if !IsSubbandRef(t.Text) {
			return nil, errs.BadRequestf("expression", "identifier %q at position %d is not an alias.subband reference", t.Text, t.Pos)
		}
		parts := strings.SplitN(t.Text, ".", 2)
		return Ref{Alias: parts[0], Subband: parts[1]}, nil
	default:
		return nil, errs.BadRequestf("expression", "unexpected token %q at position %d", t.Text, t.Pos)
	}
}

func (p *parser) parseCall(name string) (Node, error) {
	p.next() // consume '('
	var args []Node
	if p.peek().Kind != TokRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().Kind != TokComma {
				break
			}
			p.next()
		}
	}
	if p.peek().Kind != TokRParen {
		return nil, errs.BadRequestf("expression", "expected ')' closing call to %q at position %d", name, p.peek().Pos)
	}
	p.next()

	switch name {
	case "min", "max":
		if len(args) != 2 {
			return nil, errs.BadRequestf("expression", "%s() takes exactly 2 arguments, got %d", name, len(args))
		}
	case "clip":
		if len(args) != 3 {
			return nil, errs.BadRequestf("expression", "clip() takes exactly 3 arguments (value, min, max), got %d", len(args))
		}
	default:
		return nil, errs.BadRequestf("expression", "unknown function %q", name)
	}
	return Call{Name: name, Args: args}, nil
}
