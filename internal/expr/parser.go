package expr

import (
	"fmt"
	"slices"

	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/values"
)

// ErrParse is the root of syntax errors raised while parsing an
// expression.
var ErrParse apperrors.Error = apperrors.ErrExpression.Msg("expression syntax error")

// Parser is a recursive-descent parser over the precedence table of
// spec §4.4: or > and > not > comparison > additive > multiplicative >
// unary > primary.
type Parser struct {
	toks []Token
	pos  int
}

// Parse lexes and parses a complete expression, requiring the entire
// input to be consumed.
func Parse(src string) (Node, apperrors.Error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	node, perr := p.parseOr()
	if perr != nil {
		return nil, perr
	}
	if p.cur().Kind != TokEOF {
		return nil, ErrParse.Msg(fmt.Sprintf("unexpected token %v", p.cur()))
	}
	return node, nil
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k TokenKind) (Token, apperrors.Error) {
	if p.cur().Kind != k {
		return Token{}, ErrParse.Msg(fmt.Sprintf("expected token kind %v, got %v", k, p.cur()))
	}
	return p.advance(), nil
}

func (p *Parser) parseOr() (Node, apperrors.Error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == TokOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Node, apperrors.Error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == TokAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Node, apperrors.Error) {
	if p.cur().Kind == TokNot {
		// "not in" is handled inside parseComparison; a leading "not" here
		// is always logical negation of a full sub-expression.
		p.advance()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Not{Expr: inner}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (Node, apperrors.Error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	switch p.cur().Kind {
	case TokEq, TokNeq, TokLt, TokLte, TokGt, TokGte, TokMatch:
		op := tokToCompareOp[p.cur().Kind]
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &Binary{Op: op, Left: left, Right: right}, nil
	case TokIn:
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &Binary{Op: OpIn, Left: left, Right: right}, nil
	case TokNot:
		// lookahead for "not in" as an infix operator
		save := p.pos
		p.advance()
		if p.cur().Kind == TokIn {
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return &Binary{Op: OpNotIn, Left: left, Right: right}, nil
		}
		p.pos = save
	}
	return left, nil
}

var tokToCompareOp = map[TokenKind]BinaryOp{
	TokEq:    OpEq,
	TokNeq:   OpNeq,
	TokLt:    OpLt,
	TokLte:   OpLte,
	TokGt:    OpGt,
	TokGte:   OpGte,
	TokMatch: OpMatch,
}

func (p *Parser) parseAdditive() (Node, apperrors.Error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == TokPlus || p.cur().Kind == TokMinus {
		op := OpAdd
		if p.cur().Kind == TokMinus {
			op = OpSub
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Node, apperrors.Error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == TokStar || p.cur().Kind == TokSlash {
		op := OpMul
		if p.cur().Kind == TokSlash {
			op = OpDiv
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Node, apperrors.Error) {
	if p.cur().Kind == TokMinus {
		p.advance()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Neg{Expr: inner}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Node, apperrors.Error) {
	tok := p.cur()
	switch tok.Kind {
	case TokInteger:
		p.advance()
		v, perr := values.ParseInteger(tok.Lit)
		if perr != nil {
			return nil, ErrParse.Err(perr)
		}
		return &Literal{Value: v}, nil
	case TokReal:
		p.advance()
		v, perr := values.ParseReal(tok.Lit)
		if perr != nil {
			return nil, ErrParse.Err(perr)
		}
		return &Literal{Value: v}, nil
	case TokText:
		p.advance()
		s, perr := values.UnescapeText(tok.Lit)
		if perr != nil {
			return nil, ErrParse.Err(perr)
		}
		return &Literal{Value: values.NewText(s)}, nil
	case TokTimestamp:
		p.advance()
		v, perr := values.ParseTimestamp(tok.Lit)
		if perr != nil {
			return nil, ErrParse.Err(perr)
		}
		return &Literal{Value: v}, nil
	case TokUUID:
		p.advance()
		v, perr := values.ParseUUID(tok.Lit)
		if perr != nil {
			return nil, ErrParse.Err(perr)
		}
		return &Literal{Value: v}, nil
	case TokWKT:
		p.advance()
		g, perr := values.ParseWKT(tok.Lit)
		if perr != nil {
			return nil, ErrParse.Err(perr)
		}
		return &Literal{Value: values.NewGeometry(g)}, nil
	case TokTrue:
		p.advance()
		return &Literal{Value: values.NewBoolean(true)}, nil
	case TokFalse:
		p.advance()
		return &Literal{Value: values.NewBoolean(false)}, nil
	case TokParam:
		p.advance()
		return &Param{Name: tok.Lit}, nil
	case TokLParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case TokLBracket:
		return p.parseList()
	case TokIdent:
		return p.parseIdentLed()
	default:
		return nil, ErrParse.Msg(fmt.Sprintf("unexpected token %v", tok))
	}
}

func (p *Parser) parseList() (Node, apperrors.Error) {
	if _, err := p.expect(TokLBracket); err != nil {
		return nil, err
	}
	var items []Node
	if p.cur().Kind != TokRBracket {
		for {
			item, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			if p.cur().Kind != TokComma {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(TokRBracket); err != nil {
		return nil, err
	}
	return &ListLiteral{Items: items}, nil
}

// parseIdentLed handles the three productions that start with a bare
// identifier: a function call "name(...)", a dotted field reference
// "ns.field", and a bare field/namespace reference "name".
func (p *Parser) parseIdentLed() (Node, apperrors.Error) {
	name := p.advance().Lit

	if p.cur().Kind == TokLParen {
		p.advance()
		var args []Node
		if p.cur().Kind != TokRParen {
			for {
				arg, err := p.parseOr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.cur().Kind != TokComma {
					break
				}
				p.advance()
			}
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		arities, known := KnownFunctions[name]
		if !known {
			return nil, ErrParse.Msg(fmt.Sprintf("unknown function %q", name))
		}
		if !slices.Contains(arities, len(args)) {
			return nil, ErrParse.Msg(fmt.Sprintf("function %q expects %v argument(s), got %d", name, arities, len(args)))
		}
		return &FuncCall{Name: name, Args: args}, nil
	}

	if p.cur().Kind == TokDot {
		p.advance()
		field, err := p.expect(TokIdent)
		if err != nil {
			return nil, err
		}
		return &FieldRef{Namespace: name, Field: field.Lit}, nil
	}

	return &FieldRef{Namespace: "", Field: name}, nil
}
