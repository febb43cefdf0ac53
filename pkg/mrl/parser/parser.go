package parser

import (
	"mercator-hq/callisto/pkg/mrl/ast"
	rerrors "mercator-hq/callisto/pkg/mrl/errors"
	"mercator-hq/callisto/pkg/mrl/types"
)

// Parse turns rule text into a syntax tree. It fails atomically: on any
// lexical or syntactic error the returned tree is nil and the error is a
// *errors.SyntaxError carrying the position of the offending token.
func Parse(text string) (ast.Node, error) {
	p := &parser{lex: newLexer(text)}
	if err := p.bump(); err != nil {
		return nil, syntaxWithText(err, text)
	}
	node, err := p.parseTernary()
	if err != nil {
		return nil, syntaxWithText(err, text)
	}
	if p.cur.kind != tokenEOF {
		return nil, syntaxWithText(&rerrors.SyntaxError{
			Message:  "unexpected " + p.cur.describe(),
			Location: p.cur.loc,
		}, text)
	}
	return node, nil
}

func syntaxWithText(err error, text string) error {
	return rerrors.WithRuleText(err, text)
}

// parser is a recursive-descent parser with single-token lookahead.
type parser struct {
	lex *lexer
	cur token
}

// bump advances to the next token.
func (p *parser) bump() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

// accept consumes the current token if it has the given kind.
func (p *parser) accept(kind tokenKind) (token, bool, error) {
	if p.cur.kind != kind {
		return token{}, false, nil
	}
	t := p.cur
	if err := p.bump(); err != nil {
		return token{}, false, err
	}
	return t, true, nil
}

// expect consumes the current token, failing unless it has the given kind.
func (p *parser) expect(kind tokenKind, what string) (token, error) {
	if p.cur.kind != kind {
		return token{}, &rerrors.SyntaxError{
			Message:  "expected " + what + ", found " + p.cur.describe(),
			Location: p.cur.loc,
		}
	}
	t := p.cur
	if err := p.bump(); err != nil {
		return token{}, err
	}
	return t, nil
}

// parseTernary handles cond ? then : else, the lowest precedence level.
// The ternary is right-associative.
func (p *parser) parseTernary() (ast.Node, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	q, ok, err := p.accept(tokenQuestion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return cond, nil
	}
	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenColon, "\":\""); err != nil {
		return nil, err
	}
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &ast.Ternary{Cond: cond, Then: then, Else: els, Location: q.loc}, nil
}

func (p *parser) parseOr() (ast.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		t, ok, err := p.accept(tokenOr)
		if err != nil {
			return nil, err
		}
		if !ok {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: ast.OpOr, Left: left, Right: right, Location: t.loc}
	}
}

func (p *parser) parseAnd() (ast.Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		t, ok, err := p.accept(tokenAnd)
		if err != nil {
			return nil, err
		}
		if !ok {
			return left, nil
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: ast.OpAnd, Left: left, Right: right, Location: t.loc}
	}
}

func (p *parser) parseNot() (ast.Node, error) {
	t, ok, err := p.accept(tokenNot)
	if err != nil {
		return nil, err
	}
	if ok {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: ast.OpNot, Operand: operand, Location: t.loc}, nil
	}
	return p.parseComparison()
}

// comparisonOps maps comparison tokens to their AST operators.
var comparisonOps = map[tokenKind]ast.BinaryOp{
	tokenEq: ast.OpEq,
	tokenNe: ast.OpNe,
	tokenGt: ast.OpGt,
	tokenGe: ast.OpGe,
	tokenLt: ast.OpLt,
	tokenLe: ast.OpLe,
}

func (p *parser) parseComparison() (ast.Node, error) {
	left, err := p.parseContainment()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := comparisonOps[p.cur.kind]
		if !ok {
			return left, nil
		}
		t := p.cur
		if err := p.bump(); err != nil {
			return nil, err
		}
		right, err := p.parseContainment()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right, Location: t.loc}
	}
}

func (p *parser) parseContainment() (ast.Node, error) {
	left, err := p.parseRegexMatch()
	if err != nil {
		return nil, err
	}
	for {
		t, ok, err := p.accept(tokenIn)
		if err != nil {
			return nil, err
		}
		if !ok {
			return left, nil
		}
		right, err := p.parseRegexMatch()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: ast.OpIn, Left: left, Right: right, Location: t.loc}
	}
}

func (p *parser) parseRegexMatch() (ast.Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		if p.cur.kind != tokenMatch && p.cur.kind != tokenNotMatch {
			return left, nil
		}
		t := p.cur
		if err := p.bump(); err != nil {
			return nil, err
		}
		pattern, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.RegexMatch{
			Left:     left,
			Pattern:  pattern,
			Negated:  t.kind == tokenNotMatch,
			Location: t.loc,
		}
	}
}

func (p *parser) parseAdditive() (ast.Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch p.cur.kind {
		case tokenPlus:
			op = ast.OpAdd
		case tokenMinus:
			op = ast.OpSub
		default:
			return left, nil
		}
		t := p.cur
		if err := p.bump(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right, Location: t.loc}
	}
}

func (p *parser) parseMultiplicative() (ast.Node, error) {
	left, err := p.parseUnaryMinus()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch p.cur.kind {
		case tokenStar:
			op = ast.OpMul
		case tokenSlash:
			op = ast.OpDiv
		case tokenFloorDiv:
			op = ast.OpFloorDiv
		case tokenPercent:
			op = ast.OpMod
		default:
			return left, nil
		}
		t := p.cur
		if err := p.bump(); err != nil {
			return nil, err
		}
		right, err := p.parseUnaryMinus()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right, Location: t.loc}
	}
}

func (p *parser) parseUnaryMinus() (ast.Node, error) {
	t, ok, err := p.accept(tokenMinus)
	if err != nil {
		return nil, err
	}
	if ok {
		operand, err := p.parseUnaryMinus()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: ast.OpNeg, Operand: operand, Location: t.loc}, nil
	}
	return p.parsePostfix()
}

// parsePostfix handles the postfix chain: attribute access, subscripts and
// calls, left to right.
func (p *parser) parsePostfix() (ast.Node, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.kind {
		case tokenDot:
			t := p.cur
			if err := p.bump(); err != nil {
				return nil, err
			}
			name, err := p.expect(tokenIdent, "attribute name")
			if err != nil {
				return nil, err
			}
			node = &ast.Attribute{Base: node, Name: name.text, Location: t.loc}

		case tokenLBracket:
			t := p.cur
			if err := p.bump(); err != nil {
				return nil, err
			}
			key, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokenRBracket, "\"]\""); err != nil {
				return nil, err
			}
			node = &ast.Item{Base: node, Key: key, Location: t.loc}

		case tokenLParen:
			t := p.cur
			if err := p.bump(); err != nil {
				return nil, err
			}
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			node = &ast.Call{Callee: node, Args: args, Location: t.loc}

		default:
			return node, nil
		}
	}
}

// parseArgs parses a comma-separated argument list up to the closing
// parenthesis, which is consumed.
func (p *parser) parseArgs() ([]ast.Node, error) {
	var args []ast.Node
	if _, ok, err := p.accept(tokenRParen); err != nil {
		return nil, err
	} else if ok {
		return args, nil
	}
	for {
		arg, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if _, ok, err := p.accept(tokenComma); err != nil {
			return nil, err
		} else if ok {
			continue
		}
		if _, err := p.expect(tokenRParen, "\")\""); err != nil {
			return nil, err
		}
		return args, nil
	}
}

func (p *parser) parsePrimary() (ast.Node, error) {
	t := p.cur
	switch t.kind {
	case tokenNumber:
		if err := p.bump(); err != nil {
			return nil, err
		}
		num, err := types.ParseNumber(t.text)
		if err != nil {
			return nil, &rerrors.SyntaxError{Message: err.Error(), Location: t.loc}
		}
		return &ast.Literal{Value: num, Location: t.loc}, nil

	case tokenString:
		if err := p.bump(); err != nil {
			return nil, err
		}
		return &ast.Literal{Value: types.NewString(t.text), Location: t.loc}, nil

	case tokenTrue, tokenFalse:
		if err := p.bump(); err != nil {
			return nil, err
		}
		return &ast.Literal{Value: types.NewBool(t.kind == tokenTrue), Location: t.loc}, nil

	case tokenNull:
		if err := p.bump(); err != nil {
			return nil, err
		}
		return &ast.Literal{Value: types.Null{}, Location: t.loc}, nil

	case tokenIdent:
		if err := p.bump(); err != nil {
			return nil, err
		}
		return &ast.Symbol{Name: t.text, Location: t.loc}, nil

	case tokenBuiltin:
		if err := p.bump(); err != nil {
			return nil, err
		}
		return &ast.BuiltinRef{Name: t.text, Location: t.loc}, nil

	case tokenLParen:
		if err := p.bump(); err != nil {
			return nil, err
		}
		node, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokenRParen, "\")\""); err != nil {
			return nil, err
		}
		return node, nil

	case tokenLBracket:
		return p.parseComprehension()
	}

	return nil, &rerrors.SyntaxError{
		Message:  "unexpected " + t.describe(),
		Location: t.loc,
	}
}

// parseComprehension parses [elem for var in iterable if cond]; the if
// clause is optional.
func (p *parser) parseComprehension() (ast.Node, error) {
	open, err := p.expect(tokenLBracket, "\"[\"")
	if err != nil {
		return nil, err
	}
	elem, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenFor, "\"for\""); err != nil {
		return nil, err
	}
	loopVar, err := p.expect(tokenIdent, "loop variable name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenIn, "\"in\""); err != nil {
		return nil, err
	}
	iterable, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	var filter ast.Node
	if _, ok, err := p.accept(tokenIf); err != nil {
		return nil, err
	} else if ok {
		filter, err = p.parseTernary()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(tokenRBracket, "\"]\""); err != nil {
		return nil, err
	}
	return &ast.Comprehension{
		Elem:     elem,
		Var:      loopVar.text,
		Iterable: iterable,
		Filter:   filter,
		Location: open.loc,
	}, nil
}
