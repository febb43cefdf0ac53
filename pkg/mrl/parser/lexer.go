package parser

import (
	"strings"
	"unicode"

	"mercator-hq/callisto/pkg/mrl/ast"
	rerrors "mercator-hq/callisto/pkg/mrl/errors"
)

// lexer tokenizes rule text rune by rune, tracking line and column for
// error reporting.
type lexer struct {
	src  []rune
	pos  int
	line int
	col  int
}

func newLexer(text string) *lexer {
	return &lexer{src: []rune(text), line: 1, col: 1}
}

// location returns the position of the next rune to be read.
func (l *lexer) location() ast.Location {
	return ast.Location{Line: l.line, Column: l.col}
}

func (l *lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peekAt(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

// next scans and returns the next token.
func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && unicode.IsSpace(l.peek()) {
		l.advance()
	}

	loc := l.location()
	if l.pos >= len(l.src) {
		return token{kind: tokenEOF, loc: loc}, nil
	}

	r := l.peek()
	switch {
	case isIdentStart(r):
		return l.scanIdent(loc), nil
	case unicode.IsDigit(r):
		return l.scanNumber(loc)
	case r == '\'' || r == '"':
		return l.scanString(loc)
	case r == '$':
		l.advance()
		if !isIdentStart(l.peek()) {
			return token{}, &rerrors.SyntaxError{
				Message:  "expected builtin name after \"$\"",
				Location: loc,
			}
		}
		t := l.scanIdent(l.location())
		return token{kind: tokenBuiltin, text: t.text, loc: loc}, nil
	}

	return l.scanOperator(loc)
}

// scanIdent consumes an identifier or keyword.
func (l *lexer) scanIdent(loc ast.Location) token {
	var sb strings.Builder
	for l.pos < len(l.src) && isIdentPart(l.peek()) {
		sb.WriteRune(l.advance())
	}
	text := sb.String()
	if kind, ok := keywords[text]; ok {
		return token{kind: kind, text: text, loc: loc}
	}
	return token{kind: tokenIdent, text: text, loc: loc}
}

// scanNumber consumes a decimal number literal: digits, an optional
// fractional part, and an optional exponent. The literal text is kept
// verbatim for exact decimal parsing later.
func (l *lexer) scanNumber(loc ast.Location) (token, error) {
	var sb strings.Builder
	for l.pos < len(l.src) && unicode.IsDigit(l.peek()) {
		sb.WriteRune(l.advance())
	}
	if l.peek() == '.' && unicode.IsDigit(l.peekAt(1)) {
		sb.WriteRune(l.advance())
		for l.pos < len(l.src) && unicode.IsDigit(l.peek()) {
			sb.WriteRune(l.advance())
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		exp := l.peekAt(1)
		expStart := 1
		if exp == '+' || exp == '-' {
			exp = l.peekAt(2)
			expStart = 2
		}
		if unicode.IsDigit(exp) {
			for i := 0; i < expStart; i++ {
				sb.WriteRune(l.advance())
			}
			for l.pos < len(l.src) && unicode.IsDigit(l.peek()) {
				sb.WriteRune(l.advance())
			}
		}
	}
	if isIdentStart(l.peek()) {
		return token{}, &rerrors.SyntaxError{
			Message:  "invalid number literal " + quoted(sb.String()+string(l.peek())),
			Location: loc,
		}
	}
	return token{kind: tokenNumber, text: sb.String(), loc: loc}, nil
}

// scanString consumes a single- or double-quoted string literal. The
// escapes \n, \t, \r, \\, \' and \" are translated; any other backslash
// sequence is kept verbatim so regex patterns like "(\w+)" survive.
func (l *lexer) scanString(loc ast.Location) (token, error) {
	quote := l.advance()
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, &rerrors.SyntaxError{
				Message:  "unterminated string literal",
				Location: loc,
			}
		}
		r := l.advance()
		if r == quote {
			return token{kind: tokenString, text: sb.String(), loc: loc}, nil
		}
		if r != '\\' {
			sb.WriteRune(r)
			continue
		}
		if l.pos >= len(l.src) {
			return token{}, &rerrors.SyntaxError{
				Message:  "unterminated string literal",
				Location: loc,
			}
		}
		esc := l.advance()
		switch esc {
		case 'n':
			sb.WriteRune('\n')
		case 't':
			sb.WriteRune('\t')
		case 'r':
			sb.WriteRune('\r')
		case '\\', '\'', '"':
			sb.WriteRune(esc)
		default:
			sb.WriteRune('\\')
			sb.WriteRune(esc)
		}
	}
}

// twoRuneOps are the two-rune operators, matched before single runes.
var twoRuneOps = map[string]tokenKind{
	"//": tokenFloorDiv,
	"==": tokenEq,
	"!=": tokenNe,
	">=": tokenGe,
	"<=": tokenLe,
	"=~": tokenMatch,
	"!~": tokenNotMatch,
}

// oneRuneOps are the single-rune operators and punctuation.
var oneRuneOps = map[rune]tokenKind{
	'+': tokenPlus,
	'-': tokenMinus,
	'*': tokenStar,
	'/': tokenSlash,
	'%': tokenPercent,
	'>': tokenGt,
	'<': tokenLt,
	'?': tokenQuestion,
	':': tokenColon,
	'(': tokenLParen,
	')': tokenRParen,
	'[': tokenLBracket,
	']': tokenRBracket,
	',': tokenComma,
	'.': tokenDot,
}

// scanOperator consumes an operator or punctuation token, longest match
// first.
func (l *lexer) scanOperator(loc ast.Location) (token, error) {
	two := string(l.peek()) + string(l.peekAt(1))
	if kind, ok := twoRuneOps[two]; ok {
		l.advance()
		l.advance()
		return token{kind: kind, text: two, loc: loc}, nil
	}

	if kind, ok := oneRuneOps[l.peek()]; ok {
		r := l.advance()
		return token{kind: kind, text: string(r), loc: loc}, nil
	}

	return token{}, &rerrors.SyntaxError{
		Message:  "unexpected character " + quoted(string(l.peek())),
		Location: loc,
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
