package parser

import "mercator-hq/callisto/pkg/mrl/ast"

// tokenKind identifies the lexical class of a token.
type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenNumber
	tokenString
	tokenBuiltin // $name

	// Operators and punctuation
	tokenPlus     // +
	tokenMinus    // -
	tokenStar     // *
	tokenSlash    // /
	tokenFloorDiv // //
	tokenPercent  // %
	tokenEq       // ==
	tokenNe       // !=
	tokenGt       // >
	tokenGe       // >=
	tokenLt       // <
	tokenLe       // <=
	tokenMatch    // =~
	tokenNotMatch // !~
	tokenQuestion // ?
	tokenColon    // :
	tokenLParen   // (
	tokenRParen   // )
	tokenLBracket // [
	tokenRBracket // ]
	tokenComma    // ,
	tokenDot      // .

	// Keywords
	tokenAnd
	tokenOr
	tokenNot
	tokenIn
	tokenFor
	tokenIf
	tokenTrue
	tokenFalse
	tokenNull
)

// token is a single lexeme with its position in the rule text.
type token struct {
	kind tokenKind
	text string
	loc  ast.Location
}

// keywords maps reserved identifiers to their token kinds.
var keywords = map[string]tokenKind{
	"and":   tokenAnd,
	"or":    tokenOr,
	"not":   tokenNot,
	"in":    tokenIn,
	"for":   tokenFor,
	"if":    tokenIf,
	"true":  tokenTrue,
	"false": tokenFalse,
	"null":  tokenNull,
}

// describe returns a human-readable name for a token, used in syntax
// error messages.
func (t token) describe() string {
	switch t.kind {
	case tokenEOF:
		return "end of rule"
	case tokenIdent:
		return "identifier " + quoted(t.text)
	case tokenNumber:
		return "number " + quoted(t.text)
	case tokenString:
		return "string literal"
	case tokenBuiltin:
		return "builtin " + quoted("$"+t.text)
	default:
		return quoted(t.text)
	}
}

func quoted(s string) string {
	return "\"" + s + "\""
}
