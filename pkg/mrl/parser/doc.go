// Package parser turns MRL rule text into an immutable syntax tree.
//
// The lexer tokenizes identifiers, decimal number literals, single- and
// double-quoted strings with escapes, operators, and $-prefixed builtin
// references. The parser is a hand-written recursive-descent parser with
// one method per precedence level, lowest to highest:
//
//	ternary ?:
//	or
//	and
//	unary not
//	comparison  == != > >= < <=
//	containment in
//	regex match =~ !~
//	additive    + -
//	multiplicative * / // %
//	unary -
//	postfix     .attr [key] (args)
//	primary     literal, symbol, (expr), comprehension, $builtin
//
// Parsing is atomic: on any lexical or syntactic error, Parse returns a
// *errors.SyntaxError carrying the offending position and no tree is
// produced. Number literals are parsed directly into the exact decimal
// representation and never pass through a binary float.
package parser
