package ast

import "mercator-hq/callisto/pkg/mrl/types"

// Node is the interface implemented by all MRL expression nodes.
// Implementations are restricted to this package by the sealed marker.
type Node interface {
	// Loc returns the position of the node in the rule text.
	Loc() Location

	node() // sealed marker
}

// BinaryOp represents a binary operator in an MRL expression.
type BinaryOp string

const (
	OpAdd      BinaryOp = "+"
	OpSub      BinaryOp = "-"
	OpMul      BinaryOp = "*"
	OpDiv      BinaryOp = "/"
	OpFloorDiv BinaryOp = "//"
	OpMod      BinaryOp = "%"
	OpEq       BinaryOp = "=="
	OpNe       BinaryOp = "!="
	OpGt       BinaryOp = ">"
	OpGe       BinaryOp = ">="
	OpLt       BinaryOp = "<"
	OpLe       BinaryOp = "<="
	OpAnd      BinaryOp = "and"
	OpOr       BinaryOp = "or"
	OpIn       BinaryOp = "in"
)

// UnaryOp represents a unary operator in an MRL expression.
type UnaryOp string

const (
	OpNot UnaryOp = "not"
	OpNeg UnaryOp = "-"
)

// Literal is a constant value appearing directly in the rule text:
// a number, string, boolean or null.
type Literal struct {
	Value    types.Value
	Location Location
}

// Symbol is a bare name resolved against the host value through the
// configured resolver.
type Symbol struct {
	Name     string
	Location Location
}

// Attribute is a postfix attribute access: base.name.
type Attribute struct {
	Base     Node
	Name     string
	Location Location
}

// Item is a postfix subscript access: base[key]. The key is itself an
// expression evaluated before the lookup.
type Item struct {
	Base     Node
	Key      Node
	Location Location
}

// Unary applies a unary operator to its operand.
type Unary struct {
	Op       UnaryOp
	Operand  Node
	Location Location
}

// Binary applies a binary operator to its operands. The logical operators
// OpAnd and OpOr short-circuit: the evaluator never visits Right when Left
// already determines the result.
type Binary struct {
	Op       BinaryOp
	Left     Node
	Right    Node
	Location Location
}

// Ternary is the conditional expression cond ? then : else. Only the
// selected branch is ever evaluated.
type Ternary struct {
	Cond     Node
	Then     Node
	Else     Node
	Location Location
}

// Comprehension is the sequence expression
// [elem for var in iterable if filter]. Filter is nil when the if clause
// is absent.
type Comprehension struct {
	Elem     Node
	Var      string
	Iterable Node
	Filter   Node // optional
	Location Location
}

// Call invokes a callable with positional arguments. Arguments are
// evaluated strictly left to right.
type Call struct {
	Callee   Node
	Args     []Node
	Location Location
}

// RegexMatch is the pattern-match expression left =~ pattern, or its
// negation left !~ pattern. The pattern operand is an expression so that
// patterns may be resolved at evaluation time.
type RegexMatch struct {
	Left     Node
	Pattern  Node
	Negated  bool
	Location Location
}

// BuiltinRef is a $-prefixed reference to an engine builtin, such as
// $re_groups (the capture groups of the most recent regex match within
// the current evaluation).
type BuiltinRef struct {
	Name     string
	Location Location
}

func (n *Literal) Loc() Location       { return n.Location }
func (n *Symbol) Loc() Location        { return n.Location }
func (n *Attribute) Loc() Location     { return n.Location }
func (n *Item) Loc() Location          { return n.Location }
func (n *Unary) Loc() Location         { return n.Location }
func (n *Binary) Loc() Location        { return n.Location }
func (n *Ternary) Loc() Location       { return n.Location }
func (n *Comprehension) Loc() Location { return n.Location }
func (n *Call) Loc() Location          { return n.Location }
func (n *RegexMatch) Loc() Location    { return n.Location }
func (n *BuiltinRef) Loc() Location    { return n.Location }

func (*Literal) node()       {}
func (*Symbol) node()        {}
func (*Attribute) node()     {}
func (*Item) node()          {}
func (*Unary) node()         {}
func (*Binary) node()        {}
func (*Ternary) node()       {}
func (*Comprehension) node() {}
func (*Call) node()          {}
func (*RegexMatch) node()    {}
func (*BuiltinRef) node()    {}
