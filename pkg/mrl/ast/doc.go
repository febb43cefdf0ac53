// Package ast defines the immutable syntax tree for MRL rule expressions.
//
// MRL (Mercator Rule Language) is a small expression language for writing
// rules that are evaluated against arbitrary host values. The parser in
// pkg/mrl/parser produces trees of the node types defined here; the
// evaluator in pkg/rule walks them. Nodes are never mutated after
// construction, which makes a parsed expression safe for unsynchronized
// concurrent evaluation.
//
// Every node carries a Location pointing back into the original rule text
// for error reporting.
package ast
