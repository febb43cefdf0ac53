// Package ruleset defines YAML rule set documents: named collections of
// MRL expressions with actions, priorities and tags. A rule set is the
// unit of loading and reloading; the engine package evaluates compiled
// sets against host values.
package ruleset
