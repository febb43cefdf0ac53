// Package types implements the MRL runtime value model.
//
// Every value flowing through rule evaluation is a Value: null, boolean,
// number, string, array, mapping, callable, or an opaque host object.
// Numbers are exact decimals backed by math/big.Rat, so arithmetic and
// comparison never round through binary floating point and 0.1 + 0.2 == 0.3
// holds.
//
// The operator semantics in ops.go are pure functions over Values: which
// kind pairs are legal for each operator, and what kind the result has.
// Illegal pairs produce a *errors.TypeError naming the operator and both
// kinds; there is no implicit coercion between kinds.
//
// convert.go bridges between host Go values and Values. Host functions and
// bound methods become Callables: immediate when plain, suspending when
// their first parameter is a context.Context. A suspending callable can
// only be invoked from the suspension-capable evaluation path.
package types
