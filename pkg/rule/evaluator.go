package rule

import (
	"context"
	"errors"
	"regexp"
	"unicode/utf8"

	"mercator-hq/callisto/pkg/mrl/ast"
	rerrors "mercator-hq/callisto/pkg/mrl/errors"
	"mercator-hq/callisto/pkg/mrl/types"
)

// evaluator walks a rule's syntax tree. One evaluator is shared by the
// blocking and suspension-capable entry points: the mode lives in the
// EvaluationState, which is threaded through every recursive step and
// never escapes the call it belongs to.
type evaluator struct {
	rctx *Context
}

func (e *evaluator) eval(n ast.Node, st *EvaluationState) (types.Value, error) {
	switch node := n.(type) {
	case *ast.Literal:
		return node.Value, nil
	case *ast.Symbol:
		return e.evalSymbol(node, st)
	case *ast.Attribute:
		return e.evalAttribute(node, st)
	case *ast.Item:
		return e.evalItem(node, st)
	case *ast.Unary:
		return e.evalUnary(node, st)
	case *ast.Binary:
		return e.evalBinary(node, st)
	case *ast.Ternary:
		return e.evalTernary(node, st)
	case *ast.Comprehension:
		return e.evalComprehension(node, st)
	case *ast.Call:
		return e.evalCall(node, st)
	case *ast.RegexMatch:
		return e.evalRegexMatch(node, st)
	case *ast.BuiltinRef:
		return e.evalBuiltin(node, st)
	}
	return nil, &rerrors.EvaluationError{Message: "unknown expression node"}
}

// evalSymbol resolves a bare name: comprehension loop variables shadow
// the resolver; unresolved names fall back to the context default value
// or fail.
func (e *evaluator) evalSymbol(n *ast.Symbol, st *EvaluationState) (types.Value, error) {
	if v, ok := st.lookupScope(n.Name); ok {
		return v, nil
	}

	res, err := e.rctx.resolver(st.thing, n.Name)
	if err != nil {
		if errors.Is(err, ErrUnresolved) {
			if e.rctx.defaultValue != nil {
				return e.rctx.defaultValue, nil
			}
			return nil, &rerrors.SymbolResolutionError{Symbol: n.Name}
		}
		return nil, err
	}
	return st.realize(n.Name, res)
}

// evalAttribute resolves base.name: builtin value attributes first, then
// host attribute lookup, then mapping keys.
func (e *evaluator) evalAttribute(n *ast.Attribute, st *EvaluationState) (types.Value, error) {
	base, err := e.eval(n.Base, st)
	if err != nil {
		return nil, err
	}

	if v, ok := builtinAttribute(base, n.Name); ok {
		return v, nil
	}

	res, err := ResolveAttribute(base, n.Name)
	if err == nil {
		return st.realize(n.Name, res)
	}
	if !errors.Is(err, ErrUnresolved) {
		return nil, err
	}

	// Mappings expose their keys through attribute syntax as well, so
	// data.score and data["score"] are interchangeable.
	if mv, ok := base.(types.Mapping); ok {
		if v, ok := mv.Entries[n.Name]; ok {
			return v, nil
		}
	}

	return nil, &rerrors.AttributeResolutionError{
		Attribute: n.Name,
		BaseKind:  string(base.Kind()),
	}
}

// builtinAttribute resolves the attributes every value of a kind carries,
// independent of the host: currently length on strings, arrays and
// mappings.
func builtinAttribute(base types.Value, name string) (types.Value, bool) {
	if name != "length" {
		return nil, false
	}
	switch bv := base.(type) {
	case types.String:
		return types.NewNumberFromInt64(int64(utf8.RuneCountInString(bv.Value))), true
	case types.Array:
		return types.NewNumberFromInt64(int64(len(bv.Items))), true
	case types.Mapping:
		return types.NewNumberFromInt64(int64(len(bv.Entries))), true
	}
	return nil, false
}

// evalItem resolves base[key] for arrays (integer index, negative counts
// from the end), mappings (string key) and strings (single rune).
func (e *evaluator) evalItem(n *ast.Item, st *EvaluationState) (types.Value, error) {
	base, err := e.eval(n.Base, st)
	if err != nil {
		return nil, err
	}
	key, err := e.eval(n.Key, st)
	if err != nil {
		return nil, err
	}

	switch bv := base.(type) {
	case types.Array:
		idx, ok := sequenceIndex(key, len(bv.Items))
		if !ok {
			return nil, itemError(key, base)
		}
		return bv.Items[idx], nil

	case types.String:
		runes := []rune(bv.Value)
		idx, ok := sequenceIndex(key, len(runes))
		if !ok {
			return nil, itemError(key, base)
		}
		return types.NewString(string(runes[idx])), nil

	case types.Mapping:
		kv, ok := key.(types.String)
		if !ok {
			return nil, itemError(key, base)
		}
		if v, ok := bv.Entries[kv.Value]; ok {
			return v, nil
		}
		return nil, itemError(key, base)
	}

	return nil, itemError(key, base)
}

// sequenceIndex converts an index value into a position within a
// sequence of the given length, supporting negative indexes.
func sequenceIndex(key types.Value, length int) (int, bool) {
	nv, ok := key.(types.Number)
	if !ok {
		return 0, false
	}
	i, err := nv.Int64()
	if err != nil {
		return 0, false
	}
	if i < 0 {
		i += int64(length)
	}
	if i < 0 || i >= int64(length) {
		return 0, false
	}
	return int(i), true
}

func itemError(key, base types.Value) error {
	return &rerrors.ItemResolutionError{
		Key:      keyString(key),
		BaseKind: string(base.Kind()),
	}
}

// keyString renders an item key for error messages.
func keyString(key types.Value) string {
	switch kv := key.(type) {
	case types.String:
		return kv.Value
	case types.Number:
		return kv.String()
	}
	return string(key.Kind())
}

func (e *evaluator) evalUnary(n *ast.Unary, st *EvaluationState) (types.Value, error) {
	operand, err := e.eval(n.Operand, st)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case ast.OpNot:
		return types.Not(operand), nil
	case ast.OpNeg:
		return types.Negate(operand)
	}
	return nil, &rerrors.EvaluationError{Message: "unknown unary operator " + string(n.Op)}
}

func (e *evaluator) evalBinary(n *ast.Binary, st *EvaluationState) (types.Value, error) {
	// and/or short-circuit on the left operand's truthiness and yield
	// the deciding operand itself, so the right subtree (resolver calls
	// included) never runs when the left already settles the result.
	if n.Op == ast.OpAnd || n.Op == ast.OpOr {
		left, err := e.eval(n.Left, st)
		if err != nil {
			return nil, err
		}
		if n.Op == ast.OpAnd && !left.Truthy() {
			return left, nil
		}
		if n.Op == ast.OpOr && left.Truthy() {
			return left, nil
		}
		return e.eval(n.Right, st)
	}

	left, err := e.eval(n.Left, st)
	if err != nil {
		return nil, err
	}
	right, err := e.eval(n.Right, st)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ast.OpAdd:
		return types.Add(left, right)
	case ast.OpSub:
		return types.Subtract(left, right)
	case ast.OpMul:
		return types.Multiply(left, right)
	case ast.OpDiv:
		return types.Divide(left, right)
	case ast.OpFloorDiv:
		return types.FloorDivide(left, right)
	case ast.OpMod:
		return types.Modulo(left, right)
	case ast.OpEq:
		eq, err := types.Equals(left, right)
		if err != nil {
			return nil, err
		}
		return types.NewBool(eq), nil
	case ast.OpNe:
		eq, err := types.Equals(left, right)
		if err != nil {
			return nil, err
		}
		return types.NewBool(!eq), nil
	case ast.OpGt, ast.OpGe, ast.OpLt, ast.OpLe:
		ord, err := types.Order(string(n.Op), left, right)
		if err != nil {
			return nil, err
		}
		return types.NewBool(ord), nil
	case ast.OpIn:
		in, err := types.Contains(left, right)
		if err != nil {
			return nil, err
		}
		return types.NewBool(in), nil
	}
	return nil, &rerrors.EvaluationError{Message: "unknown binary operator " + string(n.Op)}
}

// evalTernary evaluates the condition and then only the selected branch;
// the unselected subtree never runs.
func (e *evaluator) evalTernary(n *ast.Ternary, st *EvaluationState) (types.Value, error) {
	cond, err := e.eval(n.Cond, st)
	if err != nil {
		return nil, err
	}
	if cond.Truthy() {
		return e.eval(n.Then, st)
	}
	return e.eval(n.Else, st)
}

// evalComprehension iterates the source sequence in order, binding the
// loop variable in a fresh scope per element. The scope is popped on
// every exit path, including errors thrown mid-iteration, so the scope
// stack is back at its entry depth whenever this returns.
func (e *evaluator) evalComprehension(n *ast.Comprehension, st *EvaluationState) (types.Value, error) {
	iterable, err := e.eval(n.Iterable, st)
	if err != nil {
		return nil, err
	}
	arr, ok := iterable.(types.Array)
	if !ok {
		return nil, &rerrors.TypeError{Op: "comprehension", Left: string(iterable.Kind())}
	}

	kept := make([]types.Value, 0, len(arr.Items))
	for _, item := range arr.Items {
		v, keep, err := e.evalComprehensionElement(n, item, st)
		if err != nil {
			return nil, err
		}
		if keep {
			kept = append(kept, v)
		}
	}
	return types.NewArray(kept), nil
}

// evalComprehensionElement runs filter and element expressions for one
// iteration under its own scope; the deferred pop guarantees release on
// error paths.
func (e *evaluator) evalComprehensionElement(n *ast.Comprehension, item types.Value, st *EvaluationState) (types.Value, bool, error) {
	st.pushScope(n.Var, item)
	defer st.popScope()

	if n.Filter != nil {
		fv, err := e.eval(n.Filter, st)
		if err != nil {
			return nil, false, err
		}
		if !fv.Truthy() {
			return nil, false, nil
		}
	}
	v, err := e.eval(n.Elem, st)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// evalCall resolves the callee to a callable and invokes it. Arguments
// evaluate strictly left to right, sequentially, in both modes. A
// suspending callable is an error in blocking mode; the suspension-
// capable mode awaits its result.
func (e *evaluator) evalCall(n *ast.Call, st *EvaluationState) (types.Value, error) {
	callee, err := e.eval(n.Callee, st)
	if err != nil {
		return nil, err
	}
	callable, ok := callee.(types.Callable)
	if !ok {
		return nil, &rerrors.TypeError{Op: "call", Left: string(callee.Kind())}
	}

	args := make([]types.Value, len(n.Args))
	for i, argNode := range n.Args {
		arg, err := e.eval(argNode, st)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}

	name := calleeName(n.Callee, callable)
	if callable.Suspending() {
		return st.await(name, func(ctx context.Context) (types.Value, error) {
			return callable.InvokeContext(ctx, args)
		})
	}
	return callable.Invoke(args)
}

// calleeName derives a human-readable callee name for error messages.
func calleeName(callee ast.Node, callable types.Callable) string {
	switch cn := callee.(type) {
	case *ast.Symbol:
		return cn.Name
	case *ast.Attribute:
		return cn.Name
	}
	if callable.Name != "" {
		return callable.Name
	}
	return "callable"
}

// evalRegexMatch evaluates left =~ pattern (or !~). A successful match
// overwrites this evaluation's capture groups; a failed match clears
// them. Other concurrent evaluations are unaffected since the groups
// live on the per-call state.
func (e *evaluator) evalRegexMatch(n *ast.RegexMatch, st *EvaluationState) (types.Value, error) {
	left, err := e.eval(n.Left, st)
	if err != nil {
		return nil, err
	}
	pattern, err := e.eval(n.Pattern, st)
	if err != nil {
		return nil, err
	}

	lv, ok := left.(types.String)
	if !ok {
		return nil, &rerrors.TypeError{Op: matchOp(n), Left: string(left.Kind()), Right: string(pattern.Kind())}
	}
	pv, ok := pattern.(types.String)
	if !ok {
		return nil, &rerrors.TypeError{Op: matchOp(n), Left: string(left.Kind()), Right: string(pattern.Kind())}
	}

	re, err := regexp.Compile(e.rctx.regexFlags.expr() + pv.Value)
	if err != nil {
		return nil, &rerrors.RegexSyntaxError{Pattern: pv.Value, Err: err}
	}

	m := re.FindStringSubmatch(lv.Value)
	if m == nil {
		st.groups = nil
		return types.NewBool(n.Negated), nil
	}
	st.groups = m[1:]
	return types.NewBool(!n.Negated), nil
}

func matchOp(n *ast.RegexMatch) string {
	if n.Negated {
		return "!~"
	}
	return "=~"
}
