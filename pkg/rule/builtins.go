package rule

import (
	"time"

	"mercator-hq/callisto/pkg/mrl/ast"
	rerrors "mercator-hq/callisto/pkg/mrl/errors"
	"mercator-hq/callisto/pkg/mrl/types"
)

// evalBuiltin resolves a $-prefixed builtin reference.
//
//	$re_groups  capture groups of the most recent regex match within
//	            this evaluation, as an array of strings
//	$now        current timestamp (RFC 3339) in the context timezone
//	$today      current date (YYYY-MM-DD) in the context timezone
func (e *evaluator) evalBuiltin(n *ast.BuiltinRef, st *EvaluationState) (types.Value, error) {
	switch n.Name {
	case "re_groups":
		groups := make([]types.Value, len(st.groups))
		for i, g := range st.groups {
			groups[i] = types.NewString(g)
		}
		return types.NewArray(groups), nil

	case "now":
		return types.NewString(time.Now().In(e.rctx.timezone).Format(time.RFC3339)), nil

	case "today":
		return types.NewString(time.Now().In(e.rctx.timezone).Format("2006-01-02")), nil
	}

	return nil, &rerrors.SymbolResolutionError{Symbol: "$" + n.Name}
}
