package evaluator

import (
	"github.com/flowkit/safeexpr/pkg/types"
)

func (st *state) evalUnary(n *types.Node, env map[string]interface{}, depth int) (interface{}, *types.Error) {
	switch n.Op {
	case "void":
		if _, err := st.eval(n.Left, env, depth+1); err != nil {
			return nil, err
		}
		return types.Undefined, nil
	case "typeof":
		v, err := st.eval(n.Left, env, depth+1)
		if err != nil {
			return nil, err
		}
		return typeofString(v), nil
	}

	v, err := st.eval(n.Left, env, depth+1)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "+":
		return coerceToNumber(v), nil
	case "-":
		return -coerceToNumber(v), nil
	case "!":
		return !truthy(v), nil
	default:
		return nil, types.NewError(types.ErrBlockedOperator, "unsupported unary operator "+n.Op, n.Pos.Column)
	}
}

// typeofString mirrors the host typeof operator. The validator rejects
// typeof anywhere in a tree, callback bodies included, so this is reached
// only when validation is skipped (WithStrict(false), or Eval called
// directly); see DESIGN.md for why the evaluator still implements it.
func typeofString(v interface{}) string {
	if types.IsUndefined(v) {
		return "undefined"
	}
	switch v.(type) {
	case nil:
		return "object"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []interface{}, map[string]interface{}:
		return "object"
	case *types.Node:
		return "function"
	default:
		return "object"
	}
}
