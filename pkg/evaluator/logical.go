package evaluator

import "github.com/flowkit/safeexpr/pkg/types"

// evalLogical implements &&, ||, and ?? with short-circuit evaluation: the
// right operand is evaluated only when the left operand's truthiness (or
// nullishness, for ??) does not already determine the result.
func (st *state) evalLogical(n *types.Node, env map[string]interface{}, depth int) (interface{}, *types.Error) {
	left, err := st.eval(n.Left, env, depth+1)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case "&&":
		if !truthy(left) {
			return left, nil
		}
	case "||":
		if truthy(left) {
			return left, nil
		}
	case "??":
		if !types.IsNullish(left) {
			return left, nil
		}
	default:
		return nil, types.NewError(types.ErrBlockedOperator, "unsupported logical operator "+n.Op, n.Pos.Column)
	}

	return st.eval(n.Right, env, depth+1)
}

func (st *state) evalConditional(n *types.Node, env map[string]interface{}, depth int) (interface{}, *types.Error) {
	test, err := st.eval(n.Test, env, depth+1)
	if err != nil {
		return nil, err
	}
	if truthy(test) {
		return st.eval(n.Consequent, env, depth+1)
	}
	return st.eval(n.Alternate, env, depth+1)
}
