package evaluator

import "github.com/flowkit/safeexpr/pkg/types"

// dispatchCallback evaluates one of the array higher-order methods
// (filter, map, find, some, every, reduce). The callback must be an Arrow
// literal in argument position zero; anything else is reported as
// ErrMissingCallbackArg (the validator rejects such calls earlier when it
// runs).
//
// Each call into the callback body runs against an overlay context: a
// fresh map seeded with the outer env plus the callback's positional
// parameter bindings, never mutating env itself. Excess Arrow parameters
// beyond what a method supplies are bound to the undefined singleton.
//
// Per-method error policy: filter/find/some/every treat an element whose
// callback invocation errors as if the callback had returned false; map
// substitutes the undefined singleton for that element; reduce keeps the
// prior accumulator unchanged and continues with the next element.
func (st *state) dispatchCallback(n *types.Node, methodName string, arr []interface{}, env map[string]interface{}, depth int) (interface{}, *types.Error) {
	if len(n.Arguments) == 0 || n.Arguments[0] == nil || n.Arguments[0].Kind != types.KindArrow {
		return nil, types.NewError(types.ErrMissingCallbackArg, methodName+" requires an arrow function as its first argument", n.Pos.Column)
	}

	switch methodName {
	case "reduce":
		return st.dispatchReduce(n, arr, env, depth)
	}

	callback := n.Arguments[0]

	switch methodName {
	case "filter":
		out := make([]interface{}, 0, len(arr))
		for i, el := range arr {
			v, err := st.callArrow(callback, []interface{}{el, float64(i), arr}, env, depth)
			keep := err == nil && truthy(v)
			if keep {
				out = append(out, el)
			}
		}
		return out, nil
	case "map":
		out := make([]interface{}, len(arr))
		for i, el := range arr {
			v, err := st.callArrow(callback, []interface{}{el, float64(i), arr}, env, depth)
			if err != nil {
				out[i] = types.Undefined
				continue
			}
			out[i] = v
		}
		return out, nil
	case "find":
		for i, el := range arr {
			v, err := st.callArrow(callback, []interface{}{el, float64(i), arr}, env, depth)
			if err == nil && truthy(v) {
				return el, nil
			}
		}
		return types.Undefined, nil
	case "some":
		for i, el := range arr {
			v, err := st.callArrow(callback, []interface{}{el, float64(i), arr}, env, depth)
			if err == nil && truthy(v) {
				return true, nil
			}
		}
		return false, nil
	case "every":
		for i, el := range arr {
			v, err := st.callArrow(callback, []interface{}{el, float64(i), arr}, env, depth)
			ok := err == nil && truthy(v)
			if !ok {
				return false, nil
			}
		}
		return true, nil
	default:
		return nil, types.NewError(types.ErrUnknownFunction, "unknown callback method \""+methodName+"\"", n.Pos.Column)
	}
}

// dispatchReduce implements reduce's distinct arity: the callback receives
// (accumulator, element, index, array) and an optional second call argument
// supplies the initial accumulator. Per spec.md §4.F, when no initial value
// is given the accumulator starts as the undefined singleton rather than the
// array's first element.
func (st *state) dispatchReduce(n *types.Node, arr []interface{}, env map[string]interface{}, depth int) (interface{}, *types.Error) {
	callback := n.Arguments[0]

	var acc interface{} = types.Undefined
	if len(n.Arguments) > 1 {
		v, err := st.eval(n.Arguments[1], env, depth+1)
		if err != nil {
			return nil, err
		}
		acc = v
	}

	for i, el := range arr {
		v, err := st.callArrow(callback, []interface{}{acc, el, float64(i), arr}, env, depth)
		if err != nil {
			continue
		}
		acc = v
	}
	return acc, nil
}

// callArrow binds args positionally to callback's declared parameters in an
// overlay context derived from env, then evaluates the Arrow's body. Extra
// declared parameters beyond len(args) bind to the undefined singleton;
// extra args beyond the declared parameters are simply unreachable by name.
func (st *state) callArrow(callback *types.Node, args []interface{}, env map[string]interface{}, depth int) (interface{}, *types.Error) {
	overlay := make(map[string]interface{}, len(env)+len(callback.Params))
	for k, v := range env {
		overlay[k] = v
	}
	for i, p := range callback.Params {
		if i < len(args) {
			overlay[p] = args[i]
		} else {
			overlay[p] = types.Undefined
		}
	}
	return st.eval(callback.Body, overlay, depth+1)
}
