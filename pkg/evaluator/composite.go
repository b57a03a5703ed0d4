package evaluator

import "github.com/flowkit/safeexpr/pkg/types"

// evalArray evaluates elements left-to-right; a nil element (a hole from an
// elision like [1, , 3]) yields the Undefined singleton.
func (st *state) evalArray(n *types.Node, env map[string]interface{}, depth int) (interface{}, *types.Error) {
	out := make([]interface{}, len(n.Elements))
	for i, el := range n.Elements {
		if el == nil {
			out[i] = types.Undefined
			continue
		}
		v, err := st.eval(el, env, depth+1)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// evalObject evaluates properties in textual order; computed keys coerce to
// string via the host's standard string conversion, and duplicate keys
// keep the last value written.
func (st *state) evalObject(n *types.Node, env map[string]interface{}, depth int) (interface{}, *types.Error) {
	out := make(map[string]interface{}, len(n.Properties))
	for _, p := range n.Properties {
		key, err := st.objectKey(p, env, depth)
		if err != nil {
			return nil, err
		}
		val, err := st.eval(p.Value, env, depth+1)
		if err != nil {
			return nil, err
		}
		out[key] = val
	}
	return out, nil
}

func (st *state) objectKey(p types.ObjectProperty, env map[string]interface{}, depth int) (string, *types.Error) {
	if p.Computed {
		v, err := st.eval(p.Key, env, depth+1)
		if err != nil {
			return "", err
		}
		return coerceToString(v), nil
	}
	if p.Key.Kind == types.KindIdentifier {
		return p.Key.Name, nil
	}
	// Non-computed literal key (string or number), e.g. { "a-b": 1 } or { 2: "x" }.
	v, err := st.eval(p.Key, env, depth+1)
	if err != nil {
		return "", err
	}
	return coerceToString(v), nil
}
