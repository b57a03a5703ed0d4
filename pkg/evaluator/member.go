package evaluator

import (
	"fmt"
	"strconv"

	"github.com/flowkit/safeexpr/pkg/types"
)

// cacheableScalar reports whether v is a type worth memoizing in the
// evaluator's property cache: primitive results only, per spec.md §4.F
// ("primitive results are memoized"). Arrays/maps/undefined are skipped —
// they're cheap to re-read and caching them would tie a value's lifetime to
// an object identity across Eval calls.
func cacheableScalar(v interface{}) bool {
	switch v.(type) {
	case float64, string, bool:
		return true
	}
	return v == nil
}

func (st *state) evalMember(n *types.Node, env map[string]interface{}, depth int) (interface{}, *types.Error) {
	obj, err := st.eval(n.Object, env, depth+1)
	if err != nil {
		return nil, err
	}
	if types.IsNullish(obj) {
		return types.Undefined, nil
	}

	if !n.Computed {
		if denylistHit(n.PropertyName) {
			return nil, types.NewError(types.ErrBlockedProperty,
				fmt.Sprintf("property %q is not allowed", n.PropertyName), n.Pos.Column)
		}
		return st.readProperty(obj, n.PropertyName), nil
	}

	key, err := st.eval(n.Property, env, depth+1)
	if err != nil {
		return nil, err
	}
	return st.readComputedProperty(obj, key, n.Pos), nil
}

func (st *state) readComputedProperty(obj, key interface{}, pos types.Position) interface{} {
	if s, ok := key.(string); ok {
		if denylistHit(s) {
			return types.Undefined
		}
		return st.readProperty(obj, s)
	}
	if n, ok := key.(float64); ok {
		return st.readIndex(obj, int(n))
	}
	return st.readProperty(obj, coerceToString(key))
}

// readProperty resolves a non-computed or string-keyed property access.
// "length" on arrays and strings is handled directly via len(), which is
// O(1) in Go for both slices and strings. Map lookups of primitive values
// go through the evaluator's bounded property cache, keyed on the map's
// identity plus the property name, since the same object/path combination
// recurs often inside a loop body or callback.
func (st *state) readProperty(obj interface{}, name string) interface{} {
	switch v := obj.(type) {
	case []interface{}:
		if name == "length" {
			return float64(len(v))
		}
		if idx, ok := parseArrayIndex(name); ok {
			return st.readIndex(v, idx)
		}
		return types.Undefined
	case string:
		if name == "length" {
			return float64(len([]rune(v)))
		}
		if idx, ok := parseArrayIndex(name); ok {
			runes := []rune(v)
			if idx < 0 || idx >= len(runes) {
				return types.Undefined
			}
			return string(runes[idx])
		}
		return types.Undefined
	case map[string]interface{}:
		key := fmt.Sprintf("%p.%s", v, name)
		if cached, ok := st.ev.propCache.Get(key); ok {
			return cached
		}
		val, ok := v[name]
		if !ok {
			val = types.Undefined
		}
		if cacheableScalar(val) {
			st.ev.propCache.Set(key, val)
		}
		return val
	default:
		return types.Undefined
	}
}

func (st *state) readIndex(obj interface{}, idx int) interface{} {
	arr, ok := obj.([]interface{})
	if !ok {
		return types.Undefined
	}
	if idx < 0 || idx >= len(arr) {
		return types.Undefined
	}
	return arr[idx]
}

func parseArrayIndex(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
