package evaluator

import (
	"math"
	"strings"

	"github.com/flowkit/safeexpr/pkg/types"
)

func (st *state) evalBinary(n *types.Node, env map[string]interface{}, depth int) (interface{}, *types.Error) {
	left, err := st.eval(n.Left, env, depth+1)
	if err != nil {
		return nil, err
	}
	right, err := st.eval(n.Right, env, depth+1)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case "+":
		return evalAdd(left, right), nil
	case "-":
		return coerceToNumber(left) - coerceToNumber(right), nil
	case "*":
		return coerceToNumber(left) * coerceToNumber(right), nil
	case "/":
		// IEEE-754 division semantics: division by zero yields ±Inf or NaN,
		// never an error (spec.md §4.F).
		return coerceToNumber(left) / coerceToNumber(right), nil
	case "%":
		return math.Mod(coerceToNumber(left), coerceToNumber(right)), nil
	case "**":
		return math.Pow(coerceToNumber(left), coerceToNumber(right)), nil
	case "<":
		c, ok := compare(left, right)
		return ok && c < 0, nil
	case "<=":
		c, ok := compare(left, right)
		return ok && c <= 0, nil
	case ">":
		c, ok := compare(left, right)
		return ok && c > 0, nil
	case ">=":
		c, ok := compare(left, right)
		return ok && c >= 0, nil
	case "==":
		return looseEquals(left, right), nil
	case "!=":
		return !looseEquals(left, right), nil
	case "===":
		return strictEquals(left, right), nil
	case "!==":
		return !strictEquals(left, right), nil
	case "in":
		return evalIn(left, right), nil
	default:
		return nil, types.NewError(types.ErrBlockedOperator, "unsupported binary operator "+n.Op, n.Pos.Column)
	}
}

// evalAdd implements the dual-mode `+`: numeric addition unless either
// operand is a string, in which case both sides are coerced to strings and
// concatenated, matching common C-family host semantics.
func evalAdd(left, right interface{}) interface{} {
	_, leftIsString := left.(string)
	_, rightIsString := right.(string)
	if leftIsString || rightIsString {
		return coerceToString(left) + coerceToString(right)
	}
	return coerceToNumber(left) + coerceToNumber(right)
}

// compare orders two values numerically unless both are strings, in which
// case it uses lexicographic string comparison. ok is false when either
// numeric operand is NaN, in which case every relational operator is false.
func compare(left, right interface{}) (c int, ok bool) {
	if ls, lok := left.(string); lok {
		if rs, rok := right.(string); rok {
			switch {
			case ls < rs:
				return -1, true
			case ls > rs:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	ln, rn := coerceToNumber(left), coerceToNumber(right)
	if math.IsNaN(ln) || math.IsNaN(rn) {
		return 0, false
	}
	switch {
	case ln < rn:
		return -1, true
	case ln > rn:
		return 1, true
	default:
		return 0, true
	}
}

// strictEquals requires matching dynamic types, mirroring `===`.
func strictEquals(a, b interface{}) bool {
	if types.IsUndefined(a) || types.IsUndefined(b) {
		return types.IsUndefined(a) && types.IsUndefined(b)
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv && !math.IsNaN(av)
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	default:
		return false
	}
}

// looseEquals implements `==`: null and undefined are mutually equal and
// equal only to each other; otherwise falls back to strict comparison
// after coercing a number/string pair to numbers.
func looseEquals(a, b interface{}) bool {
	if types.IsNullish(a) || types.IsNullish(b) {
		return types.IsNullish(a) && types.IsNullish(b)
	}
	_, aStr := a.(string)
	_, bStr := b.(string)
	_, aNum := a.(float64)
	_, bNum := b.(float64)
	if aStr != bStr && (aNum || bNum) {
		return coerceToNumber(a) == coerceToNumber(b)
	}
	return strictEquals(a, b)
}

// evalIn implements the `in` operator: string containment when right is a
// string, key/index presence otherwise.
func evalIn(left, right interface{}) bool {
	switch r := right.(type) {
	case map[string]interface{}:
		_, ok := r[coerceToString(left)]
		return ok
	case []interface{}:
		idx, ok := parseArrayIndex(coerceToString(left))
		return ok && idx >= 0 && idx < len(r)
	case string:
		return strings.Contains(r, coerceToString(left))
	default:
		return false
	}
}
