package evaluator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/flowkit/safeexpr/pkg/types"
)

func nan() float64    { return math.NaN() }
func posInf() float64 { return math.Inf(1) }

// truthy implements JS-style truthiness for conditional/logical/unary-not
// contexts (spec.md §4.F): nil and Undefined are falsy; false and numeric
// zero/NaN are falsy; empty string, empty array, empty object are falsy.
func truthy(v interface{}) bool {
	if types.IsNullish(v) {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	default:
		return true
	}
}

// coerceToNumber mirrors IEEE-754 numeric coercion, grounded the same way
// as pkg/functions' coerceToNumber: non-numeric inputs coerce to NaN, never
// an error.
func coerceToNumber(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
		return math.NaN()
	case nil:
		return 0
	default:
		return math.NaN()
	}
}

// coerceToString is the host's standard string conversion, used for
// computed object keys and the `+` operator's string-concatenation branch.
func coerceToString(v interface{}) string {
	if types.IsUndefined(v) {
		return "undefined"
	}
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return formatNumber(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func formatNumber(n float64) string {
	if math.IsNaN(n) {
		return "NaN"
	}
	if math.IsInf(n, 1) {
		return "Infinity"
	}
	if math.IsInf(n, -1) {
		return "-Infinity"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}
