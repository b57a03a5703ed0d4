package functions

import (
	"context"

	"github.com/flowkit/safeexpr/pkg/types"
)

func registerConditionalFunctions(r *Registry) {
	register(r, &SafeFunction{
		Name: "$if", Category: "conditional", MinArgs: 2, MaxArgs: 3,
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			if isTruthy(args[0]) {
				return args[1], nil
			}
			if len(args) == 3 {
				return args[2], nil
			}
			return nil, nil
		},
	})

	register(r, &SafeFunction{
		Name: "$and", Category: "conditional", MinArgs: 0, MaxArgs: -1,
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			for _, a := range args {
				if !isTruthy(a) {
					return false, nil
				}
			}
			return true, nil
		},
	})

	register(r, &SafeFunction{
		Name: "$or", Category: "conditional", MinArgs: 0, MaxArgs: -1,
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			for _, a := range args {
				if isTruthy(a) {
					return true, nil
				}
			}
			return false, nil
		},
	})

	register(r, &SafeFunction{
		Name: "$not", Category: "conditional", MinArgs: 1, MaxArgs: 1,
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			return !isTruthy(args[0]), nil
		},
	})
}

// isTruthy mirrors the evaluator's truthiness rules so registered functions
// agree with Logical/Conditional node semantics (spec.md §4.F).
func isTruthy(v interface{}) bool {
	if types.IsNullish(v) {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0 && t == t // excludes 0 and NaN
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
