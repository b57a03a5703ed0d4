package functions

import (
	"context"
	"encoding/json"
)

func registerJSONFunctions(r *Registry) {
	register(r, &SafeFunction{
		Name: "JSON.parse", Category: "json", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{ArgString},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			var v interface{}
			// JSON.parse traps failure and returns null rather than raising
			// (spec.md §4.B).
			if err := json.Unmarshal([]byte(args[0].(string)), &v); err != nil {
				return nil, nil
			}
			return v, nil
		},
	})

	register(r, &SafeFunction{
		Name: "JSON.stringify", Category: "json", MinArgs: 1, MaxArgs: 1,
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			b, err := json.Marshal(args[0])
			if err != nil {
				// JSON.stringify returns the literal string "null" on
				// failure, not the null value, because callers embed the
				// result directly in text (spec.md §9).
				return "null", nil
			}
			return string(b), nil
		},
	})
}
