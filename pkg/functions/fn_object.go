package functions

import "context"

func registerObjectFunctions(r *Registry) {
	register(r, &SafeFunction{
		Name: "Object.keys", Category: "object", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{ArgObject},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			obj := args[0].(map[string]interface{})
			out := make([]interface{}, 0, len(obj))
			for k := range obj {
				out = append(out, k)
			}
			return out, nil
		},
	}, "keys")

	register(r, &SafeFunction{
		Name: "Object.values", Category: "object", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{ArgObject},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			obj := args[0].(map[string]interface{})
			out := make([]interface{}, 0, len(obj))
			for _, v := range obj {
				out = append(out, v)
			}
			return out, nil
		},
	}, "values")

	register(r, &SafeFunction{
		Name: "Object.entries", Category: "object", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{ArgObject},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			obj := args[0].(map[string]interface{})
			out := make([]interface{}, 0, len(obj))
			for k, v := range obj {
				out = append(out, []interface{}{k, v})
			}
			return out, nil
		},
	}, "entries")
}
