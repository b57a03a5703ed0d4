package functions

import "context"

func registerUtilityFunctions(r *Registry) {
	register(r, &SafeFunction{
		Name: "isEmpty", Category: "utility", MinArgs: 1, MaxArgs: 1,
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			switch v := args[0].(type) {
			case nil:
				return true, nil
			case string:
				return v == "", nil
			case []interface{}:
				return len(v) == 0, nil
			case map[string]interface{}:
				return len(v) == 0, nil
			default:
				return false, nil
			}
		},
	})

	register(r, &SafeFunction{
		Name: "hasField", Category: "utility", MinArgs: 2, MaxArgs: 2, ArgTypes: []ArgType{ArgObject, ArgString},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			obj := args[0].(map[string]interface{})
			_, ok := obj[args[1].(string)]
			return ok, nil
		},
	})
}
