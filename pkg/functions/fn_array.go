package functions

import (
	"context"
	"fmt"
	"strings"
)

func registerArrayFunctions(r *Registry) {
	register(r, &SafeFunction{
		Name: "length", Category: "array", MinArgs: 1, MaxArgs: 1,
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			switch v := args[0].(type) {
			case []interface{}:
				return float64(len(v)), nil
			case string:
				return float64(len([]rune(v))), nil
			default:
				return nil, fmt.Errorf("length: expected array or string")
			}
		},
	}, "Array.length")

	register(r, &SafeFunction{
		Name: "join", Category: "array", MinArgs: 1, MaxArgs: 2, ArgTypes: []ArgType{ArgArray},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			sep := ""
			if len(args) == 2 {
				s, ok := args[1].(string)
				if !ok {
					return nil, fmt.Errorf("join: separator must be a string")
				}
				sep = s
			}
			arr := args[0].([]interface{})
			parts := make([]string, len(arr))
			for i, v := range arr {
				parts[i] = coerceToString(v)
			}
			return strings.Join(parts, sep), nil
		},
	}, "Array.join")

	register(r, &SafeFunction{
		Name: "slice", Category: "array", MinArgs: 2, MaxArgs: 3, ArgTypes: []ArgType{ArgArray},
		Impl: fnArraySlice,
	}, "Array.slice")

	register(r, &SafeFunction{
		Name: "first", Category: "array", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{ArgArray},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			arr := args[0].([]interface{})
			if len(arr) == 0 {
				return nil, nil
			}
			return arr[0], nil
		},
	}, "Array.first")

	register(r, &SafeFunction{
		Name: "last", Category: "array", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{ArgArray},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			arr := args[0].([]interface{})
			if len(arr) == 0 {
				return nil, nil
			}
			return arr[len(arr)-1], nil
		},
	}, "Array.last")

	register(r, &SafeFunction{
		Name: "reverse", Category: "array", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{ArgArray},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			arr := args[0].([]interface{})
			out := make([]interface{}, len(arr))
			for i, v := range arr {
				out[len(arr)-1-i] = v
			}
			return out, nil
		},
	}, "Array.reverse")

	register(r, &SafeFunction{
		Name: "flatten", Category: "array", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{ArgArray},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			return flattenOne(args[0].([]interface{})), nil
		},
	}, "Array.flatten")

	register(r, &SafeFunction{
		Name: "unique", Category: "array", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{ArgArray},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			arr := args[0].([]interface{})
			out := make([]interface{}, 0, len(arr))
			seen := make(map[string]struct{}, len(arr))
			for _, v := range arr {
				key := fmt.Sprintf("%T:%v", v, v)
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, v)
			}
			return out, nil
		},
	}, "Array.unique")

	register(r, &SafeFunction{
		Name: "chunk", Category: "array", MinArgs: 2, MaxArgs: 2, ArgTypes: []ArgType{ArgArray, ArgNumber},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			arr := args[0].([]interface{})
			size := int(args[1].(float64))
			if size <= 0 {
				return nil, fmt.Errorf("chunk: size must be positive")
			}
			var out []interface{}
			for i := 0; i < len(arr); i += size {
				end := i + size
				if end > len(arr) {
					end = len(arr)
				}
				out = append(out, append([]interface{}{}, arr[i:end]...))
			}
			if out == nil {
				out = []interface{}{}
			}
			return out, nil
		},
	}, "Array.chunk")
}

func fnArraySlice(_ context.Context, args []interface{}) (interface{}, error) {
	arr := args[0].([]interface{})
	start, err := argIndex(args[1])
	if err != nil {
		return nil, fmt.Errorf("slice: %w", err)
	}
	end := len(arr)
	if len(args) == 3 {
		end, err = argIndex(args[2])
		if err != nil {
			return nil, fmt.Errorf("slice: %w", err)
		}
	}
	start = clampIndex(start, len(arr))
	end = clampIndex(end, len(arr))
	if end < start {
		end = start
	}
	return append([]interface{}{}, arr[start:end]...), nil
}

func flattenOne(arr []interface{}) []interface{} {
	out := make([]interface{}, 0, len(arr))
	for _, v := range arr {
		if sub, ok := v.([]interface{}); ok {
			out = append(out, sub...)
		} else {
			out = append(out, v)
		}
	}
	return out
}
