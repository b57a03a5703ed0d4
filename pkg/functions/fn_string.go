package functions

import (
	"context"
	"fmt"
	"strings"
)

func registerStringFunctions(r *Registry) {
	register(r, &SafeFunction{
		Name: "trim", Category: "string", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{ArgString},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			return strings.TrimSpace(args[0].(string)), nil
		},
	}, "String.trim")

	register(r, &SafeFunction{
		Name: "toUpperCase", Category: "string", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{ArgString},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			return strings.ToUpper(args[0].(string)), nil
		},
	}, "String.toUpperCase")

	register(r, &SafeFunction{
		Name: "toLowerCase", Category: "string", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{ArgString},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			return strings.ToLower(args[0].(string)), nil
		},
	}, "String.toLowerCase")

	register(r, &SafeFunction{
		Name: "slice", Category: "string", MinArgs: 2, MaxArgs: 3, ArgTypes: []ArgType{ArgString},
		Impl: fnStringSlice,
	}, "String.slice")

	register(r, &SafeFunction{
		Name: "includes", Category: "string", MinArgs: 2, MaxArgs: 2, ArgTypes: []ArgType{ArgString, ArgString},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			return strings.Contains(args[0].(string), args[1].(string)), nil
		},
	}, "String.includes")

	register(r, &SafeFunction{
		Name: "startsWith", Category: "string", MinArgs: 2, MaxArgs: 2, ArgTypes: []ArgType{ArgString, ArgString},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			return strings.HasPrefix(args[0].(string), args[1].(string)), nil
		},
	}, "String.startsWith")

	register(r, &SafeFunction{
		Name: "endsWith", Category: "string", MinArgs: 2, MaxArgs: 2, ArgTypes: []ArgType{ArgString, ArgString},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			return strings.HasSuffix(args[0].(string), args[1].(string)), nil
		},
	}, "String.endsWith")

	register(r, &SafeFunction{
		Name: "replace", Category: "string", MinArgs: 3, MaxArgs: 3, ArgTypes: []ArgType{ArgString, ArgString, ArgString},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			return strings.Replace(args[0].(string), args[1].(string), args[2].(string), 1), nil
		},
	}, "String.replace")

	register(r, &SafeFunction{
		Name: "split", Category: "string", MinArgs: 2, MaxArgs: 2, ArgTypes: []ArgType{ArgString, ArgString},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			parts := strings.Split(args[0].(string), args[1].(string))
			out := make([]interface{}, len(parts))
			for i, p := range parts {
				out[i] = p
			}
			return out, nil
		},
	}, "String.split")

	register(r, &SafeFunction{
		Name: "String", Category: "string", MinArgs: 1, MaxArgs: 1,
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			return coerceToString(args[0]), nil
		},
	})
}

func fnStringSlice(_ context.Context, args []interface{}) (interface{}, error) {
	s := []rune(args[0].(string))
	start, err := argIndex(args[1])
	if err != nil {
		return nil, fmt.Errorf("slice: %w", err)
	}
	end := len(s)
	if len(args) == 3 {
		end, err = argIndex(args[2])
		if err != nil {
			return nil, fmt.Errorf("slice: %w", err)
		}
	}
	start = clampIndex(start, len(s))
	end = clampIndex(end, len(s))
	if end < start {
		end = start
	}
	return string(s[start:end]), nil
}

func argIndex(v interface{}) (int, error) {
	n, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("expected a number index")
	}
	return int(n), nil
}

func clampIndex(i, length int) int {
	if i < 0 {
		i = length + i
	}
	if i < 0 {
		return 0
	}
	if i > length {
		return length
	}
	return i
}

// coerceToString is the default string coercion used by String(x) and join.
// Template holes and computed object keys are stringified by the
// orchestrator's and the evaluator's own coercions, not by this function.
func coerceToString(v interface{}) string {
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
