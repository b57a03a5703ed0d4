package functions

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

func registerMathFunctions(r *Registry) {
	unary := func(name string, f func(float64) float64) {
		register(r, &SafeFunction{
			Name: "Math." + name, Category: "math", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{ArgNumber},
			Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
				return f(args[0].(float64)), nil
			},
		}, name)
	}

	unary("abs", math.Abs)
	unary("floor", math.Floor)
	unary("ceil", math.Ceil)
	unary("round", math.Round)
	unary("sqrt", math.Sqrt)

	register(r, &SafeFunction{
		Name: "Math.pow", Category: "math", MinArgs: 2, MaxArgs: 2, ArgTypes: []ArgType{ArgNumber, ArgNumber},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			return math.Pow(args[0].(float64), args[1].(float64)), nil
		},
	}, "pow")

	register(r, &SafeFunction{
		Name: "Math.min", Category: "math", MinArgs: 1, MaxArgs: -1,
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			return reduceNumbers(args, math.Inf(1), math.Min)
		},
	}, "min")

	register(r, &SafeFunction{
		Name: "Math.max", Category: "math", MinArgs: 1, MaxArgs: -1,
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			return reduceNumbers(args, math.Inf(-1), math.Max)
		},
	}, "max")

	register(r, &SafeFunction{
		Name: "Math.random", Category: "math", MinArgs: 0, MaxArgs: 0,
		Impl: func(_ context.Context, _ []interface{}) (interface{}, error) {
			var b [8]byte
			if _, err := rand.Read(b[:]); err != nil {
				return nil, fmt.Errorf("Math.random: %w", err)
			}
			// 53 bits of randomness scaled into [0, 1), matching float64's mantissa width.
			u := binary.BigEndian.Uint64(b[:]) >> 11
			return float64(u) / float64(uint64(1)<<53), nil
		},
	}, "random")

	register(r, &SafeFunction{
		Name: "Math.PI", Category: "math", MinArgs: 0, MaxArgs: 0,
		Impl: func(_ context.Context, _ []interface{}) (interface{}, error) { return math.Pi, nil },
	})

	register(r, &SafeFunction{
		Name: "Math.E", Category: "math", MinArgs: 0, MaxArgs: 0,
		Impl: func(_ context.Context, _ []interface{}) (interface{}, error) { return math.E, nil },
	})

	register(r, &SafeFunction{
		Name: "Number", Category: "math", MinArgs: 1, MaxArgs: 1,
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			return coerceToNumber(args[0]), nil
		},
	})
}

func reduceNumbers(args []interface{}, seed float64, combine func(float64, float64) float64) (interface{}, error) {
	acc := seed
	for i, v := range args {
		n, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("argument %d is not a number", i+1)
		}
		acc = combine(acc, n)
	}
	return acc, nil
}

// coerceToNumber mirrors IEEE-754 numeric coercion: non-numeric, non-numeric-
// string inputs coerce to NaN, never an error (spec.md §4.F Unary).
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
