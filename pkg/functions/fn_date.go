package functions

import (
	"context"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

func registerDateFunctions(r *Registry) {
	register(r, &SafeFunction{
		Name: "Date.now", Category: "date", MinArgs: 0, MaxArgs: 0,
		Impl: func(_ context.Context, _ []interface{}) (interface{}, error) {
			return float64(time.Now().UnixMilli()), nil
		},
	})

	register(r, &SafeFunction{
		Name: "Date.today", Category: "date", MinArgs: 0, MaxArgs: 0,
		Impl: func(_ context.Context, _ []interface{}) (interface{}, error) {
			return time.Now().UTC().Format(dateLayout), nil
		},
	})

	register(r, &SafeFunction{
		Name: "Date.parse", Category: "date", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{ArgString},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			t, err := parseDate(args[0].(string))
			if err != nil {
				return nil, nil
			}
			return float64(t.UnixMilli()), nil
		},
	})

	register(r, &SafeFunction{
		Name: "Date.addDays", Category: "date", MinArgs: 2, MaxArgs: 2, ArgTypes: []ArgType{ArgString, ArgNumber},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			t, err := parseDate(args[0].(string))
			if err != nil {
				return nil, fmt.Errorf("Date.addDays: %w", err)
			}
			days := int(args[1].(float64))
			return t.AddDate(0, 0, days).Format(dateLayout), nil
		},
	})

	register(r, &SafeFunction{
		Name: "Date.diffDays", Category: "date", MinArgs: 2, MaxArgs: 2, ArgTypes: []ArgType{ArgString, ArgString},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			a, err := parseDate(args[0].(string))
			if err != nil {
				return nil, fmt.Errorf("Date.diffDays: %w", err)
			}
			b, err := parseDate(args[1].(string))
			if err != nil {
				return nil, fmt.Errorf("Date.diffDays: %w", err)
			}
			return float64(int(b.Sub(a).Hours() / 24)), nil
		},
	})
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
