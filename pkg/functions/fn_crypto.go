package functions

import (
	"context"
	"encoding/base64"

	"github.com/google/uuid"
)

func registerCryptoFunctions(r *Registry) {
	register(r, &SafeFunction{
		Name: "Crypto.uuidv4", Category: "crypto", MinArgs: 0, MaxArgs: 0,
		Impl: func(_ context.Context, _ []interface{}) (interface{}, error) {
			return uuid.NewString(), nil
		},
	})

	register(r, &SafeFunction{
		Name: "Crypto.base64encode", Category: "crypto", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{ArgString},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			return base64.StdEncoding.EncodeToString([]byte(args[0].(string))), nil
		},
	})

	register(r, &SafeFunction{
		Name: "Crypto.base64decode", Category: "crypto", MinArgs: 1, MaxArgs: 1, ArgTypes: []ArgType{ArgString},
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			// Malformed input falls back to "" rather than raising
			// (spec.md §4.B).
			b, err := base64.StdEncoding.DecodeString(args[0].(string))
			if err != nil {
				return "", nil
			}
			return string(b), nil
		},
	})
}
