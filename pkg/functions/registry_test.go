package functions

import (
	"context"
	"testing"
)

func TestDefaultsRegisterBareAndQualifiedNames(t *testing.T) {
	r := NewWithDefaults()
	if !r.Has("trim") || !r.Has("String.trim") {
		t.Fatal("expected both bare and qualified trim entries")
	}
	if !r.Has("Math.round") {
		t.Fatal("expected Math.round")
	}
}

func TestCallEnforcesArity(t *testing.T) {
	r := NewWithDefaults()
	_, err := r.Call(context.Background(), "trim", []interface{}{}, false)
	if err == nil {
		t.Fatal("expected arity error for trim() with no arguments")
	}
}

func TestCallAsMethodRelaxesMinArgsByOne(t *testing.T) {
	r := New()
	_ = r.Register(&SafeFunction{
		Name: "greet", MinArgs: 2, MaxArgs: 2,
		Impl: func(_ context.Context, args []interface{}) (interface{}, error) {
			return args[0].(string) + args[1].(string), nil
		},
	})
	// As a method call, the receiver satisfies one of the two required args.
	got, err := r.Call(context.Background(), "greet", []interface{}{"a", "b"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ab" {
		t.Fatalf("got %v", got)
	}
}

func TestCallWrapsPanicAsFunctionError(t *testing.T) {
	r := New()
	_ = r.Register(&SafeFunction{
		Name: "boom", MinArgs: 0, MaxArgs: 0,
		Impl: func(_ context.Context, _ []interface{}) (interface{}, error) {
			panic("kaboom")
		},
	})
	_, err := r.Call(context.Background(), "boom", nil, false)
	if err == nil {
		t.Fatal("expected panic to surface as error")
	}
	want := "Error in function 'boom': panic: kaboom"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	r := NewWithDefaults()
	got, err := r.Call(context.Background(), "JSON.stringify", []interface{}{map[string]interface{}{"a": 1.0}}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"a":1}` {
		t.Fatalf("got %v", got)
	}

	parsed, err := r.Call(context.Background(), "JSON.parse", []interface{}{got}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := parsed.(map[string]interface{})
	if m["a"] != 1.0 {
		t.Fatalf("got %v", parsed)
	}
}

func TestJSONParseFailureReturnsNil(t *testing.T) {
	r := NewWithDefaults()
	got, err := r.Call(context.Background(), "JSON.parse", []interface{}{"{not json"}, false)
	if err != nil {
		t.Fatalf("JSON.parse must not raise on bad input: %v", err)
	}
	if got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestJSONStringifyFailureReturnsLiteralNullString(t *testing.T) {
	r := NewWithDefaults()
	// A channel is not JSON-marshalable.
	ch := make(chan int)
	got, err := r.Call(context.Background(), "JSON.stringify", []interface{}{ch}, false)
	if err != nil {
		t.Fatalf("JSON.stringify must not raise on bad input: %v", err)
	}
	if got != "null" {
		t.Fatalf("got %v, want literal string \"null\"", got)
	}
}

func TestBase64DecodeFailureReturnsEmptyString(t *testing.T) {
	r := NewWithDefaults()
	got, err := r.Call(context.Background(), "Crypto.base64decode", []interface{}{"not-valid-base64!!"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Fatalf("got %q, want empty string", got)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := NewWithDefaults()
	snapshot := src.Export()

	dst := New()
	dst.Import(snapshot)

	if !dst.Has("trim") {
		t.Fatal("expected imported registry to have trim")
	}
}

func TestConditionalFunctions(t *testing.T) {
	r := NewWithDefaults()
	ctx := context.Background()

	got, _ := r.Call(ctx, "$if", []interface{}{true, "yes", "no"}, false)
	if got != "yes" {
		t.Fatalf("$if(true,...) = %v", got)
	}
	got, _ = r.Call(ctx, "$if", []interface{}{false, "yes"}, false)
	if got != nil {
		t.Fatalf("$if(false, yes) with no else = %v, want nil", got)
	}
	got, _ = r.Call(ctx, "$and", []interface{}{true, true, false}, false)
	if got != false {
		t.Fatalf("$and = %v", got)
	}
	got, _ = r.Call(ctx, "$or", []interface{}{false, false, true}, false)
	if got != true {
		t.Fatalf("$or = %v", got)
	}
}
