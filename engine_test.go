package safeexpr

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/flowkit/safeexpr/pkg/functions"
	"github.com/flowkit/safeexpr/pkg/typeregistry"
)

var customDoubleFn = functions.SafeFunction{
	Name: "double", Category: "custom", MinArgs: 1, MaxArgs: 1,
	ArgTypes: []functions.ArgType{functions.ArgNumber},
	Impl: func(ctx context.Context, args []interface{}) (interface{}, error) {
		return args[0].(float64) * 2, nil
	},
}

func TestEvaluateMathRound(t *testing.T) {
	e := New()
	res := e.Evaluate(context.Background(), "Math.round(item.price * 1.2)", map[string]interface{}{
		"item": map[string]interface{}{"price": 10.99},
	})
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if res.Value != float64(13) {
		t.Fatalf("got %v, want 13", res.Value)
	}
}

func TestEvaluateFilterThenMap(t *testing.T) {
	e := New()
	res := e.Evaluate(context.Background(), "items.filter(x => x.active).map(x => x.name)", map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"active": true, "name": "A"},
			map[string]interface{}{"active": false, "name": "B"},
		},
	})
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	got, ok := res.Value.([]interface{})
	if !ok || len(got) != 1 || got[0] != "A" {
		t.Fatalf("got %#v, want [A]", res.Value)
	}
}

func TestValidateRejectsBlockedIdentifier(t *testing.T) {
	e := New()
	result, err := e.Validate(`eval("1+1")`)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if result.Accepted {
		t.Fatal("expected eval(...) to be rejected")
	}
	found := false
	for _, v := range result.Violations {
		if v.Type == "blocked-identifier" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a blocked-identifier violation, got %+v", result.Violations)
	}
}

func TestEvaluateRejectsBlockedIdentifierWithSecurityErrorType(t *testing.T) {
	e := New()
	res := e.Evaluate(context.Background(), `eval("1+1")`, nil)
	if res.Success {
		t.Fatal("expected evaluation to fail")
	}
	if res.ErrorType != "security" {
		t.Fatalf("got error type %q, want security", res.ErrorType)
	}
}

func TestTemplateRoundTripsRegisteredJSONType(t *testing.T) {
	e := New()
	e.RegisterType("FileItem", typeregistry.Schema{
		Required: []string{"file_id", "workspace_id", "key", "name"},
	}, typeregistry.StrategyJSON)

	fileItem := map[string]interface{}{
		"file_id":      "f1",
		"workspace_id": "w1",
		"key":          "uploads/f1.png",
		"name":         "cat.png",
	}

	res := e.Evaluate(context.Background(), `{"f":"{{item}}"}`, map[string]interface{}{"item": fileItem})
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}

	var outer map[string]interface{}
	if err := json.Unmarshal([]byte(res.TemplateResult), &outer); err != nil {
		t.Fatalf("outer JSON did not parse: %v (raw: %s)", err, res.TemplateResult)
	}

	inner, ok := outer["f"].(string)
	if !ok {
		t.Fatalf("expected outer.f to be a string, got %#v", outer["f"])
	}

	var roundTripped map[string]interface{}
	if err := json.Unmarshal([]byte(inner), &roundTripped); err != nil {
		t.Fatalf("inner JSON did not parse: %v (raw: %s)", err, inner)
	}
	for k, v := range fileItem {
		if roundTripped[k] != v {
			t.Fatalf("field %q: got %v, want %v", k, roundTripped[k], v)
		}
	}
}

func TestTemplateCallsStringMethodOnMember(t *testing.T) {
	e := New()
	res := e.Evaluate(context.Background(), "Hello {{item.name.toUpperCase()}}!", map[string]interface{}{
		"item": map[string]interface{}{"name": "world"},
	})
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if res.TemplateResult != "Hello WORLD!" {
		t.Fatalf("got %q, want %q", res.TemplateResult, "Hello WORLD!")
	}
}

func TestReduceWithInitialValue(t *testing.T) {
	e := New()
	res := e.Evaluate(context.Background(), "[1,2,3].reduce((s,x) => s + x, 0)", nil)
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if res.Value != float64(6) {
		t.Fatalf("got %v, want 6", res.Value)
	}
}

func TestFirstMatchWinsTypeDetection(t *testing.T) {
	e := New()
	e.RegisterType("A", typeregistry.Schema{Required: []string{"id"}}, typeregistry.StrategyObject)
	e.RegisterType("B", typeregistry.Schema{Required: []string{"id"}}, typeregistry.StrategyObject)

	v := map[string]interface{}{"id": "1"}
	if got := e.types.DetectType(v); got != "B" {
		t.Fatalf("got %q, want B (most-recently-registered wins)", got)
	}

	e.RegisterType("A", typeregistry.Schema{Required: []string{"id"}}, typeregistry.StrategyObject)
	if got := e.types.DetectType(v); got != "A" {
		t.Fatalf("got %q, want A after re-registration", got)
	}
}

func TestClearCachesAndResetStats(t *testing.T) {
	e := New()
	e.Evaluate(context.Background(), "1 + 1", nil)
	stats, _ := e.Stats()
	if stats.Parse.Len == 0 {
		t.Fatal("expected a parse cache entry after evaluating")
	}
	e.ResetStats()
	stats, _ = e.Stats()
	if stats.Parse.Hits != 0 || stats.Parse.Misses != 0 {
		t.Fatal("expected stats to be reset")
	}
	e.ClearCaches()
	stats, _ = e.Stats()
	if stats.Parse.Len != 0 {
		t.Fatal("expected parse cache to be empty after ClearCaches")
	}
}

func TestEvaluateArityMismatchYieldsTypeErrorType(t *testing.T) {
	e := New()
	res := e.Evaluate(context.Background(), `trim("a", "b", "c")`, nil)
	if res.Success {
		t.Fatal("expected evaluation to fail on arity mismatch")
	}
	if res.ErrorType != "type" {
		t.Fatalf("got error type %q, want type", res.ErrorType)
	}
}

func TestEvaluateArgumentTypeMismatchYieldsTypeErrorType(t *testing.T) {
	e := New()
	res := e.Evaluate(context.Background(), `trim(42)`, nil)
	if res.Success {
		t.Fatal("expected evaluation to fail on argument type mismatch")
	}
	if res.ErrorType != "type" {
		t.Fatalf("got error type %q, want type", res.ErrorType)
	}
}

func TestStringSliceMethodCallDispatchesToStringSlice(t *testing.T) {
	e := New()
	res := e.Evaluate(context.Background(), `item.name.slice(1, 3)`, map[string]interface{}{
		"item": map[string]interface{}{"name": "hello"},
	})
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if res.Value != "el" {
		t.Fatalf("got %v, want %q", res.Value, "el")
	}
}

func TestAddAndRemoveCustomFunction(t *testing.T) {
	e := New()
	err := e.AddFunction(&customDoubleFn)
	if err != nil {
		t.Fatal(err)
	}
	res := e.Evaluate(context.Background(), "double(21)", nil)
	if !res.Success || res.Value != float64(42) {
		t.Fatalf("got %#v, %q", res.Value, res.Error)
	}
	e.RemoveFunction("double")
	res = e.Evaluate(context.Background(), "double(21)", nil)
	if res.Success {
		t.Fatal("expected double(21) to fail after removal")
	}
}
