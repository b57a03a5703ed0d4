package typeregistry

import "testing"

func fileItemSchema() Schema {
	return Schema{
		Required: []string{"file_id", "workspace_id", "key", "name"},
		Properties: map[string]PropertyKind{
			"file_id":      KindString,
			"workspace_id": KindString,
			"key":          KindString,
			"name":         KindString,
		},
	}
}

func TestDetectTypeRequiresAllRequiredKeys(t *testing.T) {
	r := New()
	r.Register("FileItem", fileItemSchema(), StrategyJSON)

	complete := map[string]interface{}{
		"file_id": "f1", "workspace_id": "w1", "key": "k1", "name": "n1",
	}
	if got := r.DetectType(complete); got != "FileItem" {
		t.Fatalf("DetectType(complete) = %q, want FileItem", got)
	}

	incomplete := map[string]interface{}{"file_id": "f1"}
	if got := r.DetectType(incomplete); got != "" {
		t.Fatalf("DetectType(incomplete) = %q, want empty", got)
	}
}

func TestDetectTypeRejectsNonObjectValues(t *testing.T) {
	r := New()
	r.Register("Anything", Schema{}, StrategyJSON)

	for _, v := range []interface{}{nil, []interface{}{1, 2}, "str", 42.0, true} {
		if got := r.DetectType(v); got != "" {
			t.Fatalf("DetectType(%v) = %q, want empty (not a matchable object)", v, got)
		}
	}
}

func TestMostRecentlyRegisteredWins(t *testing.T) {
	r := New()
	shared := Schema{Required: []string{"id"}}
	r.Register("A", shared, StrategyString)
	r.Register("B", shared, StrategyString)

	v := map[string]interface{}{"id": "x"}
	if got := r.DetectType(v); got != "B" {
		t.Fatalf("DetectType = %q, want B (most recently registered)", got)
	}

	// Re-registering A moves it back to the front.
	r.Register("A", shared, StrategyString)
	if got := r.DetectType(v); got != "A" {
		t.Fatalf("DetectType after re-register = %q, want A", got)
	}
}

func TestUnknownPropertyKindPasses(t *testing.T) {
	r := New()
	r.Register("Loose", Schema{
		Required:   []string{"id"},
		Properties: map[string]PropertyKind{"id": PropertyKind("unknown")},
	}, StrategyObject)

	v := map[string]interface{}{"id": 123.0}
	if got := r.DetectType(v); got != "Loose" {
		t.Fatalf("DetectType = %q, want Loose", got)
	}
}

func TestSerializeStrategies(t *testing.T) {
	r := New()
	r.Register("Obj", Schema{}, StrategyObject)
	r.Register("Str", Schema{}, StrategyString)
	r.Register("JSON", Schema{}, StrategyJSON)

	fallback := func(v interface{}) string { return "FALLBACK" }
	v := map[string]interface{}{"a": 1.0}

	got, err := r.Serialize(v, "Obj", fallback)
	if err != nil || got.(map[string]interface{})["a"] != 1.0 {
		t.Fatalf("object strategy returned %v, %v", got, err)
	}

	got, err = r.Serialize(v, "Str", fallback)
	if err != nil || got != "FALLBACK" {
		t.Fatalf("string strategy returned %v, %v", got, err)
	}

	got, err = r.Serialize(v, "JSON", fallback)
	if err != nil || got != `{"a":1}` {
		t.Fatalf("json strategy returned %v, %v", got, err)
	}
}

func TestSerializeJSONFailureFallsBackNeverRaises(t *testing.T) {
	r := New()
	r.Register("Cyclic", Schema{}, StrategyJSON)

	fallback := func(v interface{}) string { return "STRINGIFIED" }
	// encoding/json.Marshal does not detect cycles and would stack-overflow;
	// exercise the documented fallback via an unsupported value (channel) instead,
	// which is the realistic "serialization failure" case in a JSON-decoded context.
	unsupported := map[string]interface{}{"ch": make(chan int)}
	got, err := r.Serialize(unsupported, "Cyclic", fallback)
	if err != nil {
		t.Fatalf("Serialize must never raise, got error: %v", err)
	}
	if got != "STRINGIFIED" {
		t.Fatalf("Serialize fallback = %v, want STRINGIFIED", got)
	}
}
