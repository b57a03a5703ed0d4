// Package typeregistry implements the type registry (spec.md §4.C): a
// schema-keyed detector and serializer for context values, held in
// insertion-reversed order so the most recently registered entry wins ties.
//
// There is no teacher analogue for this component — JSONata has no notion of
// matching arbitrary values against named object schemas — so the registry
// shape is grounded directly in spec.md §3/§4.C, styled after the rest of
// this module's registries (pkg/functions.Registry in particular).
package typeregistry

import (
	"encoding/json"
	"fmt"
)

// Strategy names how a matched value is serialized into a template hole.
type Strategy string

const (
	StrategyJSON   Strategy = "json"
	StrategyString Strategy = "string"
	StrategyObject Strategy = "object"
)

// PropertyKind is the declared kind of one schema property.
type PropertyKind string

const (
	KindString  PropertyKind = "string"
	KindNumber  PropertyKind = "number"
	KindBoolean PropertyKind = "boolean"
	KindObject  PropertyKind = "object"
	KindArray   PropertyKind = "array"
)

// Schema describes the shape a value must have to match a TypeEntry.
// Required is a presence check only; Properties entries are checked for
// kind only when the named key is actually present on the value — per
// spec.md §3's invariant note, Required is not required to be a subset of
// the Properties keys, and the implementation must not assume it is.
type Schema struct {
	Required   []string
	Properties map[string]PropertyKind
}

// TypeEntry is one registered schema plus its serialization strategy.
type TypeEntry struct {
	Name     string
	Schema   Schema
	Strategy Strategy
}

// Registry holds type entries in insertion-reversed order: index 0 is always
// the most recently registered entry. Registering a name that already
// exists removes the prior occurrence before prepending the new one, so
// re-registration moves an entry back to the front (spec.md §3, §8
// "first-match-wins ... re-registering A moves it to the front").
type Registry struct {
	entries []*TypeEntry
}

// New creates an empty type registry.
func New() *Registry {
	return &Registry{}
}

// Register adds or replaces a type entry. The schema's config mirrors the
// wire shape from spec.md §6: a JSON-Schema-like object plus a serialization
// strategy string.
func (r *Registry) Register(name string, schema Schema, strategy Strategy) {
	r.removeLocked(name)
	r.entries = append([]*TypeEntry{{Name: name, Schema: schema, Strategy: strategy}}, r.entries...)
}

// Unregister removes a type entry by name. It is a no-op if name is absent.
func (r *Registry) Unregister(name string) {
	r.removeLocked(name)
}

func (r *Registry) removeLocked(name string) {
	for i, e := range r.entries {
		if e.Name == name {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return
		}
	}
}

// HasType reports whether name is currently registered.
func (r *Registry) HasType(name string) bool {
	for _, e := range r.entries {
		if e.Name == name {
			return true
		}
	}
	return false
}

// StrategyOf returns the serialization strategy registered under name, or
// ("", false) if name is not registered. Lets callers that already hold a
// detected type name decide how to post-process Serialize's output (e.g.
// JSON-escaping) without re-deriving it from the serialized value.
func (r *Registry) StrategyOf(name string) (Strategy, bool) {
	for _, e := range r.entries {
		if e.Name == name {
			return e.Strategy, true
		}
	}
	return "", false
}

// List returns the names of all registered types, most-recently-registered
// first.
func (r *Registry) List() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Name
	}
	return out
}

// DetectType returns the name of the first (most-recently-registered-first)
// entry whose schema matches value, or "" if none match or value is not a
// non-null, non-array object (spec.md §4.C).
func (r *Registry) DetectType(value interface{}) string {
	obj, ok := asMatchableObject(value)
	if !ok {
		return ""
	}
	for _, e := range r.entries {
		if schemaMatches(e.Schema, obj) {
			return e.Name
		}
	}
	return ""
}

// asMatchableObject reports whether value is a non-null, non-array object
// (map[string]interface{}) and returns it for matching.
func asMatchableObject(value interface{}) (map[string]interface{}, bool) {
	if value == nil {
		return nil, false
	}
	m, ok := value.(map[string]interface{})
	return m, ok
}

func schemaMatches(s Schema, obj map[string]interface{}) bool {
	for _, name := range s.Required {
		if _, present := obj[name]; !present {
			return false
		}
	}
	for name, kind := range s.Properties {
		v, present := obj[name]
		if !present {
			continue
		}
		if !kindMatches(kind, v) {
			return false
		}
	}
	return true
}

func kindMatches(kind PropertyKind, v interface{}) bool {
	switch kind {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindNumber:
		n, ok := v.(float64)
		return ok && n == n // exclude NaN
	case KindBoolean:
		_, ok := v.(bool)
		return ok
	case KindArray:
		_, ok := v.([]interface{})
		return ok
	case KindObject:
		if v == nil {
			return false
		}
		m, ok := v.(map[string]interface{})
		return ok && m != nil
	default:
		// Unknown kind passes, per spec.md §4.C.
		return true
	}
}

// Serialize renders value using the named entry's strategy. fallback is the
// caller's primitive string coercion, used both for the "string" strategy
// and as the failure fallback for "json" (spec.md §4.C: "Serialization
// failure ... falls back to the string coercion — never raises").
func (r *Registry) Serialize(value interface{}, name string, fallback func(interface{}) string) (interface{}, error) {
	var entry *TypeEntry
	for _, e := range r.entries {
		if e.Name == name {
			entry = e
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("typeregistry: unknown type %q", name)
	}

	switch entry.Strategy {
	case StrategyObject:
		return value, nil
	case StrategyString:
		return fallback(value), nil
	case StrategyJSON:
		b, err := json.Marshal(value)
		if err != nil {
			return fallback(value), nil
		}
		return string(b), nil
	default:
		return fallback(value), nil
	}
}
