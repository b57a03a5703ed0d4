// Package validator implements the security audit stage (spec.md §4.E):
// a pre-order walk over a parsed node tree that accumulates violations
// against a fixed rule set, plus any caller-registered custom rules.
package validator

import (
	"fmt"
	"strconv"

	"github.com/flowkit/safeexpr/pkg/cache"
	"github.com/flowkit/safeexpr/pkg/types"
)

// Severity is the severity of a Violation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Violation is one rule hit produced by the walk.
type Violation struct {
	Type       string
	Message    string
	Severity   Severity
	Position   types.Position
	Suggestion string
}

// Result is the outcome of validating a tree: the full violation list plus
// whether the tree is accepted (no error-severity violation).
type Result struct {
	Violations []Violation
	Accepted   bool
}

// FunctionLookup reports whether name is a registered function, used by
// rule 5 (call-target resolution) without the validator importing the
// functions package's concrete Registry type.
type FunctionLookup interface {
	Has(name string) bool
}

// Rule is a custom rule predicate: given a node (and no other context), it
// returns whether it fires, plus the message/suggestion to record with the
// rule's Severity when it does.
type Rule struct {
	Type     string
	Severity Severity
	Check    func(n *types.Node) (fires bool, message string, suggestion string)
}

// Validator walks node trees and accumulates violations against the fixed
// rule set from spec.md §4.E plus any registered custom rules.
type Validator struct {
	functions   FunctionLookup
	customRules []Rule
	resultCache *cache.Cache[Result]
}

// New creates a Validator. functions is consulted by rule 5 to resolve bare
// and qualified call targets; pass nil to skip that check (e.g. when
// validating callback bodies already known to be function-free).
func New(functions FunctionLookup) *Validator {
	return &Validator{
		functions:   functions,
		resultCache: cache.New[Result](512),
	}
}

// AddRule registers a custom rule. Custom rules run at each node just before
// that node's fixed-rule checks and can only add violations, never suppress
// fixed-rule findings.
func (v *Validator) AddRule(r Rule) {
	v.customRules = append(v.customRules, r)
}

// RemoveRule removes every previously registered custom rule with the given
// type name. It is a no-op if none match.
func (v *Validator) RemoveRule(ruleType string) {
	out := v.customRules[:0]
	for _, r := range v.customRules {
		if r.Type != ruleType {
			out = append(out, r)
		}
	}
	v.customRules = out
}

// Stats exposes the validation result cache's hit/miss counters, surfaced
// by the orchestrator's Stats() (SPEC_FULL.md §6).
func (v *Validator) Stats() cache.Stats {
	return v.resultCache.Stats()
}

// ClearCache empties the validation result cache.
func (v *Validator) ClearCache() {
	v.resultCache.Clear()
}

// ResetStats zeroes the validation result cache's hit/miss counters.
func (v *Validator) ResetStats() {
	v.resultCache.ResetStats()
}

// Validate walks root and returns the accumulated violations. Results are
// memoized under a structural signature of root (spec.md §4.E: "Validation
// results are cached under a node signature").
func (v *Validator) Validate(root *types.Node) Result {
	sig := signature(root)
	if cached, ok := v.resultCache.Get(sig); ok {
		return cached
	}
	res := v.validateUncached(root)
	v.resultCache.Set(sig, res)
	return res
}

func (v *Validator) validateUncached(root *types.Node) Result {
	w := &walker{v: v}
	w.walk(root, 0)
	for _, viol := range w.violations {
		if viol.Severity == SeverityError {
			return Result{Violations: w.violations, Accepted: false}
		}
	}
	return Result{Violations: w.violations, Accepted: true}
}

type walker struct {
	v          *Validator
	violations []Violation
}

func (w *walker) add(typ string, sev Severity, pos types.Position, message, suggestion string) {
	w.violations = append(w.violations, Violation{
		Type: typ, Severity: sev, Position: pos, Message: message, Suggestion: suggestion,
	})
}

// walk implements the pre-order rule checks. depth is the member-chain
// depth so far, used by rule 9's chain-length cap.
func (w *walker) walk(n *types.Node, chainDepth int) {
	if n == nil {
		return
	}

	if !isKnownVariant(n.Kind) {
		// Rule 1: short-circuit into children of an unrecognized variant.
		w.add("unknown-node-variant", SeverityError, n.Pos,
			fmt.Sprintf("node variant %q is not in the closed set", n.Kind), "")
		return
	}

	w.runCustomRules(n)

	switch n.Kind {
	case types.KindIdentifier:
		w.checkBlockedIdentifier(n)
	case types.KindMember:
		w.checkMember(n, chainDepth)
	case types.KindCall:
		w.checkCall(n)
	case types.KindUnary:
		w.checkUnaryOperator(n)
	case types.KindBinary:
		w.checkBinaryOperator(n)
	case types.KindArrow:
		w.checkArrowShape(n)
	case types.KindLiteral:
		w.checkLiteral(n)
	case types.KindObject:
		w.checkObjectSize(n)
	}

	w.descend(n, chainDepth)
}

func (w *walker) descend(n *types.Node, chainDepth int) {
	switch n.Kind {
	case types.KindMember:
		w.walk(n.Object, chainDepth+1)
		if n.Computed {
			w.walk(n.Property, 0)
		}
	case types.KindCall:
		w.walk(n.Callee, 0)
		if len(n.Arguments) > 20 {
			w.add("too-many-arguments", SeverityWarning, n.Pos,
				fmt.Sprintf("call has %d arguments, more than 20", len(n.Arguments)), "")
		}
		for _, a := range n.Arguments {
			w.walk(a, 0)
		}
	case types.KindUnary:
		w.walk(n.Left, 0)
	case types.KindBinary, types.KindLogical:
		w.walk(n.Left, 0)
		w.walk(n.Right, 0)
	case types.KindConditional:
		w.walk(n.Test, 0)
		w.walk(n.Consequent, 0)
		w.walk(n.Alternate, 0)
	case types.KindArray:
		for _, e := range n.Elements {
			if e != nil {
				w.walk(e, 0)
			}
		}
	case types.KindObject:
		for _, p := range n.Properties {
			if p.Computed {
				w.walk(p.Key, 0)
			}
			w.walk(p.Value, 0)
		}
	case types.KindArrow:
		w.walk(n.Body, 0)
	}
}

func (w *walker) runCustomRules(n *types.Node) {
	for _, rule := range w.v.customRules {
		if fires, msg, suggestion := rule.Check(n); fires {
			w.add(rule.Type, rule.Severity, n.Pos, msg, suggestion)
		}
	}
}

func isKnownVariant(k types.NodeKind) bool {
	switch k {
	case types.KindLiteral, types.KindIdentifier, types.KindMember, types.KindCall,
		types.KindUnary, types.KindBinary, types.KindLogical, types.KindConditional,
		types.KindArray, types.KindObject, types.KindArrow:
		return true
	default:
		return false
	}
}

// signature builds a compact structural key for the result cache,
// independent of position information (two expressions that differ only in
// whitespace/line layout validate identically).
func signature(n *types.Node) string {
	var sb []byte
	appendSignature(&sb, n)
	return string(sb)
}

func appendSignature(buf *[]byte, n *types.Node) {
	if n == nil {
		*buf = append(*buf, '_')
		return
	}
	*buf = append(*buf, '(')
	*buf = append(*buf, n.Kind...)
	switch n.Kind {
	case types.KindLiteral:
		*buf = append(*buf, ':')
		*buf = append(*buf, n.ScalarKind...)
		*buf = append(*buf, ':')
		*buf = append(*buf, n.Str...)
		*buf = append(*buf, ':')
		*buf = strconv.AppendFloat(*buf, n.Num, 'g', -1, 64)
		*buf = strconv.AppendBool(*buf, n.Bool)
	case types.KindIdentifier:
		*buf = append(*buf, ':')
		*buf = append(*buf, n.Name...)
	case types.KindMember:
		*buf = append(*buf, ':')
		*buf = append(*buf, n.PropertyName...)
		appendSignature(buf, n.Object)
		if n.Computed {
			appendSignature(buf, n.Property)
		}
	case types.KindCall:
		appendSignature(buf, n.Callee)
		for _, a := range n.Arguments {
			appendSignature(buf, a)
		}
	case types.KindUnary:
		*buf = append(*buf, ':')
		*buf = append(*buf, n.Op...)
		appendSignature(buf, n.Left)
	case types.KindBinary, types.KindLogical:
		*buf = append(*buf, ':')
		*buf = append(*buf, n.Op...)
		appendSignature(buf, n.Left)
		appendSignature(buf, n.Right)
	case types.KindConditional:
		appendSignature(buf, n.Test)
		appendSignature(buf, n.Consequent)
		appendSignature(buf, n.Alternate)
	case types.KindArray:
		for _, e := range n.Elements {
			appendSignature(buf, e)
		}
	case types.KindObject:
		for _, p := range n.Properties {
			if p.Computed {
				*buf = append(*buf, '!')
			}
			appendSignature(buf, p.Key)
			appendSignature(buf, p.Value)
		}
	case types.KindArrow:
		for _, p := range n.Params {
			*buf = append(*buf, ':')
			*buf = append(*buf, p...)
		}
		appendSignature(buf, n.Body)
	}
	*buf = append(*buf, ')')
}
