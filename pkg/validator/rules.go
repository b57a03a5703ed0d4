package validator

import (
	"fmt"

	"github.com/flowkit/safeexpr/pkg/types"
)

// checkBlockedIdentifier implements rule 2 for plain Identifier references.
func (w *walker) checkBlockedIdentifier(n *types.Node) {
	if IdentifierDenylist[n.Name] {
		w.add("blocked-identifier", SeverityError, n.Pos,
			fmt.Sprintf("identifier %q is not allowed", n.Name),
			"remove the reference or use a caller-supplied context key instead")
	}
}

// checkMember implements rules 3, 4, and 9's member-chain-length cap.
func (w *walker) checkMember(n *types.Node, chainDepth int) {
	if chainDepth > 10 {
		w.add("member-chain-too-long", SeverityWarning, n.Pos,
			fmt.Sprintf("member chain depth %d exceeds 10", chainDepth), "")
	}

	propName, isLiteralProp := memberPropertyLiteral(n)
	if isLiteralProp && PropertyDenylist[propName] {
		w.add("blocked-property", SeverityError, n.Pos,
			fmt.Sprintf("property %q is not allowed", propName),
			"access a different property")
	}

	// Rule 4: prototype-pollution pattern — a Member whose Object is itself
	// a Member hitting the property denylist (obj.__proto__.x).
	if n.Object != nil && n.Object.Kind == types.KindMember {
		if innerName, ok := memberPropertyLiteral(n.Object); ok && PropertyDenylist[innerName] {
			w.add("prototype-pollution", SeverityError, n.Pos,
				fmt.Sprintf("member chain walks through blocked property %q", innerName), "")
		}
	}
}

// memberPropertyLiteral returns the effective literal property name of a
// Member node, covering both the non-computed case (PropertyName) and a
// computed access with a literal string property (obj["__proto__"]).
func memberPropertyLiteral(n *types.Node) (string, bool) {
	if !n.Computed {
		return n.PropertyName, n.PropertyName != ""
	}
	if n.Property != nil && n.Property.Kind == types.KindLiteral && n.Property.ScalarKind == types.ScalarString {
		return n.Property.Str, true
	}
	return "", false
}

// checkCall implements rule 5: call-target resolution.
func (w *walker) checkCall(n *types.Node) {
	if n.Callee == nil {
		return
	}

	switch n.Callee.Kind {
	case types.KindIdentifier:
		name := n.Callee.Name
		if w.v.functions != nil && !w.v.functions.Has(name) {
			w.add("unresolved-callee", SeverityError, n.Pos,
				fmt.Sprintf("function %q is not registered", name), "")
		}
	case types.KindMember:
		w.checkMemberCall(n)
	default:
		w.add("unresolved-callee", SeverityError, n.Pos,
			"call target must be an identifier or member expression", "")
	}
}

func (w *walker) checkMemberCall(n *types.Node) {
	member := n.Callee
	methodName, _ := memberPropertyLiteral(member)

	if isCallbackMethod(n) {
		if len(n.Arguments) == 0 || n.Arguments[0].Kind != types.KindArrow {
			w.add("missing-callback-argument", SeverityError, n.Pos,
				fmt.Sprintf("%s requires an arrow function as its first argument", methodName),
				"pass a callback such as x => x.active")
		}
		// The receiver member itself is still walked normally by descend.
		return
	}

	if w.v.functions == nil {
		return
	}

	if member.Object != nil && member.Object.Kind == types.KindIdentifier && StaticNamespaces[member.Object.Name] {
		qualified := member.Object.Name + "." + methodName
		if w.v.functions.Has(qualified) || w.v.functions.Has(methodName) {
			return
		}
		w.add("unresolved-callee", SeverityError, n.Pos,
			fmt.Sprintf("function %q is not registered", qualified), "")
		return
	}

	if !w.v.functions.Has(methodName) {
		w.add("unresolved-callee", SeverityError, n.Pos,
			fmt.Sprintf("method %q is not registered", methodName), "")
	}
}

func isCallbackMethod(call *types.Node) bool {
	if call.Callee == nil || call.Callee.Kind != types.KindMember {
		return false
	}
	name, ok := memberPropertyLiteral(call.Callee)
	return ok && CallbackMethods[name]
}

// checkUnaryOperator implements rule 6 for unary operators.
func (w *walker) checkUnaryOperator(n *types.Node) {
	switch n.Op {
	case "delete", "new", "void", "typeof":
		w.add("blocked-operator", SeverityError, n.Pos,
			fmt.Sprintf("unary operator %q is not allowed", n.Op), "")
	}
}

// checkBinaryOperator implements rule 6 for the binary operator allowlist.
func (w *walker) checkBinaryOperator(n *types.Node) {
	if n.Op == "instanceof" {
		w.add("blocked-operator", SeverityError, n.Pos, "operator \"instanceof\" is not allowed", "")
	}
}

// checkArrowShape implements rule 7.
func (w *walker) checkArrowShape(n *types.Node) {
	if len(n.Params) > 4 {
		w.add("too-many-arrow-params", SeverityError, n.Pos,
			fmt.Sprintf("arrow function has %d parameters, more than 4", len(n.Params)), "")
	}
	for _, p := range n.Params {
		if IdentifierDenylist[p] {
			w.add("blocked-identifier", SeverityError, n.Pos,
				fmt.Sprintf("arrow parameter %q is not allowed", p), "")
		}
	}
}

// checkLiteral implements rules 8 and 9's string-length cap.
func (w *walker) checkLiteral(n *types.Node) {
	if n.ScalarKind != types.ScalarString {
		return
	}
	if len(n.Str) > 10000 {
		w.add("string-literal-too-long", SeverityWarning, n.Pos,
			fmt.Sprintf("string literal length %d exceeds 10000", len(n.Str)), "")
	}
	for _, re := range DangerousLiteralPatterns {
		if re.MatchString(n.Str) {
			w.add("dangerous-literal", SeverityError, n.Pos,
				fmt.Sprintf("string literal matches a disallowed pattern: %s", re.String()), "")
			return
		}
	}
}

// checkObjectSize implements rule 9's property-count cap.
func (w *walker) checkObjectSize(n *types.Node) {
	if len(n.Properties) > 50 {
		w.add("too-many-properties", SeverityWarning, n.Pos,
			fmt.Sprintf("object literal has %d properties, more than 50", len(n.Properties)), "")
	}
}
