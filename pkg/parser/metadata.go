package parser

import "github.com/flowkit/safeexpr/pkg/types"

// ContextRoots is the recognized free-variable namespace (spec.md §6):
// identifiers in this set are considered bound context roots rather than
// free variables. Those that are not literalPseudoRoots are collected into
// metadata.dependencies; all other identifiers are excluded from it.
var ContextRoots = map[string]bool{
	"item": true, "inputs": true, "outputs": true, "node": true,
	"execution": true, "true": true, "false": true, "null": true,
	"undefined": true, "Infinity": true, "NaN": true,
}

// literalPseudoRoots are the ContextRoots entries that name scalar literal
// meanings rather than actual context keys (spec.md §6: "true, false,
// null, undefined, Infinity, NaN" resolve as their scalar meanings, not as
// lookups into the caller's context). They count as bound for validation
// purposes but are never reported as dependencies.
var literalPseudoRoots = map[string]bool{
	"true": true, "false": true, "null": true,
	"undefined": true, "Infinity": true, "NaN": true,
}

// StaticNamespaces is the recognized static-namespace set used to decide
// whether a Member callee like Math.floor counts as a qualified function
// name in metadata.functions.
var StaticNamespaces = map[string]bool{
	"Object": true, "Math": true, "JSON": true, "Date": true,
	"Array": true, "Crypto": true, "String": true, "Number": true,
}

// ExtractMetadata walks root and computes the dependencies, functions,
// complexity, depth, isSimple, and memoryEstimate fields of a
// ParsedExpression, following the exact formulas in spec.md §4.D.
func ExtractMetadata(root *types.Node, source string) *types.ParsedExpression {
	pe := &types.ParsedExpression{
		AST:          root,
		Source:       source,
		Dependencies: map[string]struct{}{},
		Functions:    map[string]struct{}{},
		HasTemplates: HasTemplateHoles(source),
	}

	isSimple := true
	var complexity float64
	maxDepth := 0
	var memory int

	var visit func(n *types.Node, depth int, isCalleeOfCall bool)
	visit = func(n *types.Node, depth int, isCalleeOfCall bool) {
		if n == nil {
			return
		}
		if depth > maxDepth {
			maxDepth = depth
		}
		memory += memoryCost(n)
		complexity += complexityWeight(n)

		switch n.Kind {
		case types.KindIdentifier:
			if ContextRoots[n.Name] && !literalPseudoRoots[n.Name] {
				pe.Dependencies[n.Name] = struct{}{}
			}
			if isCalleeOfCall {
				pe.Functions[n.Name] = struct{}{}
			}
		case types.KindMember:
			if isCalleeOfCall && !n.Computed {
				if root, ok := qualifiedNamespaceRoot(n); ok {
					pe.Functions[root+"."+n.PropertyName] = struct{}{}
				}
			}
			visit(n.Object, depth+1, false)
			if n.Computed {
				visit(n.Property, depth+1, false)
			}
			return
		case types.KindCall:
			isSimple = false
			visit(n.Callee, depth+1, true)
			for _, a := range n.Arguments {
				visit(a, depth+1, false)
			}
			return
		case types.KindUnary:
			isSimple = false
			visit(n.Left, depth+1, false)
			return
		case types.KindBinary, types.KindLogical:
			visit(n.Left, depth+1, false)
			visit(n.Right, depth+1, false)
			return
		case types.KindConditional:
			isSimple = false
			visit(n.Test, depth+1, false)
			visit(n.Consequent, depth+1, false)
			visit(n.Alternate, depth+1, false)
			return
		case types.KindArray:
			isSimple = false
			for _, e := range n.Elements {
				if e != nil {
					visit(e, depth+1, false)
				}
			}
			return
		case types.KindObject:
			isSimple = false
			for _, p := range n.Properties {
				if p.Key.Kind != types.KindIdentifier {
					visit(p.Key, depth+1, false)
				}
				visit(p.Value, depth+1, false)
			}
			return
		case types.KindArrow:
			isSimple = false
			visit(n.Body, depth+1, false)
			return
		case types.KindLiteral:
			// leaf; scalar kinds other than identifier/member/literal/
			// binary/logical already flip isSimple via the default below.
		default:
			isSimple = false
		}
	}

	visit(root, 1, false)

	pe.Complexity = roundTo1(complexity)
	pe.Depth = maxDepth
	pe.IsSimple = isSimple
	pe.MemoryEstimate = memory
	return pe
}

// qualifiedNamespaceRoot reports whether m's Object is a bare Identifier
// naming a recognized static namespace, e.g. Math in Math.floor(...).
func qualifiedNamespaceRoot(m *types.Node) (string, bool) {
	if m.Object == nil || m.Object.Kind != types.KindIdentifier {
		return "", false
	}
	if !StaticNamespaces[m.Object.Name] {
		return "", false
	}
	return m.Object.Name, true
}

// complexityWeight returns the per-node complexity contribution from
// spec.md §4.D: call 3, member 1, binary/logical 1, conditional 4, arrow 5,
// array/object 2 plus 0.5 per element/property, any other node 0.5.
func complexityWeight(n *types.Node) float64 {
	switch n.Kind {
	case types.KindCall:
		return 3
	case types.KindMember:
		return 1
	case types.KindBinary, types.KindLogical:
		return 1
	case types.KindConditional:
		return 4
	case types.KindArrow:
		return 5
	case types.KindArray:
		return 2 + 0.5*float64(len(n.Elements))
	case types.KindObject:
		return 2 + 0.5*float64(len(n.Properties))
	default:
		return 0.5
	}
}

// memoryCost is a fixed per-variant byte cost used by memoryEstimate,
// with strings weighted by code-unit length times two.
func memoryCost(n *types.Node) int {
	const base = 48
	switch n.Kind {
	case types.KindLiteral:
		if n.ScalarKind == types.ScalarString {
			return base + len([]rune(n.Str))*2
		}
		return base
	case types.KindIdentifier:
		return base + len(n.Name)
	case types.KindMember:
		return base + len(n.PropertyName)
	case types.KindCall:
		return base + 16*len(n.Arguments)
	case types.KindArrow:
		return base + 16*len(n.Params)
	case types.KindArray:
		return base + 8*len(n.Elements)
	case types.KindObject:
		return base + 24*len(n.Properties)
	default:
		return base
	}
}

func roundTo1(v float64) float64 {
	const scale = 10
	return float64(int(v*scale+0.5)) / scale
}
