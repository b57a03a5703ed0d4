package evaluator

import (
	"github.com/flowkit/safeexpr/pkg/functions"
	"github.com/flowkit/safeexpr/pkg/types"
)

// staticNamespaces mirrors validator.StaticNamespaces; duplicated locally
// so the evaluator's hot path does not need a cross-package map lookup for
// something this cheap to restate (same set spec.md §6 defines once).
var staticNamespaces = map[string]bool{
	"Object": true, "Math": true, "JSON": true, "Date": true,
	"Array": true, "Crypto": true, "String": true, "Number": true,
}

var callbackMethods = map[string]bool{
	"filter": true, "map": true, "find": true, "some": true, "every": true, "reduce": true,
}

func (st *state) evalCall(n *types.Node, env map[string]interface{}, depth int) (interface{}, *types.Error) {
	switch n.Callee.Kind {
	case types.KindIdentifier:
		return st.callBare(n, n.Callee.Name, env, depth)
	case types.KindMember:
		return st.callMember(n, env, depth)
	default:
		return nil, types.NewError(types.ErrNotAFunction, "call target is not callable", n.Pos.Column)
	}
}

func (st *state) callBare(n *types.Node, name string, env map[string]interface{}, depth int) (interface{}, *types.Error) {
	if !st.ev.registry.Has(name) {
		return nil, types.NewError(types.ErrUnknownFunction, "unknown function \""+name+"\"", n.Pos.Column)
	}
	args, err := st.evalArgs(n.Arguments, env, depth)
	if err != nil {
		return nil, err
	}
	return st.invokeRegistry(name, args, false, n.Pos)
}

func (st *state) callMember(n *types.Node, env map[string]interface{}, depth int) (interface{}, *types.Error) {
	member := n.Callee
	methodName := member.PropertyName

	if member.Object != nil && member.Object.Kind == types.KindIdentifier && staticNamespaces[member.Object.Name] {
		qualified := member.Object.Name + "." + methodName
		if st.ev.registry.Has(qualified) {
			args, err := st.evalArgs(n.Arguments, env, depth)
			if err != nil {
				return nil, err
			}
			return st.invokeRegistry(qualified, args, false, n.Pos)
		}
	}

	receiver, err := st.eval(member.Object, env, depth+1)
	if err != nil {
		return nil, err
	}

	if callbackMethods[methodName] {
		if arr, ok := receiver.([]interface{}); ok {
			return st.dispatchCallback(n, methodName, arr, env, depth)
		}
	}

	args, err := st.evalArgs(n.Arguments, env, depth)
	if err != nil {
		return nil, err
	}
	allArgs := append([]interface{}{receiver}, args...)

	// Some bare names (e.g. "slice") are shared by more than one category's
	// default set; the last one registered wins the bare key. Prefer the
	// qualified entry matching the receiver's runtime type, so a method call
	// like someString.slice(...) dispatches to String.slice rather than
	// whichever category happened to register "slice" last.
	if qualified, ok := receiverQualifiedName(receiver, methodName); ok && st.ev.registry.Has(qualified) {
		return st.invokeRegistry(qualified, allArgs, true, n.Pos)
	}
	return st.invokeRegistry(methodName, allArgs, true, n.Pos)
}

// receiverQualifiedName maps a method receiver's runtime type to the static
// namespace that owns its methods in the default registry (spec.md §4.B).
func receiverQualifiedName(receiver interface{}, methodName string) (string, bool) {
	switch receiver.(type) {
	case string:
		return "String." + methodName, true
	case []interface{}:
		return "Array." + methodName, true
	case float64:
		return "Number." + methodName, true
	case map[string]interface{}:
		return "Object." + methodName, true
	default:
		return "", false
	}
}

func (st *state) evalArgs(argNodes []*types.Node, env map[string]interface{}, depth int) ([]interface{}, *types.Error) {
	args := make([]interface{}, len(argNodes))
	for i, a := range argNodes {
		v, err := st.eval(a, env, depth+1)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (st *state) invokeRegistry(name string, args []interface{}, asMethod bool, pos types.Position) (interface{}, *types.Error) {
	if !st.ev.registry.Has(name) {
		return nil, types.NewError(types.ErrUnknownFunction, "unknown function \""+name+"\"", pos.Column)
	}
	result, err := st.ev.registry.Call(st.ctx, name, args, asMethod)
	if err != nil {
		switch err.(type) {
		case *functions.ArityError:
			return nil, types.NewError(types.ErrArityMismatch, err.Error(), pos.Column).WithCause(err)
		case *functions.ArgTypeError:
			return nil, types.NewError(types.ErrArgumentType, err.Error(), pos.Column).WithCause(err)
		default:
			return nil, types.NewError(types.ErrFunctionError, err.Error(), pos.Column).WithCause(err)
		}
	}
	if result == nil {
		return nil, nil
	}
	return result, nil
}
