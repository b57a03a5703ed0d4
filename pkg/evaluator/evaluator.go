// Package evaluator is the tree-walking evaluation stage (spec.md §4.F):
// per-variant dispatch over a validated node tree, the callback engine for
// the array higher-order methods, and the wall-clock timeout plus stack
// depth caps that bound a single evaluate call.
package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/flowkit/safeexpr/pkg/cache"
	"github.com/flowkit/safeexpr/pkg/functions"
	"github.com/flowkit/safeexpr/pkg/types"
	"github.com/flowkit/safeexpr/pkg/validator"
)

const (
	defaultTimeout  = 5 * time.Second
	defaultMaxDepth = 50
)

// Evaluator walks a validated node tree against a caller-supplied context,
// dispatching calls through a shared function registry. It mirrors the
// teacher's evaluator.Evaluator in spirit: a long-lived, registry-bound
// struct configured once and invoked many times via functional options.
type Evaluator struct {
	registry  *functions.Registry
	propCache *cache.Cache[interface{}]
}

// New creates an Evaluator bound to registry. Pass functions.NewWithDefaults()
// for the builtin set, or a custom registry assembled by the orchestrator.
func New(registry *functions.Registry) *Evaluator {
	return &Evaluator{
		registry:  registry,
		propCache: cache.New[interface{}](1024),
	}
}

// EvalOption configures a single Eval call, mirroring the teacher's
// EvalOption functional-options style.
type EvalOption func(*evalConfig)

type evalConfig struct {
	context      map[string]interface{}
	timeout      time.Duration
	maxDepth     int
	errorHandler func(*types.Error) (interface{}, bool)
}

// WithContext supplies the caller context (item, inputs, outputs, node,
// execution, and any additional keys) that Identifier resolution reads.
func WithContext(ctx map[string]interface{}) EvalOption {
	return func(c *evalConfig) { c.context = ctx }
}

// WithTimeout overrides the default 5s wall-clock timeout.
func WithTimeout(d time.Duration) EvalOption {
	return func(c *evalConfig) { c.timeout = d }
}

// WithMaxDepth overrides the default 50-frame recursion cap.
func WithMaxDepth(n int) EvalOption {
	return func(c *evalConfig) { c.maxDepth = n }
}

// WithErrorHandler installs a handler that may convert an evaluation error
// into a success value instead of propagating it.
func WithErrorHandler(h func(*types.Error) (interface{}, bool)) EvalOption {
	return func(c *evalConfig) { c.errorHandler = h }
}

// state carries the per-call mutable bookkeeping through the recursive
// dispatch: deadline, depth counter, and the active context (which grows
// via overlays inside callback bodies without ever mutating the base map).
type state struct {
	ev       *Evaluator
	ctx      context.Context
	base     map[string]interface{}
	deadline time.Time
	maxDepth int
}

// Eval evaluates root against the options in opts and returns either the
// result value or a structured error. If an error handler is installed and
// accepts the error, its substitute value is returned instead with a nil
// error.
func (e *Evaluator) Eval(ctx context.Context, root *types.Node, opts ...EvalOption) (interface{}, *types.Error) {
	cfg := evalConfig{timeout: defaultTimeout, maxDepth: defaultMaxDepth}
	for _, opt := range opts {
		opt(&cfg)
	}

	st := &state{
		ev:       e,
		ctx:      ctx,
		base:     cfg.context,
		deadline: nowOrZero(cfg.timeout),
		maxDepth: cfg.maxDepth,
	}

	// The property cache is keyed on map pointer identity (readProperty in
	// member.go), which Go's allocator can reuse once a map from a prior
	// Eval call is collected. Clearing at the start of every call keeps
	// every key's object alive for the lifetime of the cache entry, so a
	// hit can never resolve to a stale object's field.
	e.propCache.Clear()

	val, err := st.eval(root, st.base, 0)
	if err != nil && cfg.errorHandler != nil {
		if substitute, ok := cfg.errorHandler(err); ok {
			return substitute, nil
		}
	}
	return val, err
}

// Stats exposes the property-access cache's hit/miss counters, surfaced by
// the orchestrator's Stats() (SPEC_FULL.md §6).
func (e *Evaluator) Stats() cache.Stats {
	return e.propCache.Stats()
}

// ClearCache empties the property-access cache.
func (e *Evaluator) ClearCache() {
	e.propCache.Clear()
}

// ResetStats zeroes the property-access cache's hit/miss counters.
func (e *Evaluator) ResetStats() {
	e.propCache.ResetStats()
}

func nowOrZero(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}

// eval is the per-variant dispatch. env is the active context for this
// subtree: the base context, or an overlay extended with callback-bound
// parameters. depth is the current stack-frame count for the cap.
func (st *state) eval(n *types.Node, env map[string]interface{}, depth int) (interface{}, *types.Error) {
	if n == nil {
		return types.Undefined, nil
	}
	if depth > st.maxDepth {
		return nil, types.NewError(types.ErrStackOverflow,
			fmt.Sprintf("recursion depth exceeded %d frames", st.maxDepth), n.Pos.Column)
	}
	if !st.deadline.IsZero() && time.Now().After(st.deadline) {
		return nil, types.NewError(types.ErrEvalTimeout, "evaluation exceeded the configured timeout", n.Pos.Column)
	}
	select {
	case <-st.ctx.Done():
		return nil, types.NewError(types.ErrEvalTimeout, "evaluation canceled", n.Pos.Column)
	default:
	}

	switch n.Kind {
	case types.KindLiteral:
		return st.evalLiteral(n), nil
	case types.KindIdentifier:
		return st.evalIdentifier(n, env), nil
	case types.KindMember:
		return st.evalMember(n, env, depth)
	case types.KindCall:
		return st.evalCall(n, env, depth)
	case types.KindUnary:
		return st.evalUnary(n, env, depth)
	case types.KindBinary:
		return st.evalBinary(n, env, depth)
	case types.KindLogical:
		return st.evalLogical(n, env, depth)
	case types.KindConditional:
		return st.evalConditional(n, env, depth)
	case types.KindArray:
		return st.evalArray(n, env, depth)
	case types.KindObject:
		return st.evalObject(n, env, depth)
	case types.KindArrow:
		// An Arrow reached outside callback context is opaque: it has no
		// standalone value, but returning it rather than erroring lets a
		// bare `x => x` subtree be passed around as data without the
		// evaluator having to special-case every caller.
		return n, nil
	default:
		return nil, types.NewError(types.ErrUnknownNodeVariant,
			fmt.Sprintf("cannot evaluate node variant %q", n.Kind), n.Pos.Column)
	}
}

func (st *state) evalLiteral(n *types.Node) interface{} {
	switch n.ScalarKind {
	case types.ScalarNull:
		return nil
	case types.ScalarBoolean:
		return n.Bool
	case types.ScalarNumber:
		return n.Num
	case types.ScalarString:
		return n.Str
	default:
		return nil
	}
}

func (st *state) evalIdentifier(n *types.Node, env map[string]interface{}) interface{} {
	switch n.Name {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	case "undefined":
		return types.Undefined
	case "NaN":
		return nan()
	case "Infinity":
		return posInf()
	}
	if env != nil {
		if v, ok := env[n.Name]; ok {
			return v
		}
	}
	return types.Undefined
}

// denylistHit re-checks the property denylist at evaluation time, reusing
// the validator's fixed table so the two stages never drift apart (spec.md
// §4.F: "Enforces property denylist again at runtime (defense in depth)").
func denylistHit(name string) bool {
	return validator.PropertyDenylist[name]
}
