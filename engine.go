// Package safeexpr is the orchestrator (spec.md §4.G): it sequences
// parse -> validate -> evaluate for a single Engine.Evaluate call, owns the
// four process-wide LRU caches named in spec.md §5 (parse, validation,
// property, template), and wires the function/type registries the other
// stages consult.
//
// Grounded on the teacher's gosonata.go top-level Compile/Eval/MustCompile
// convenience functions, generalized into a long-lived Engine because this
// spec's orchestrator — unlike the teacher's stateless compile step — owns
// mutable registries and caches that must survive across calls.
package safeexpr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/flowkit/safeexpr/pkg/cache"
	"github.com/flowkit/safeexpr/pkg/evaluator"
	"github.com/flowkit/safeexpr/pkg/functions"
	"github.com/flowkit/safeexpr/pkg/parser"
	"github.com/flowkit/safeexpr/pkg/types"
	"github.com/flowkit/safeexpr/pkg/typeregistry"
	"github.com/flowkit/safeexpr/pkg/validator"
)

const (
	defaultParseCacheSize    = 512
	defaultTemplateCacheSize = 256
	defaultMaxComplexity     = 500.0
	defaultMaxTreeDepth      = 64
	defaultTimeout           = 5 * time.Second
	defaultStackDepth        = 50
)

// Engine is the long-lived orchestrator. Its caches are internally
// synchronized, so concurrent Evaluate calls are safe. The function
// registry, type registry and validator custom rules are plain maps and
// slices with no locking: changing them (AddFunction, RemoveFunction,
// RegisterType, UnregisterType, AddRule, RemoveRule, Import) while another
// goroutine uses the Engine is a data race.
type Engine struct {
	parseCache    *parser.Cache
	validator     *validator.Validator
	evaluator     *evaluator.Evaluator
	functions     *functions.Registry
	types         *typeregistry.Registry
	templateCache *cache.Cache[Result]

	logger *slog.Logger

	strict        bool
	maxComplexity float64
	maxTreeDepth  int
	timeout       time.Duration
	stackDepth    int
}

// Option configures an Engine at construction time, mirroring the
// teacher's functional-options style (CompileOption, EvalOption).
type Option func(*Engine)

// WithLogger installs a custom logger. Defaults to slog.Default().
// Debug-level logs trace stage transitions; context values are never
// logged at Info level or above, since they may carry caller secrets.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithFunctionRegistry installs a pre-built function registry instead of
// the default builtin set, e.g. one assembled by functions.New() plus
// custom SafeFunction entries.
func WithFunctionRegistry(r *functions.Registry) Option {
	return func(e *Engine) { e.functions = r }
}

// WithTypeRegistry installs a pre-built type registry instead of an empty
// one.
func WithTypeRegistry(r *typeregistry.Registry) Option {
	return func(e *Engine) { e.types = r }
}

// WithParseCacheSize overrides the parse cache's capacity.
func WithParseCacheSize(n int) Option {
	return func(e *Engine) { e.parseCache = parser.NewCache(n) }
}

// WithTemplateCacheSize overrides the template result cache's capacity.
func WithTemplateCacheSize(n int) Option {
	return func(e *Engine) { e.templateCache = cache.New[Result](n) }
}

// WithStrict toggles validation. Direct mode always enforces complexity
// and depth caps from parse metadata; strict mode additionally runs the
// security validator before evaluation (spec.md §4.G step 2). Defaults to
// true — disabling it is a caller's explicit, informed choice.
func WithStrict(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// WithMaxComplexity overrides the parse-metadata complexity cap enforced
// before validation/execution.
func WithMaxComplexity(max float64) Option {
	return func(e *Engine) { e.maxComplexity = max }
}

// WithMaxTreeDepth overrides the parse-metadata structural depth cap.
func WithMaxTreeDepth(max int) Option {
	return func(e *Engine) { e.maxTreeDepth = max }
}

// WithTimeout overrides the evaluator's default 5s wall-clock timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithStackDepth overrides the evaluator's default 50-frame recursion cap.
func WithStackDepth(n int) Option {
	return func(e *Engine) { e.stackDepth = n }
}

// New creates an Engine wired with the default builtin function set, an
// empty type registry, and the four bounded caches from spec.md §5.
func New(opts ...Option) *Engine {
	e := &Engine{
		parseCache:    parser.NewCache(defaultParseCacheSize),
		functions:     functions.NewWithDefaults(),
		types:         typeregistry.New(),
		templateCache: cache.New[Result](defaultTemplateCacheSize),
		logger:        slog.Default(),
		strict:        true,
		maxComplexity: defaultMaxComplexity,
		maxTreeDepth:  defaultMaxTreeDepth,
		timeout:       defaultTimeout,
		stackDepth:    defaultStackDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.validator = validator.New(e.functions)
	e.evaluator = evaluator.New(e.functions)
	return e
}

// HoleResult is one processed {{ ... }} template hole's diagnostic record
// (spec.md §4.G step 4).
type HoleResult struct {
	Original   string
	Evaluated  interface{}
	StartIndex int
	EndIndex   int
}

// Result is the evaluation outcome of a single Evaluate call. Direct mode
// populates Value; template mode populates TemplateResult and
// ProcessedHoles. IsTemplate distinguishes the two (spec.md §6's two result
// shapes, merged into one Go struct in the teacher's structured-result
// idiom rather than an untyped union).
type Result struct {
	Success    bool
	IsTemplate bool

	// Direct mode.
	Value    interface{}
	Metadata *types.ParsedExpression

	// Template mode.
	TemplateResult string
	ProcessedHoles []HoleResult

	// Populated on failure in either mode.
	Error     string
	ErrorType types.ErrorType
}

// Evaluate classifies source as template or direct mode (spec.md §4.G step
// 1) and dispatches accordingly. vars is the variable context; evalCtx
// carries cancellation for the underlying evaluator calls.
func (e *Engine) Evaluate(evalCtx context.Context, source string, vars map[string]interface{}) Result {
	if parser.HasTemplateHoles(source) {
		return e.evaluateTemplate(evalCtx, source, vars)
	}
	return e.evaluateDirect(evalCtx, source, vars)
}

// evaluateDirect implements spec.md §4.G step 2: parse -> enforce caps ->
// (strict) validate -> execute.
func (e *Engine) evaluateDirect(evalCtx context.Context, source string, vars map[string]interface{}) Result {
	pe, perr := e.parseCache.ParseWithCache(source, e.optionFingerprint())
	if perr != nil {
		e.logger.Debug("safeexpr: parse failed", "error", perr.Error())
		return failureResult(perr)
	}
	e.logger.Debug("safeexpr: parsed", "complexity", pe.Complexity, "depth", pe.Depth)

	if pe.Complexity > e.maxComplexity {
		cerr := types.NewError(types.ErrComplexityExceeded,
			"expression complexity exceeds the configured cap", 0)
		return failureResultWithMeta(cerr, pe)
	}
	if pe.Depth > e.maxTreeDepth {
		cerr := types.NewError(types.ErrDepthExceeded,
			"expression depth exceeds the configured cap", 0)
		return failureResultWithMeta(cerr, pe)
	}

	if e.strict {
		res := e.validator.Validate(pe.AST)
		if !res.Accepted {
			e.logger.Debug("safeexpr: validation rejected expression", "violations", len(res.Violations))
			verr := securityErrorFromViolations(res.Violations)
			return failureResultWithMeta(verr, pe)
		}
	}

	val, eerr := e.evaluator.Eval(evalCtx, pe.AST,
		evaluator.WithContext(vars),
		evaluator.WithTimeout(e.timeout),
		evaluator.WithMaxDepth(e.stackDepth),
	)
	if eerr != nil {
		return failureResultWithMeta(eerr, pe)
	}
	return Result{Success: true, Value: val, Metadata: pe}
}

// evaluateTemplate implements spec.md §4.G step 3: evaluate each hole in
// source order, stringify per the type registry, splice in reverse
// position order so earlier indices stay valid, then cache under
// (template, sorted context keys).
func (e *Engine) evaluateTemplate(evalCtx context.Context, source string, vars map[string]interface{}) Result {
	key := templateCacheKey(source, vars)
	if cached, ok := e.templateCache.Get(key); ok {
		return cached
	}

	holes, err := parser.SplitTemplate(source)
	if err != nil {
		res := failureResult(types.NewError(types.ErrUnclosedHole, err.Error(), 0))
		return res
	}

	out := []byte(source)
	records := make([]HoleResult, 0, len(holes))

	// Splice in reverse source-position order so earlier byte offsets
	// remain valid as later-positioned holes are replaced first.
	for i := len(holes) - 1; i >= 0; i-- {
		h := holes[i]
		if h.Expression == "" {
			continue
		}
		direct := e.evaluateDirect(evalCtx, h.Expression, vars)
		if !direct.Success {
			return Result{
				Success:    false,
				IsTemplate: true,
				Error:      direct.Error,
				ErrorType:  direct.ErrorType,
			}
		}
		text, isJSON := e.stringifyHole(direct.Value)
		if isJSON {
			text = escapeForJSONEmbedding(text)
		}
		out = append(out[:h.Start], append([]byte(text), out[h.End:]...)...)
		records = append(records, HoleResult{
			Original:   h.Expression,
			Evaluated:  direct.Value,
			StartIndex: h.Start,
			EndIndex:   h.End,
		})
	}

	// records were appended in reverse (last hole first); restore source order.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	result := Result{
		Success:        true,
		IsTemplate:     true,
		TemplateResult: string(out),
		ProcessedHoles: records,
	}
	e.templateCache.Set(key, result)
	return result
}

// stringifyHole renders a hole's evaluated value for splicing into
// surrounding template text (spec.md §4.G step 3). Returns the rendered
// text and whether the json serialization strategy was used (which
// triggers the extra backslash/quote escaping for safe embedding inside a
// surrounding JSON-string literal).
func (e *Engine) stringifyHole(v interface{}) (string, bool) {
	if types.IsNullish(v) {
		return "", false
	}
	name := e.types.DetectType(v)
	if name == "" {
		return defaultStringCoercion(v), false
	}
	strategy, _ := e.types.StrategyOf(name)
	serialized, err := e.types.Serialize(v, name, defaultStringCoercion)
	if err != nil {
		return defaultStringCoercion(v), false
	}
	if s, ok := serialized.(string); ok {
		return s, strategy == typeregistry.StrategyJSON
	}
	return defaultStringCoercion(serialized), false
}

// defaultStringCoercion is the host's standard string conversion used as
// the Serialize fallback and for values with no detected type. It mirrors
// pkg/evaluator's private coerceToString (same semantics, duplicated at
// the package boundary since that helper is unexported).
func defaultStringCoercion(v interface{}) string {
	if types.IsUndefined(v) {
		return "undefined"
	}
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return formatNumber(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// formatNumber mirrors pkg/evaluator's private formatNumber: integral
// doubles print without a decimal point, non-finite values print their
// IEEE-754 names.
func formatNumber(n float64) string {
	if math.IsNaN(n) {
		return "NaN"
	}
	if math.IsInf(n, 1) {
		return "Infinity"
	}
	if math.IsInf(n, -1) {
		return "-Infinity"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}

// escapeForJSONEmbedding escapes backslashes and double quotes so a hole's
// serialized JSON text can be spliced inside a surrounding JSON-string
// literal without breaking it out (spec.md §4.G step 3).
func escapeForJSONEmbedding(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// templateCacheKey builds the (template, sorted context keys) cache key
// named in spec.md §4.G. Per spec.md's note that cache granularity is
// intentionally coarse, only the key *set* is part of the key, not the
// values.
func templateCacheKey(template string, vars map[string]interface{}) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return template + "\x00" + strings.Join(keys, ",")
}

// optionFingerprint summarizes the active engine options affecting parse
// results, so two Engines configured differently never share a parse
// cache entry for the same source text. Currently parse results depend on
// grammar only (strict/complexity/depth/timeout are enforced downstream of
// the cache), so the fingerprint is a constant; it exists as an extension
// point if a future option ever changes parsing itself.
func (e *Engine) optionFingerprint() string {
	return "v1"
}

func failureResult(err *types.Error) Result {
	return Result{Success: false, Error: err.Error(), ErrorType: err.Type()}
}

func failureResultWithMeta(err *types.Error, pe *types.ParsedExpression) Result {
	return Result{Success: false, Error: err.Error(), ErrorType: err.Type(), Metadata: pe}
}

// violationErrorCodes maps a validator violation's Type string to the
// structured error code the orchestrator surfaces for it, so a security
// rejection reports the family that actually fired rather than a generic
// catch-all.
var violationErrorCodes = map[string]types.ErrorCode{
	"unknown-node-variant":      types.ErrUnknownNodeVariant,
	"blocked-identifier":        types.ErrBlockedIdentifier,
	"blocked-property":          types.ErrBlockedProperty,
	"prototype-pollution":       types.ErrPrototypePollution,
	"unresolved-callee":         types.ErrUnresolvedCallee,
	"blocked-operator":          types.ErrBlockedOperator,
	"too-many-arrow-params":     types.ErrInvalidArrowParam,
	"dangerous-literal":         types.ErrDangerousLiteral,
	"missing-callback-argument": types.ErrMissingCallbackArg,
}

// securityErrorFromViolations builds a single structured error from the
// first error-severity violation, since the public result shape surfaces
// one error per failed evaluate call (spec.md §6).
func securityErrorFromViolations(violations []validator.Violation) *types.Error {
	for _, v := range violations {
		if v.Severity != validator.SeverityError {
			continue
		}
		code, ok := violationErrorCodes[v.Type]
		if !ok {
			code = types.ErrUnresolvedCallee
		}
		return types.NewError(code, v.Message, v.Position.Column)
	}
	return types.NewError(types.ErrUnresolvedCallee, "expression rejected by the security validator", 0)
}

// Validate runs the parser and the security validator without evaluating,
// exposing the orchestrator-level `validate` operation (spec.md §4.G).
func (e *Engine) Validate(source string) (validator.Result, *types.Error) {
	pe, perr := e.parseCache.ParseWithCache(source, e.optionFingerprint())
	if perr != nil {
		return validator.Result{}, perr
	}
	return e.validator.Validate(pe.AST), nil
}

// Parse exposes the orchestrator-level `parse` operation: parse plus
// metadata extraction, memoized under the parse cache.
func (e *Engine) Parse(source string) (*types.ParsedExpression, *types.Error) {
	return e.parseCache.ParseWithCache(source, e.optionFingerprint())
}

// ExtractDependencies exposes the orchestrator-level `extractDependencies`
// operation: the sorted context-root names a parsed expression depends on.
func (e *Engine) ExtractDependencies(source string) ([]string, *types.Error) {
	pe, err := e.Parse(source)
	if err != nil {
		return nil, err
	}
	return pe.DependencyList(), nil
}

// AddFunction registers a custom safe function, delegating to the shared
// function registry (spec.md §4.G `addFunction`).
func (e *Engine) AddFunction(fn *functions.SafeFunction) error {
	return e.functions.Register(fn)
}

// RemoveFunction unregisters a custom safe function by name.
func (e *Engine) RemoveFunction(name string) {
	e.functions.Unregister(name)
}

// ListFunctions lists registered function names, optionally filtered to a
// category.
func (e *Engine) ListFunctions(category string) []string {
	return e.functions.List(category)
}

// AddRule registers a custom validator rule (SPEC_FULL.md §6).
func (e *Engine) AddRule(rule validator.Rule) {
	e.validator.AddRule(rule)
}

// RemoveRule removes a previously registered custom validator rule by type
// name.
func (e *Engine) RemoveRule(ruleType string) {
	e.validator.RemoveRule(ruleType)
}

// RegisterType registers a schema-keyed type entry (spec.md §4.G
// `registerType`). Re-registering a name moves it to the front of the
// first-match-wins scan order (spec.md §3/§4.C).
func (e *Engine) RegisterType(name string, schema typeregistry.Schema, strategy typeregistry.Strategy) {
	e.types.Register(name, schema, strategy)
}

// UnregisterType removes a previously registered type entry.
func (e *Engine) UnregisterType(name string) {
	e.types.Unregister(name)
}

// HasType reports whether name is currently registered.
func (e *Engine) HasType(name string) bool {
	return e.types.HasType(name)
}

// GetRegisteredTypes lists registered type names, most-recently-registered
// first.
func (e *Engine) GetRegisteredTypes() []string {
	return e.types.List()
}

// CacheStats reports hit/miss/size counters for each of the four named
// caches (SPEC_FULL.md §6's extension of spec.md §4.B's `stats()`).
type CacheStats struct {
	Parse      cache.Stats
	Validation cache.Stats
	Property   cache.Stats
	Template   cache.Stats
}

// Stats reports per-cache hit/miss counters plus the function registry's
// per-category counts.
func (e *Engine) Stats() (CacheStats, map[string]int) {
	return CacheStats{
		Parse:      e.parseCache.Stats(),
		Validation: e.validator.Stats(),
		Property:   e.evaluator.Stats(),
		Template:   e.templateCache.Stats(),
	}, e.functions.Stats()
}

// ResetStats zeroes every cache's hit/miss counters without evicting their
// contents (spec.md §4.G `resetStats`).
func (e *Engine) ResetStats() {
	e.parseCache.ResetStats()
	e.validator.ResetStats()
	e.evaluator.ResetStats()
	e.templateCache.ResetStats()
}

// ClearCaches empties all four named caches (spec.md §4.G `clearCaches`).
func (e *Engine) ClearCaches() {
	e.parseCache.Clear()
	e.validator.ClearCache()
	e.evaluator.ClearCache()
	e.templateCache.Clear()
}

// Export snapshots the engine's custom function set for later Import into
// another Engine (SPEC_FULL.md §6).
func (e *Engine) Export() map[string]*functions.SafeFunction {
	return e.functions.Export()
}

// Import merges a previously exported function set into this engine,
// overwriting same-named entries.
func (e *Engine) Import(fns map[string]*functions.SafeFunction) {
	e.functions.Import(fns)
}
