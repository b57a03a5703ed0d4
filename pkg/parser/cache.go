package parser

import (
	"fmt"

	"github.com/flowkit/safeexpr/pkg/cache"
	"github.com/flowkit/safeexpr/pkg/types"
)

// result is what gets memoized for a given (expression, options) key:
// either a successfully parsed expression, or a structured error — parse
// failures are cached too, per spec.md §4.D's "including negative results".
type result struct {
	expr *types.ParsedExpression
	err  *types.Error
}

// Cache memoizes ParseWithCache results keyed by the literal source text
// plus any option fingerprint the caller supplies. It wraps the generic
// LRU the same way the teacher's compiler wraps pkg/cache for compiled
// expression trees.
type Cache struct {
	lru *cache.Cache[result]
}

// NewCache creates a parse cache bounded to capacity entries.
func NewCache(capacity int) *Cache {
	return &Cache{lru: cache.New[result](capacity)}
}

// ParseWithCache parses source, memoizing both successes and failures
// under a key derived from source and optionFingerprint (typically a
// short string summarizing the caller's active options).
func (c *Cache) ParseWithCache(source, optionFingerprint string) (*types.ParsedExpression, *types.Error) {
	key := fmt.Sprintf("%s\x00%s", optionFingerprint, source)
	r, _ := c.lru.GetOrCompute(key, func() (result, error) {
		expr, err := ParseExpression(source)
		return result{expr: expr, err: err}, nil
	})
	return r.expr, r.err
}

// Stats exposes the underlying LRU's hit/miss/len counters.
func (c *Cache) Stats() cache.Stats {
	return c.lru.Stats()
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.lru.Clear()
}

// ResetStats zeroes the hit/miss counters without clearing cached entries.
func (c *Cache) ResetStats() {
	c.lru.ResetStats()
}

// ParseExpression parses source and extracts its metadata in one step,
// producing the ParsedExpression bundle described in spec.md §3.
func ParseExpression(source string) (*types.ParsedExpression, *types.Error) {
	root, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return ExtractMetadata(root, source), nil
}
