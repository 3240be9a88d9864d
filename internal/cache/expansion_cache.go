package cache

import (
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const defaultExpansionTTL = 5 * time.Minute

// ExpansionCache stores category-to-product expansions used by the agreement
// conflict checker. Expansions are invalidated wholesale when category or
// product rows change.
type ExpansionCache interface {
	Get(categoryIDs []int64) ([]int64, bool)
	Set(categoryIDs []int64, productIDs []int64)
	Invalidate()
}

type expansionCache struct {
	products Cache[string, []int64]
	ttl      time.Duration
	// generation is folded into keys so Invalidate is O(1)
	generation atomic.Int64
}

func NewExpansionCache() ExpansionCache {
	return &expansionCache{
		products: NewTTLCache[string, []int64](),
		ttl:      defaultExpansionTTL,
	}
}

func (c *expansionCache) Get(categoryIDs []int64) ([]int64, bool) {
	return c.products.Get(c.key(categoryIDs))
}

func (c *expansionCache) Set(categoryIDs []int64, productIDs []int64) {
	if len(categoryIDs) == 0 {
		return
	}
	c.products.Set(c.key(categoryIDs), productIDs, c.ttl)
}

func (c *expansionCache) Invalidate() {
	c.generation.Add(1)
}

func (c *expansionCache) key(categoryIDs []int64) string {
	sorted := make([]int64, len(categoryIDs))
	copy(sorted, categoryIDs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	parts := make([]string, 0, len(sorted)+1)
	parts = append(parts, strconv.FormatInt(c.generation.Load(), 10))
	for _, id := range sorted {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, "|")
}
