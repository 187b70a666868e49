package planner

import (
	"sync"
	"time"

	"github.com/kolbrek/fish/core"
)

// Cache memoizes Plans by (src.ID, dst.ID), as required by spec.md §4.4's
// "Memoization" clause. A cached plan is only reused while its stamped
// Context generation still matches the Context's current generation;
// insertion uses double-checked locking so concurrent first-use callers
// planning the same pair don't both pay for the search.
//
// maxSize caps the number of memoized plans (config.Config.PlanCacheSize);
// 0 means unbounded. Once at capacity, Find evicts the oldest-inserted
// entry to make room — a plain FIFO rather than LRU, since re-planning an
// evicted pair just costs one more graph search, not a correctness issue.
type Cache struct {
	mu      sync.RWMutex
	plans   map[[2]int]*Plan
	order   [][2]int
	maxSize int
	timeout time.Duration
}

// NewCache returns an empty plan cache. maxSize caps the number of
// memoized plans (0 means unbounded); timeout bounds each uncached graph
// search (0 means no bound), per config.Config.PlanCacheSize/PlanTimeout.
func NewCache(maxSize int, timeout time.Duration) *Cache {
	return &Cache{plans: make(map[[2]int]*Plan), maxSize: maxSize, timeout: timeout}
}

// Find returns a memoized plan for (src, dst) if one exists and the
// Context hasn't mutated since it was computed, planning and caching a new
// one otherwise.
func (c *Cache) Find(ctx *core.Context, src, dst *core.Format) (*Plan, error) {
	key := [2]int{src.ID(), dst.ID()}
	gen := ctx.Generation()

	c.mu.RLock()
	if p, ok := c.plans[key]; ok && p.generation == gen {
		c.mu.RUnlock()
		return p, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.plans[key]; ok && p.generation == gen {
		return p, nil
	}

	p, err := FindWithTimeout(ctx, src, dst, c.timeout)
	if err != nil {
		return nil, err
	}

	if _, exists := c.plans[key]; !exists {
		if c.maxSize > 0 && len(c.plans) >= c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.plans, oldest)
		}
		c.order = append(c.order, key)
	}
	c.plans[key] = p
	return p, nil
}

// Invalidate drops every cached plan. Callers don't usually need this
// directly — Find already compares against the Context's current
// generation — but it's useful for tests that want a clean cache.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plans = make(map[[2]int]*Plan)
	c.order = nil
}

// Len reports how many plans are currently cached, stale or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.plans)
}
