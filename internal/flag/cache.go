package flag

import (
	"sync"
	"time"
)

// StatusCache memoizes the flag value for a short TTL so status reads don't
// hit Redis on every page load. The clock is injected so tests control time.
type StatusCache struct {
	mu        sync.Mutex
	value     bool
	fetchedAt time.Time
	valid     bool

	ttl time.Duration
	now func() time.Time
}

func NewStatusCache(ttl time.Duration, now func() time.Time) *StatusCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &StatusCache{ttl: ttl, now: now}
}

// Get returns the cached value and whether it is still fresh. A stale entry
// is dropped on read.
func (c *StatusCache) Get() (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return false, false
	}
	if c.now().Sub(c.fetchedAt) >= c.ttl {
		c.valid = false
		return false, false
	}
	return c.value, true
}

// Set stores a value with the current timestamp.
func (c *StatusCache) Set(value bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	c.fetchedAt = c.now()
	c.valid = true
}

// Invalidate drops the cached entry.
func (c *StatusCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}
