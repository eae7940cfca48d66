// Package dedupe remembers recently handled message IDs so gateway redeliveries
// do not produce duplicate previews.
package dedupe

import (
	"sync"
	"time"
)

// DefaultWindow is how long an ID stays remembered.
const DefaultWindow = 5 * time.Minute

// DefaultCapacity bounds the cache regardless of traffic.
const DefaultCapacity = 4096

// Cache is a bounded, time-windowed set of message IDs.
type Cache struct {
	window   time.Duration
	capacity int
	now      func() time.Time

	mu    sync.Mutex
	seen  map[string]time.Time
	order []string
}

// New constructs a Cache. Non-positive arguments fall back to the defaults.
func New(window time.Duration, capacity int) *Cache {
	if window <= 0 {
		window = DefaultWindow
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		window:   window,
		capacity: capacity,
		now:      time.Now,
		seen:     make(map[string]time.Time),
	}
}

// Seen reports whether the ID was recorded inside the window, recording it as
// a side effect. The first call for an ID returns false, later calls true.
func (c *Cache) Seen(id string) bool {
	now := c.now()
	cutoff := now.Add(-c.window)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.evict(cutoff)

	if at, ok := c.seen[id]; ok && at.After(cutoff) {
		return true
	}
	if _, ok := c.seen[id]; !ok {
		c.order = append(c.order, id)
	}
	c.seen[id] = now
	return false
}

// evict drops expired entries from the front, then enforces the capacity
// bound by dropping the oldest survivors.
func (c *Cache) evict(cutoff time.Time) {
	i := 0
	for ; i < len(c.order); i++ {
		at, ok := c.seen[c.order[i]]
		if ok && at.After(cutoff) {
			break
		}
		delete(c.seen, c.order[i])
	}
	c.order = c.order[i:]

	for len(c.order) > c.capacity {
		delete(c.seen, c.order[0])
		c.order = c.order[1:]
	}
}

// Len reports how many IDs are currently remembered.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
