package dedupe

import (
	"sync"
	"time"
)

type entry struct {
	hash string
	at   time.Time
}

// Cache remembers recently ingested line hashes so bouncer scrollback
// replays do not land in the spool twice. It is bounded by both capacity
// and a TTL window.
type Cache struct {
	mu       sync.Mutex
	seen     map[string]time.Time
	order    []entry
	capacity int
	ttl      time.Duration
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		seen:     make(map[string]time.Time, capacity),
		order:    make([]entry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
	}
}

// IsSeen reports whether the hash was recorded inside the ttl window. It
// does not record the hash; the worker calls MarkSeen only after the line
// has been durably spooled.
func (c *Cache) IsSeen(hash string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	at, ok := c.seen[hash]
	return ok && now.Sub(at) <= c.ttl
}

// MarkSeen records a spooled line hash.
func (c *Cache) MarkSeen(hash string) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seen[hash] = now
	c.order = append(c.order, entry{hash: hash, at: now})
	c.evict(now)
}

func (c *Cache) evict(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.seen) > c.capacity || c.order[0].at.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		// A hash re-marked after this entry keeps its newer timestamp.
		if at, ok := c.seen[oldest.hash]; ok && at.Equal(oldest.at) {
			delete(c.seen, oldest.hash)
		}
	}
}

// Len returns the number of live hashes, for worker metrics logging.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
