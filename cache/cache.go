package cache

import (
	"sync"
	"time"

	"github.com/use-agent/jobscout/models"
)

// entry holds a run result with its creation timestamp.
type entry struct {
	run       *models.RunResult
	createdAt time.Time
}

// Cache keeps recent run results in memory, keyed by run ID.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Cache holding at most maxEntries results for ttl each.
// A background goroutine evicts expired entries every ttl/4 until Close.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		stop:       make(chan struct{}),
	}
	if ttl > 0 {
		go c.cleanupLoop(ttl / 4)
	}
	return c
}

// Get returns the run stored under id if it has not expired.
func (c *Cache) Get(id string) (*models.RunResult, bool) {
	c.mu.RLock()
	e, ok := c.store[id]
	c.mu.RUnlock()

	if !ok || c.expired(e, time.Now()) {
		return nil, false
	}
	return e.run, true
}

// Set stores run under its RunID. If the cache is at capacity the oldest
// entry is evicted to make room.
func (c *Cache) Set(run *models.RunResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[run.RunID]; !exists && len(c.store) >= c.maxEntries {
		var (
			oldestID string
			oldestAt time.Time
		)
		for id, e := range c.store {
			if oldestID == "" || e.createdAt.Before(oldestAt) {
				oldestID, oldestAt = id, e.createdAt
			}
		}
		delete(c.store, oldestID)
	}

	c.store[run.RunID] = &entry{
		run:       run,
		createdAt: time.Now(),
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) expired(e *entry, now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.createdAt) > c.ttl
}

// cleanupLoop evicts expired entries every interval.
func (c *Cache) cleanupLoop(interval time.Duration) {
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.evictExpired(now)
		}
	}
}

func (c *Cache) evictExpired(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if c.expired(e, now) {
			delete(c.store, k)
		}
	}
}
