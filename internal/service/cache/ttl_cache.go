package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	v   []byte
	exp time.Time
	set time.Time
}

func (e entry) expired(now time.Time) bool { return !e.exp.IsZero() && now.After(e.exp) }

// TTLCache is an in-process BytesCache used when Redis is not configured.
// Expired entries are dropped on read and swept once the map reaches maxEntries;
// if it is still full the oldest write is evicted.
type TTLCache struct {
	mu         sync.RWMutex
	m          map[string]entry
	maxEntries int
	now        func() time.Time
}

var _ BytesCache = (*TTLCache)(nil)

func NewTTLCache() *TTLCache {
	return &TTLCache{m: make(map[string]entry), maxEntries: 10000, now: time.Now}
}

func (c *TTLCache) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if now := c.now(); e.expired(now) {
		c.mu.Lock()
		// a concurrent SetBytes may have replaced it
		if cur, ok := c.m[key]; ok && cur.expired(now) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.v, true, nil
}

func (c *TTLCache) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	now := c.now()
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[key]; !exists && len(c.m) >= c.maxEntries {
		for k, e := range c.m {
			if e.expired(now) {
				delete(c.m, k)
			}
		}
		if len(c.m) >= c.maxEntries {
			c.evictOldest()
		}
	}
	c.m[key] = entry{v: value, exp: exp, set: now}
	return nil
}

func (c *TTLCache) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for k, e := range c.m {
		if !found || e.set.Before(oldest) {
			oldestKey, oldest, found = k, e.set, true
		}
	}
	if found {
		delete(c.m, oldestKey)
	}
}

// Len returns the number of stored entries, expired or not.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
