package ratelimiter

import (
	"sync"
	"time"
)

// memoryCache keeps bucket state for a single replica.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type cacheEntry struct {
	value int
	// deadline is zero for entries that never expire.
	deadline time.Time
}

func (e cacheEntry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && now.After(e.deadline)
}

func NewInMemory() GetterSetter {
	return newInMemory(time.Now, time.Minute)
}

func newInMemory(now func() time.Time, janitorEvery time.Duration) *memoryCache {
	c := &memoryCache{
		entries: make(map[string]cacheEntry),
		now:     now,
		stop:    make(chan struct{}),
	}
	go c.janitor(janitorEvery)
	return c
}

func (c *memoryCache) Get(key string) (int, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || e.expired(c.now()) {
		return 0, ErrCacheMiss
	}
	return e.value, nil
}

func (c *memoryCache) Set(key string, value int) error {
	c.put(key, cacheEntry{value: value})
	return nil
}

func (c *memoryCache) SetWithExpiration(key string, value int, expiration time.Duration) error {
	e := cacheEntry{value: value}
	if expiration > 0 {
		e.deadline = c.now().Add(expiration)
	}
	c.put(key, e)
	return nil
}

func (c *memoryCache) put(key string, e cacheEntry) {
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

func (c *memoryCache) janitor(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *memoryCache) removeExpired() {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
		}
	}
}

func (c *memoryCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *memoryCache) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}
