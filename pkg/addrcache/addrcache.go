// Package addrcache tracks addresses that recently failed to connect, so the
// discovery dispatcher can deprioritize them without growing an unbounded
// map the way a naive "bad addresses" set would. It is grounded on
// addrmgr.Addrmgr's bad-address bucket, sized with an LRU instead of an
// unbounded map.
package addrcache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// Cache remembers the last time an address failed to connect.
type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache
}

// New returns a Cache holding at most size recently-failed addresses.
func New(size int) *Cache {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New(size)
	if err != nil {
		// lru.New only errors on size <= 0, already guarded above.
		panic(err)
	}
	return &Cache{lru: c}
}

// MarkFailed records addr as having just failed to connect.
func (c *Cache) MarkFailed(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(addr, time.Now())
}

// RecentlyFailed reports whether addr failed within the last window.
func (c *Cache) RecentlyFailed(addr string, window time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(addr)
	if !ok {
		return false
	}
	return time.Since(v.(time.Time)) < window
}

// Forget drops addr from the cache, used once a connection to it succeeds.
func (c *Cache) Forget(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(addr)
}
