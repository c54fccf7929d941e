// Package cache provides an in-memory LRU cache with TTL for the catalog
// and rule read endpoints.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Response is a cached HTTP response body.
type Response struct {
	ContentType string
	Body        []byte
}

type entry struct {
	key       string
	value     Response
	expiresAt time.Time
}

// LRUCache is a thread-safe cache with TTL and least-recently-used eviction.
// Expired entries are dropped lazily on Get.
type LRUCache struct {
	mu      sync.Mutex
	order   *list.List // front is most recently used
	items   map[string]*list.Element
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	hits, misses uint64
}

// NewLRUCache creates a new LRU cache with the given maximum size and TTL.
func NewLRUCache(maxSize int, ttl time.Duration) *LRUCache {
	if maxSize < 1 {
		maxSize = 1
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &LRUCache{
		order:   list.New(),
		items:   make(map[string]*list.Element, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached response for key and marks it recently used.
func (c *LRUCache) Get(key string) (Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return Response{}, false
	}
	e := el.Value.(*entry)
	if c.now().After(e.expiresAt) {
		c.removeElement(el)
		c.misses++
		return Response{}, false
	}
	c.order.MoveToFront(el)
	c.hits++
	return e.value, true
}

// Set stores a response, evicting the least recently used entry when full.
func (c *LRUCache) Set(key string, value Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = expires
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.maxSize {
		c.removeElement(c.order.Back())
	}
	c.items[key] = c.order.PushFront(&entry{key: key, value: value, expiresAt: expires})
}

// Invalidate removes a specific key from the cache.
func (c *LRUCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// InvalidateAll removes all entries from the cache.
func (c *LRUCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element, c.maxSize)
}

// Size returns the number of entries, including expired ones not yet dropped.
func (c *LRUCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the hit and miss counters.
func (c *LRUCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// removeElement must be called with c.mu held.
func (c *LRUCache) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
