package cache

import (
	"container/list"
	"sync"
	"time"
)

var _ Cache[int] = (*LRUCache[int])(nil)

// LRUCache evicts by size and TTL and can purge a whole scope at once.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	items   map[entryKey]*list.Element
	scopes  map[string]map[entryKey]struct{}
	lru     *list.List
}

type entryKey struct {
	scope string
	key   string
}

type cacheItem[T any] struct {
	key       entryKey
	data      T
	expiresAt time.Time
}

func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		items:   make(map[entryKey]*list.Element),
		scopes:  make(map[string]map[entryKey]struct{}),
		lru:     list.New(),
	}
}

func (c *LRUCache[T]) Get(scope, key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.items[entryKey{scope, key}]
	if !ok {
		return zero, false
	}
	item := elem.Value.(*cacheItem[T])
	if c.now().After(item.expiresAt) {
		c.removeElement(elem)
		return zero, false
	}
	c.lru.MoveToFront(elem)
	return item.data, true
}

func (c *LRUCache[T]) Set(scope, key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := entryKey{scope, key}
	item := &cacheItem[T]{key: k, data: data, expiresAt: c.now().Add(c.ttl)}

	if elem, ok := c.items[k]; ok {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	c.items[k] = c.lru.PushFront(item)
	if c.scopes[scope] == nil {
		c.scopes[scope] = make(map[entryKey]struct{})
	}
	c.scopes[scope][k] = struct{}{}

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Purge drops every entry of scope and returns how many were removed.
func (c *LRUCache[T]) Purge(scope string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.scopes[scope]
	n := 0
	for k := range keys {
		if elem, ok := c.items[k]; ok {
			c.removeElement(elem)
			n++
		}
	}
	delete(c.scopes, scope)
	return n
}

func (c *LRUCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	if keys := c.scopes[item.key.scope]; keys != nil {
		delete(keys, item.key)
		if len(keys) == 0 {
			delete(c.scopes, item.key.scope)
		}
	}
	c.lru.Remove(elem)
}

// CleanExpired removes expired entries and returns how many were removed.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var expired []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*cacheItem[T]).expiresAt) {
			expired = append(expired, elem)
		}
	}
	for _, elem := range expired {
		c.removeElement(elem)
	}
	return len(expired)
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
