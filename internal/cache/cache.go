package cache

import "sync"

// Cache is a generic thread-safe LRU cache with a soft limit.
// When the cache grows past the limit, least recently used entries are
// evicted until it is back at three quarters of the limit.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[K, V]
	limit   int
	onEvict func(K, V)

	// head is the most recently used entry, tail the least.
	head *entry[K, V]
	tail *entry[K, V]

	hits      uint64
	misses    uint64
	evictions uint64
}

type entry[K comparable, V any] struct {
	key   K
	value V
	prev  *entry[K, V]
	next  *entry[K, V]
}

// New creates a cache with the given soft limit. A limit of 0 means unlimited.
func New[K comparable, V any](limit int) *Cache[K, V] {
	return NewWithEvict[K, V](limit, nil)
}

// NewWithEvict creates a cache that calls onEvict for every value removed by
// eviction or Clear. onEvict runs with the cache locked and must not call
// back into the cache.
func NewWithEvict[K comparable, V any](limit int, onEvict func(K, V)) *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]*entry[K, V]),
		limit:   limit,
		onEvict: onEvict,
	}
}

// Get retrieves a value and marks it as recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.touch(e)
	return e.value, true
}

// Peek retrieves a value without updating recency or statistics.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		return e.value, true
	}
	var zero V
	return zero, false
}

// Set stores a value, replacing any previous value for key without calling
// the eviction callback on it.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.insert(key, value)
}

// GetOrCreate returns the cached value or stores the result of create.
// create is called under lock, so concurrent callers never create twice.
// A failed create stores nothing.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.hits++
		c.touch(e)
		return e.value, nil
	}
	c.misses++

	value, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	c.insert(key, value)
	return value, nil
}

// Delete removes an entry without calling the eviction callback and returns
// the removed value.
func (c *Cache[K, V]) Delete(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.unlink(e)
	delete(c.entries, key)
	return e.value, true
}

// Clear removes all entries, passing each to the eviction callback.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for e := c.head; e != nil; e = e.next {
		if c.onEvict != nil {
			c.onEvict(e.key, e.value)
		}
	}
	c.entries = make(map[K]*entry[K, V])
	c.head, c.tail = nil, nil
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Capacity returns the soft limit of the cache.
func (c *Cache[K, V]) Capacity() int {
	return c.limit
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Len:       len(c.entries),
		Capacity:  c.limit,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// insert stores or replaces a value. Caller must hold c.mu.
func (c *Cache[K, V]) insert(key K, value V) {
	if e, ok := c.entries[key]; ok {
		e.value = value
		c.touch(e)
		return
	}
	e := &entry[K, V]{key: key, value: value}
	c.entries[key] = e
	c.pushFront(e)

	if c.limit > 0 && len(c.entries) > c.limit {
		c.evict()
	}
}

// evict drops least recently used entries down to three quarters of the
// limit. Caller must hold c.mu.
func (c *Cache[K, V]) evict() {
	target := max(c.limit*3/4, 1)
	for len(c.entries) > target && c.tail != nil {
		e := c.tail
		c.unlink(e)
		delete(c.entries, e.key)
		c.evictions++
		if c.onEvict != nil {
			c.onEvict(e.key, e.value)
		}
	}
}

func (c *Cache[K, V]) touch(e *entry[K, V]) {
	if c.head == e {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *Cache[K, V]) pushFront(e *entry[K, V]) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache[K, V]) unlink(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the soft limit, 0 when unlimited.
	Capacity int
	// Hits and Misses count lookups through Get and GetOrCreate.
	Hits   uint64
	Misses uint64
	// HitRate is Hits over all lookups, 0.0 to 1.0.
	HitRate float64
	// Evictions counts entries dropped to honour the limit.
	Evictions uint64
}
