// Package cache provides a generic keyed cache with least-recently-used
// eviction.
//
//	c := cache.New[string, int](100)
//	c.Set("key", 42)
//	value, ok := c.Get("key")
//
// A cache built with [NewWithEvict] hands evicted and cleared values to a
// callback, which lets the owner release device resources the values hold.
//
// # Thread Safety
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
