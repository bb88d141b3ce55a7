// Package cache provides a small thread-safe LRU cache.
//
//	c := cache.New[string, []uint32](32)
//	words, err := c.GetOrCreate(key, func() ([]uint32, error) {
//	    return compile(text)
//	})
//
// Failed creations are not cached.
package cache
