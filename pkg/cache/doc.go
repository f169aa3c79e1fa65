// Package cache provides a generic, thread-safe cache with optional
// least-recently-used eviction and always-on statistics.
//
// The worker's hot path is signature compilation: every create_program and
// every pool-mode execute re-presents a definition that has almost always
// been seen before. Caching the compiled form turns those into one map
// lookup, and the hit/miss counters feed the worker's stats and metrics
// surfaces.
//
//	c := cache.New[*Compiled](0) // unbounded
//	if v, ok := c.Get(key); ok {
//	    return v
//	}
//	v, _ = c.GetOrSet(key, compile(def)) // first writer wins
//
// Capacity bounds the entry count when positive; the least recently used
// entry is evicted on overflow and reported through WithEvictionCallback.
// Zero or negative capacity disables eviction.
package cache
