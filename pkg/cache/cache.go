package cache

import (
	"container/list"
	"sync"
)

// EvictCallback runs after an entry is evicted to make room. It runs
// outside the cache lock, so re-entering the cache from it is safe.
type EvictCallback[V any] func(key string, value V)

// Option configures a Cache at construction.
type Option[V any] func(*Cache[V])

// WithEvictionCallback registers fn to run for every capacity eviction.
// Delete and Clear do not trigger it.
func WithEvictionCallback[V any](fn EvictCallback[V]) Option[V] {
	return func(c *Cache[V]) {
		c.evictFn = fn
	}
}

type entry[V any] struct {
	key   string
	value V
}

// Cache is a thread-safe string-keyed cache with least-recently-used
// eviction. A capacity of zero or less disables eviction and the cache
// grows without bound. Statistics are always collected.
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = most recently used
	stats    *Statistics
	evictFn  EvictCallback[V]
}

// New returns an empty cache holding at most capacity entries. Zero or
// negative capacity means unbounded.
func New[V any](capacity int, opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
		stats:    NewStatistics(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get returns the value stored under key and marks it most recently used.
// The lookup is recorded as a hit or a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.stats.Miss()
		var zero V
		return zero, false
	}
	c.stats.Hit()
	c.order.MoveToFront(el)
	return el.Value.(*entry[V]).value, true
}

// GetOrSet returns the resident value for key when one exists, otherwise
// inserts value and returns it. The second result reports whether the
// insert happened. Lookup accounting belongs to Get; GetOrSet records only
// the set and any eviction it causes.
func (c *Cache[V]) GetOrSet(key string, value V) (V, bool) {
	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		resident := el.Value.(*entry[V]).value
		c.mu.Unlock()
		return resident, false
	}
	evicted := c.insert(key, value)
	c.mu.Unlock()
	c.notifyEvict(evicted)
	return value, true
}

// Set stores value under key, replacing any resident entry, and reports
// whether a new entry was created.
func (c *Cache[V]) Set(key string, value V) bool {
	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		el.Value.(*entry[V]).value = value
		c.order.MoveToFront(el)
		c.stats.Set()
		c.mu.Unlock()
		return false
	}
	evicted := c.insert(key, value)
	c.mu.Unlock()
	c.notifyEvict(evicted)
	return true
}

// insert adds a new entry and evicts the least recently used one when the
// capacity is exceeded. The caller holds mu; the evicted entry is returned
// so its callback can run outside the lock.
func (c *Cache[V]) insert(key string, value V) *entry[V] {
	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value})
	c.stats.Set()
	c.stats.UpdateSize(int64(len(c.items)))

	if c.capacity <= 0 || len(c.items) <= c.capacity {
		return nil
	}
	oldest := c.order.Back()
	if oldest == nil {
		return nil
	}
	ev := oldest.Value.(*entry[V])
	c.order.Remove(oldest)
	delete(c.items, ev.key)
	c.stats.Eviction()
	c.stats.UpdateSize(int64(len(c.items)))
	return ev
}

func (c *Cache[V]) notifyEvict(ev *entry[V]) {
	if ev != nil && c.evictFn != nil {
		c.evictFn(ev.key, ev.value)
	}
}

// Delete removes key and reports whether it was resident.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.order.Remove(el)
	delete(c.items, key)
	c.stats.Delete()
	c.stats.UpdateSize(int64(len(c.items)))
	return true
}

// Clear removes every entry. Cumulative counters survive; use
// Stats().Reset() to zero those as well.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.stats.UpdateSize(0)
}

// Size returns the number of resident entries.
func (c *Cache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns the resident keys, most recently used first.
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[V]).key)
	}
	return keys
}

// Stats returns the live statistics tracker shared with the cache.
func (c *Cache[V]) Stats() *Statistics {
	return c.stats
}
