package cache

import (
	"sync"
	"sync/atomic"
)

// Statistics tracks cache effectiveness. All methods are safe for
// concurrent use.
type Statistics struct {
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	evictions atomic.Int64

	mu          sync.RWMutex
	currentSize int64
	maxSize     int64 // high-water mark, survives Clear
}

// NewStatistics returns a zeroed tracker.
func NewStatistics() *Statistics {
	return &Statistics{}
}

// Hit records a lookup that found its key.
func (s *Statistics) Hit() { s.hits.Add(1) }

// Miss records a lookup that did not.
func (s *Statistics) Miss() { s.misses.Add(1) }

// Set records a store.
func (s *Statistics) Set() { s.sets.Add(1) }

// Delete records an explicit removal.
func (s *Statistics) Delete() { s.deletes.Add(1) }

// Eviction records a capacity eviction.
func (s *Statistics) Eviction() { s.evictions.Add(1) }

// UpdateSize records the current entry count and advances the high-water
// mark when it grows.
func (s *Statistics) UpdateSize(size int64) {
	s.mu.Lock()
	s.currentSize = size
	if size > s.maxSize {
		s.maxSize = size
	}
	s.mu.Unlock()
}

// Hits returns the cumulative hit count.
func (s *Statistics) Hits() int64 { return s.hits.Load() }

// Misses returns the cumulative miss count.
func (s *Statistics) Misses() int64 { return s.misses.Load() }

// Sets returns the cumulative store count.
func (s *Statistics) Sets() int64 { return s.sets.Load() }

// Deletes returns the cumulative removal count.
func (s *Statistics) Deletes() int64 { return s.deletes.Load() }

// Evictions returns the cumulative eviction count.
func (s *Statistics) Evictions() int64 { return s.evictions.Load() }

// CurrentSize returns the entry count at the last update.
func (s *Statistics) CurrentSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSize
}

// MaxSize returns the largest entry count the cache has held.
func (s *Statistics) MaxSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSize
}

// HitRatio returns hits over total lookups, 0.0 to 1.0. No lookups yet
// reads as 0.0.
func (s *Statistics) HitRatio() float64 {
	hits := s.Hits()
	total := hits + s.Misses()
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total)
}

// Reset zeroes every counter and the size watermarks.
func (s *Statistics) Reset() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.sets.Store(0)
	s.deletes.Store(0)
	s.evictions.Store(0)

	s.mu.Lock()
	s.currentSize = 0
	s.maxSize = 0
	s.mu.Unlock()
}
