// Package cache memoizes repository reads. Entries expire after a TTL and are
// dropped explicitly by prefix when the underlying content changes.
package cache

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is injected into services so tests can swap in a no-op or a fake.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	GetOrCompute(key string, ttl time.Duration, compute func() (interface{}, error)) (interface{}, error)
	Invalidate(prefix string)
}

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Memory is a process-local Cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
	now     func() time.Time
	// gen is bumped by every Invalidate. A computation that started under an
	// older generation may have read stale content and is not stored.
	gen uint64
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached value for key if it has not expired.
func (m *Memory) Get(key string) (interface{}, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key. A non-positive ttl never expires.
func (m *Memory) Set(key string, value interface{}, ttl time.Duration) {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
}

// GetOrCompute returns the cached value or computes, stores and returns it.
// Concurrent misses on the same key share one computation. Errors are not
// cached, nor are results of a computation that overlapped an Invalidate.
func (m *Memory) GetOrCompute(key string, ttl time.Duration, compute func() (interface{}, error)) (interface{}, error) {
	if v, ok := m.Get(key); ok {
		return v, nil
	}
	gen := m.generation()
	flight := key + "#" + strconv.FormatUint(gen, 10)
	v, err, _ := m.group.Do(flight, func() (interface{}, error) {
		if v, ok := m.Get(key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		m.setIfGeneration(key, v, ttl, gen)
		return v, nil
	})
	return v, err
}

func (m *Memory) generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen
}

func (m *Memory) setIfGeneration(key string, value interface{}, ttl time.Duration, gen uint64) {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return
	}
	m.entries[key] = e
}

// Invalidate removes every key starting with prefix. An empty prefix clears
// the cache.
func (m *Memory) Invalidate(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	if prefix == "" {
		m.entries = make(map[string]entry)
		return
	}
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(string) (interface{}, bool) { return nil, false }

func (Nop) Set(string, interface{}, time.Duration) {}

func (Nop) Invalidate(string) {}

func (Nop) GetOrCompute(_ string, _ time.Duration, compute func() (interface{}, error)) (interface{}, error) {
	return compute()
}

// Fetch is a typed wrapper around GetOrCompute.
func Fetch[T any](c Cache, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	v, err := c.GetOrCompute(key, ttl, func() (interface{}, error) {
		return compute()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		// A foreign value under this key; recompute without caching.
		return compute()
	}
	return typed, nil
}
