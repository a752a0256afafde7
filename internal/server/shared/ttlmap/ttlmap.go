// Package ttlmap provides a concurrency-safe map whose entries expire after
// a per-entry time-to-live.
//
// Expired entries are invisible to readers immediately and are physically
// removed either by the next writer touching the key or by a janitor
// goroutine started with StartJanitor.
package ttlmap

import (
	"context"
	"sync"
	"time"

	"github.com/thejerf/abtime"
)

// JanitorTickerID identifies the janitor ticker on an abtime.ManualTime.
const JanitorTickerID = 1

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type Map[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]entry[V]
	clock abtime.AbstractTime
}

// New returns an empty map. A nil clock means wall-clock time.
func New[K comparable, V any](clock abtime.AbstractTime) *Map[K, V] {
	if clock == nil {
		clock = abtime.NewRealTime()
	}
	return &Map[K, V]{items: make(map[K]entry[V]), clock: clock}
}

func (m *Map[K, V]) live(e entry[V], now time.Time) bool {
	return now.Before(e.expiresAt)
}

// Get returns the value stored under key if it has not expired.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.items[key]
	if !ok || !m.live(e, m.clock.Now()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, replacing any previous entry. A non-positive
// ttl removes the key instead.
func (m *Map[K, V]) Set(key K, value V, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ttl <= 0 {
		delete(m.items, key)
		return
	}
	m.items[key] = entry[V]{value: value, expiresAt: m.clock.Now().Add(ttl)}
}

// SetIfAbsent stores value only if key has no live entry, and reports
// whether it did. The check and the write happen under one lock.
func (m *Map[K, V]) SetIfAbsent(key K, value V, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if e, ok := m.items[key]; ok && m.live(e, now) {
		return false
	}
	m.items[key] = entry[V]{value: value, expiresAt: now.Add(ttl)}
	return true
}

// Delete removes key and reports whether a live entry was removed.
func (m *Map[K, V]) Delete(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		return false
	}
	delete(m.items, key)
	return m.live(e, m.clock.Now())
}

// Len counts live entries.
func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.clock.Now()
	n := 0
	for _, e := range m.items {
		if m.live(e, now) {
			n++
		}
	}
	return n
}

// Sweep removes every expired entry and returns how many were removed.
func (m *Map[K, V]) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	removed := 0
	for k, e := range m.items {
		if !m.live(e, now) {
			delete(m.items, k)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps the map every interval on a new goroutine until ctx
// is done. The returned channel is closed once the goroutine has exited.
func (m *Map[K, V]) StartJanitor(ctx context.Context, interval time.Duration) <-chan struct{} {
	ticker := m.clock.NewTicker(interval, JanitorTickerID)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Channel():
				m.Sweep()
			}
		}
	}()

	return done
}
