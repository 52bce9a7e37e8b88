package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Store for one tier. When full it drops expired
// entries first, then the entry closest to expiry.
type Memory struct {
	mu      sync.Mutex
	tier    Tier
	entries map[string]entry
	hits    uint64
	misses  uint64
	now     func() time.Time
}

func NewMemory(tier Tier) *Memory {
	return &Memory{tier: tier, entries: make(map[string]entry), now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		m.misses++
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		m.misses++
		return nil, false, nil
	}
	m.hits++
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if _, exists := m.entries[key]; !exists && m.tier.Capacity > 0 && len(m.entries) >= m.tier.Capacity {
		m.purgeLocked(now)
		if len(m.entries) >= m.tier.Capacity {
			m.evictOneLocked()
		}
	}
	m.entries[key] = entry{value: value, expiresAt: now.Add(m.tier.TTL)}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Memory) InvalidatePattern(_ context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k := range m.entries {
		if strings.Contains(k, pattern) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
	return nil
}

func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Tier:       m.tier.Name,
		Backend:    "memory",
		Entries:    len(m.entries),
		Capacity:   m.tier.Capacity,
		TTLSeconds: int(m.tier.TTL / time.Second),
		Hits:       m.hits,
		Misses:     m.misses,
		HitRate:    hitRate(m.hits, m.misses),
	}, nil
}

// Ping always succeeds; the store lives in process.
func (m *Memory) Ping(_ context.Context) error { return nil }

// PurgeExpired drops expired entries and returns how many went.
func (m *Memory) PurgeExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.purgeLocked(m.now())
}

func (m *Memory) purgeLocked(now time.Time) int {
	n := 0
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

func (m *Memory) evictOneLocked() {
	var (
		victim   string
		earliest time.Time
		found    bool
	)
	for k, e := range m.entries {
		if !found || e.expiresAt.Before(earliest) {
			victim, earliest, found = k, e.expiresAt, true
		}
	}
	if found {
		delete(m.entries, victim)
	}
}

var (
	_ Store  = (*Memory)(nil)
	_ Purger = (*Memory)(nil)
)
