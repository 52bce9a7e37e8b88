/*
Package cache stores rendered API responses for a bounded time.

PURPOSE:
  Statement and lookup responses are expensive to rebuild and cheap to
  serve twice. The billing core knows nothing about this package; the HTTP
  layer decides what to cache and invalidates on writes.

KEY CONCEPTS:
  Tier:    a named TTL + capacity pair ("api" for statements and lists,
           "static" for entity lookups)
  Store:   one tier's backend (Memory or Redis)
  Manager: the set of tiers plus hit/miss metrics

INVALIDATION:
  InvalidatePattern removes every key containing the pattern as a
  substring. Keys are built by Key() so "school:12" style fragments are
  predictable.

SEE ALSO:
  - api/cache.go: response caching and invalidation rules
  - api/scheduler.go: periodic purge of expired entries
*/
package cache

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"
)

var ErrUnknownTier = errors.New("unknown cache tier")

// Tier names used by the HTTP layer.
const (
	TierAPI    = "api"
	TierStatic = "static"
)

// Tier is one cache region's policy.
type Tier struct {
	Name     string
	TTL      time.Duration
	Capacity int
}

// DefaultTiers returns the api (5 min, 1000 entries) and static
// (30 min, 500 entries) tiers.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: TierAPI, TTL: 5 * time.Minute, Capacity: 1000},
		{Name: TierStatic, TTL: 30 * time.Minute, Capacity: 500},
	}
}

// Stats describes one tier.
type Stats struct {
	Tier       string  `json:"tier"`
	Backend    string  `json:"backend"`
	Entries    int     `json:"entries"`
	Capacity   int     `json:"capacity"`
	TTLSeconds int     `json:"ttl_seconds"`
	Hits       uint64  `json:"hits"`
	Misses     uint64  `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

func hitRate(hits, misses uint64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// Store is one tier's backend.
type Store interface {
	// Get returns the value and true on a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// InvalidatePattern deletes keys containing pattern and returns how many.
	InvalidatePattern(ctx context.Context, pattern string) (int, error)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)

	// Ping checks the backend is reachable without touching entries or counters.
	Ping(ctx context.Context) error
}

// Purger is implemented by backends that need expired entries swept.
type Purger interface {
	PurgeExpired() int
}

// Key builds a normalized cache key: op followed by params sorted by name.
// Empty values are dropped so "?a=" and "" hit the same entry.
//
//	Key("statement:school:3", map[string]string{"to": "2024-06-30", "from": ""})
//	// "statement:school:3?to=2024-06-30"
func Key(op string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			names = append(names, k)
		}
	}
	if len(names) == 0 {
		return op
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(op)
	for i, k := range names {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}
