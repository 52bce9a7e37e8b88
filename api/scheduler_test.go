package api

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattilda/school-ledger/cache"
)

type sweepClock struct{ now atomic.Int64 }

func (c *sweepClock) Now() time.Time      { return time.Unix(0, c.now.Load()).UTC() }
func (c *sweepClock) Set(t time.Time)     { c.now.Store(t.UnixNano()) }
func (c *sweepClock) Add(d time.Duration) { c.Set(c.Now().Add(d)) }

func newSweepFixture(t *testing.T) (*CacheSweeper, *cache.Manager, *sweepClock) {
	t.Helper()
	clock := &sweepClock{}
	clock.Set(time.Date(2024, time.June, 1, 23, 58, 0, 0, time.UTC))

	stores := map[string]cache.Store{}
	for _, tier := range cache.DefaultTiers() {
		stores[tier.Name] = cache.NewMemory(tier).WithClock(clock.Now)
	}
	m := cache.NewManager(stores, nil, nil)
	sw := NewCacheSweeper(m, nil)
	sw.Clock = clock.Now
	return sw, m, clock
}

func tierEntries(t *testing.T, m *cache.Manager) map[string]int {
	t.Helper()
	stats, err := m.Stats(context.Background())
	require.NoError(t, err)
	out := map[string]int{}
	for _, s := range stats {
		out[s.Tier] = s.Entries
	}
	return out
}

func TestCacheSweeper_DayRollover(t *testing.T) {
	// GIVEN: A statement and a lookup cached shortly before midnight
	ctx := context.Background()
	sw, m, clock := newSweepFixture(t)
	m.SetJSON(ctx, cache.TierAPI, "student:1:statement", map[string]int{"balance": 1})
	m.SetJSON(ctx, cache.TierStatic, "student:1:detail", map[string]int{"id": 1})

	// WHEN: The first sweep runs on the same day
	_, rolled := sw.Sweep(ctx)

	// THEN: Nothing is dropped
	assert.False(t, rolled)
	assert.Equal(t, map[string]int{cache.TierAPI: 1, cache.TierStatic: 1}, tierEntries(t, m))

	// WHEN: The clock crosses midnight
	clock.Add(3 * time.Minute)
	_, rolled = sw.Sweep(ctx)

	// THEN: Statements are gone, lookups stay
	assert.True(t, rolled)
	assert.Equal(t, map[string]int{cache.TierAPI: 0, cache.TierStatic: 1}, tierEntries(t, m))

	// AND: A later sweep on the same day does not clear again
	m.SetJSON(ctx, cache.TierAPI, "student:1:statement", map[string]int{"balance": 1})
	_, rolled = sw.Sweep(ctx)
	assert.False(t, rolled)
	assert.Equal(t, 1, tierEntries(t, m)[cache.TierAPI])
}

func TestCacheSweeper_PurgesExpired(t *testing.T) {
	ctx := context.Background()
	sw, m, clock := newSweepFixture(t)
	m.SetJSON(ctx, cache.TierAPI, "a", 1)
	m.SetJSON(ctx, cache.TierAPI, "b", 2)
	m.SetJSON(ctx, cache.TierStatic, "c", 3)
	sw.Sweep(ctx)

	// api entries live 5 minutes, static 30
	clock.Add(6 * time.Minute)
	purged, _ := sw.Sweep(ctx)

	assert.Equal(t, 2, purged)
	assert.Equal(t, 1, tierEntries(t, m)[cache.TierStatic])
}

func TestCacheSweeper_StartStop(t *testing.T) {
	ctx := context.Background()
	sw, m, clock := newSweepFixture(t)
	sw.Interval = 5 * time.Millisecond
	m.SetJSON(ctx, cache.TierAPI, "a", 1)
	clock.Add(6 * time.Minute)

	sw.Start()
	sw.Start()
	defer sw.Stop()

	require.Eventually(t, func() bool {
		return tierEntries(t, m)[cache.TierAPI] == 0
	}, time.Second, 5*time.Millisecond)

	sw.Stop()
	sw.Stop()
}

func TestCacheSweeper_Disabled(t *testing.T) {
	sw, _, _ := newSweepFixture(t)
	sw.Enabled = false

	sw.Start()
	sw.Stop()

	assert.Nil(t, sw.ticker)
}
