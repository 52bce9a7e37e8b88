package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedMemory(tier Tier) (*Memory, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
	return NewMemory(tier).WithClock(clock.now), clock
}

func TestKey_SortsAndDropsEmpty(t *testing.T) {
	a := Key("statement:school:3", map[string]string{"to": "2024-06-30", "from": "2024-01-01", "x": ""})
	b := Key("statement:school:3", map[string]string{"from": "2024-01-01", "to": "2024-06-30"})

	assert.Equal(t, a, b)
	assert.Equal(t, "statement:school:3?from=2024-01-01&to=2024-06-30", a)
	assert.Equal(t, "schools", Key("schools", nil))
}

func TestMemory_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	m, clock := newClockedMemory(Tier{Name: "api", TTL: time.Minute, Capacity: 10})
	require.NoError(t, m.Set(ctx, "k", []byte("v")))

	v, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))

	clock.advance(time.Minute)
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "entry expires exactly at TTL")

	st, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.InDelta(t, 0.5, st.HitRate, 0.0001)
}

func TestMemory_CapacityPrefersExpired(t *testing.T) {
	ctx := context.Background()
	m, clock := newClockedMemory(Tier{Name: "api", TTL: 10 * time.Minute, Capacity: 2})

	require.NoError(t, m.Set(ctx, "old", []byte("1")))
	clock.advance(9 * time.Minute)
	require.NoError(t, m.Set(ctx, "mid", []byte("2")))
	clock.advance(2 * time.Minute) // "old" is now expired

	require.NoError(t, m.Set(ctx, "new", []byte("3")))

	_, ok, _ := m.Get(ctx, "mid")
	assert.True(t, ok)
	_, ok, _ = m.Get(ctx, "new")
	assert.True(t, ok)
	st, _ := m.Stats(ctx)
	assert.Equal(t, 2, st.Entries)
}

func TestMemory_CapacityEvictsEarliestExpiry(t *testing.T) {
	ctx := context.Background()
	m, clock := newClockedMemory(Tier{Name: "api", TTL: 10 * time.Minute, Capacity: 2})

	require.NoError(t, m.Set(ctx, "a", []byte("1")))
	clock.advance(time.Minute)
	require.NoError(t, m.Set(ctx, "b", []byte("2")))
	clock.advance(time.Minute)
	require.NoError(t, m.Set(ctx, "c", []byte("3")))

	_, ok, _ := m.Get(ctx, "a")
	assert.False(t, ok, "a expires first and is evicted")
	_, ok, _ = m.Get(ctx, "b")
	assert.True(t, ok)
	_, ok, _ = m.Get(ctx, "c")
	assert.True(t, ok)
}

func TestMemory_OverwriteDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	m, _ := newClockedMemory(Tier{Name: "api", TTL: time.Minute, Capacity: 2})
	require.NoError(t, m.Set(ctx, "a", []byte("1")))
	require.NoError(t, m.Set(ctx, "b", []byte("2")))

	require.NoError(t, m.Set(ctx, "a", []byte("3")))

	v, ok, _ := m.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, "3", string(v))
	_, ok, _ = m.Get(ctx, "b")
	assert.True(t, ok)
}

func TestMemory_InvalidatePattern(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Tier{Name: "api", TTL: time.Minute, Capacity: 100})
	for _, k := range []string{"statement:school:1", "statement:school:12", "statement:student:5", "schools"} {
		require.NoError(t, m.Set(ctx, k, []byte("x")))
	}

	n, err := m.InvalidatePattern(ctx, "school:1")

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, ok, _ := m.Get(ctx, "statement:student:5")
	assert.True(t, ok)
}

func TestMemory_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	m, clock := newClockedMemory(Tier{Name: "static", TTL: time.Minute, Capacity: 10})
	require.NoError(t, m.Set(ctx, "a", []byte("1")))
	clock.advance(30 * time.Second)
	require.NoError(t, m.Set(ctx, "b", []byte("2")))
	clock.advance(45 * time.Second)

	assert.Equal(t, 1, m.PurgeExpired())
	st, _ := m.Stats(ctx)
	assert.Equal(t, 1, st.Entries)
}

func TestManager_JSONAndMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	mgr := NewMemoryManager(DefaultTiers(), metrics, nil)

	type payload struct {
		Balance string `json:"balance"`
	}
	var got payload
	assert.False(t, mgr.GetJSON(ctx, TierAPI, "k", &got))

	mgr.SetJSON(ctx, TierAPI, "k", payload{Balance: "350.00"})
	require.True(t, mgr.GetJSON(ctx, TierAPI, "k", &got))
	assert.Equal(t, "350.00", got.Balance)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.hits.WithLabelValues(TierAPI)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.misses.WithLabelValues(TierAPI)))

	assert.False(t, mgr.GetJSON(ctx, "nope", "k", &got))
}

func TestManager_StatsClearHealth(t *testing.T) {
	ctx := context.Background()
	mgr := NewMemoryManager(DefaultTiers(), nil, nil)
	mgr.SetJSON(ctx, TierAPI, "a", 1)
	mgr.SetJSON(ctx, TierStatic, "school:1", 2)

	stats, err := mgr.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, TierAPI, stats[0].Tier)
	assert.Equal(t, 1000, stats[0].Capacity)
	assert.Equal(t, 300, stats[0].TTLSeconds)
	assert.Equal(t, TierStatic, stats[1].Tier)
	assert.Equal(t, 1800, stats[1].TTLSeconds)

	require.NoError(t, mgr.Health(ctx))

	require.NoError(t, mgr.Clear(ctx, TierAPI))
	stats, _ = mgr.Stats(ctx)
	assert.Equal(t, 0, stats[0].Entries)
	assert.Equal(t, 1, stats[1].Entries)

	assert.ErrorIs(t, mgr.Clear(ctx, "bogus"), ErrUnknownTier)
	require.NoError(t, mgr.Clear(ctx, ""))
	stats, _ = mgr.Stats(ctx)
	assert.Equal(t, 0, stats[1].Entries)
}

func TestManager_HealthLeavesEntriesAndCounters(t *testing.T) {
	// GIVEN: A full single-slot tier holding a live entry
	ctx := context.Background()
	store := NewMemory(Tier{Name: TierAPI, TTL: time.Minute, Capacity: 1})
	mgr := NewManager(map[string]Store{TierAPI: store}, nil, nil)
	mgr.SetJSON(ctx, TierAPI, "student:1:statement", 1)

	// WHEN: Health is checked
	require.NoError(t, mgr.Health(ctx))

	// THEN: The entry survives and no lookup was counted
	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)
	_, ok, err := store.Get(ctx, "student:1:statement")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `school\*1\?`, escapeGlob("school*1?"))
	assert.Equal(t, "plain", escapeGlob("plain"))
}

// TestRedis_RoundTrip runs against a real server when MATTILDA_TEST_REDIS_ADDR is set.
func TestRedis_RoundTrip(t *testing.T) {
	addr := os.Getenv("MATTILDA_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MATTILDA_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := DialRedis(ctx, addr, "", 0)
	require.NoError(t, err)
	defer client.Close()

	prefix := fmt.Sprintf("test-%d", time.Now().UnixNano())
	r := NewRedis(client, prefix, Tier{Name: TierAPI, TTL: time.Minute, Capacity: 10}, nil)
	defer r.Clear(ctx)

	require.NoError(t, r.Set(ctx, "statement:school:1", []byte("a")))
	require.NoError(t, r.Set(ctx, "statement:student:2", []byte("b")))

	v, ok, err := r.Get(ctx, "statement:school:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", string(v))

	n, err := r.InvalidatePattern(ctx, "school:1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	st, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Entries)
	assert.Equal(t, "redis", st.Backend)
}
