package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Metrics counts hits and misses per tier.
type Metrics struct {
	hits   *prometheus.CounterVec
	misses *prometheus.CounterVec
}

// NewMetrics registers the cache counters on reg. A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mattilda",
			Name:      "cache_hits_total",
			Help:      "Cache lookups served from the cache.",
		}, []string{"tier"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mattilda",
			Name:      "cache_misses_total",
			Help:      "Cache lookups that fell through to the source.",
		}, []string{"tier"}),
	}
	if reg != nil {
		reg.MustRegister(m.hits, m.misses)
	}
	return m
}

// Manager owns every tier's Store.
type Manager struct {
	tiers   map[string]Store
	metrics *Metrics
	logger  *zap.Logger
}

func NewManager(tiers map[string]Store, metrics *Metrics, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Manager{tiers: tiers, metrics: metrics, logger: logger}
}

// NewMemoryManager builds a Manager with one Memory store per tier.
func NewMemoryManager(tiers []Tier, metrics *Metrics, logger *zap.Logger) *Manager {
	stores := make(map[string]Store, len(tiers))
	for _, t := range tiers {
		stores[t.Name] = NewMemory(t)
	}
	return NewManager(stores, metrics, logger)
}

func (m *Manager) tier(name string) (Store, error) {
	s, ok := m.tiers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTier, name)
	}
	return s, nil
}

// GetJSON decodes a cached value into dst. Backend errors count as misses
// and are logged, never returned: a broken cache must not break reads.
func (m *Manager) GetJSON(ctx context.Context, tier, key string, dst any) bool {
	s, err := m.tier(tier)
	if err != nil {
		return false
	}
	data, ok, err := s.Get(ctx, key)
	if err != nil {
		m.logger.Warn("cache read failed", zap.String("tier", tier), zap.String("key", key), zap.Error(err))
	}
	if err != nil || !ok {
		m.metrics.misses.WithLabelValues(tier).Inc()
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		m.logger.Warn("dropping undecodable cache entry", zap.String("tier", tier), zap.String("key", key), zap.Error(err))
		_ = s.Delete(ctx, key)
		m.metrics.misses.WithLabelValues(tier).Inc()
		return false
	}
	m.metrics.hits.WithLabelValues(tier).Inc()
	return true
}

// SetJSON stores v. Failures are logged and swallowed like in GetJSON.
func (m *Manager) SetJSON(ctx context.Context, tier, key string, v any) {
	s, err := m.tier(tier)
	if err != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		m.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.Set(ctx, key, data); err != nil {
		m.logger.Warn("cache write failed", zap.String("tier", tier), zap.String("key", key), zap.Error(err))
	}
}

// InvalidatePattern applies to every tier and returns the total removed.
func (m *Manager) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	total := 0
	for name, s := range m.tiers {
		n, err := s.InvalidatePattern(ctx, pattern)
		if err != nil {
			return total, fmt.Errorf("invalidate %s: %w", name, err)
		}
		total += n
	}
	if total > 0 {
		m.logger.Debug("cache invalidated", zap.String("pattern", pattern), zap.Int("removed", total))
	}
	return total, nil
}

// Clear empties one tier, or all of them when tier is "".
func (m *Manager) Clear(ctx context.Context, tier string) error {
	if tier != "" {
		s, err := m.tier(tier)
		if err != nil {
			return err
		}
		return s.Clear(ctx)
	}
	for name, s := range m.tiers {
		if err := s.Clear(ctx); err != nil {
			return fmt.Errorf("clear %s: %w", name, err)
		}
	}
	return nil
}

// Stats returns every tier, ordered by name.
func (m *Manager) Stats(ctx context.Context) ([]Stats, error) {
	out := make([]Stats, 0, len(m.tiers))
	for _, s := range m.tiers {
		st, err := s.Stats(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out, nil
}

// PurgeExpired sweeps every tier whose backend needs it.
func (m *Manager) PurgeExpired() int {
	n := 0
	for _, s := range m.tiers {
		if p, ok := s.(Purger); ok {
			n += p.PurgeExpired()
		}
	}
	return n
}

// Health pings every tier's backend.
func (m *Manager) Health(ctx context.Context) error {
	for name, s := range m.tiers {
		if err := s.Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
