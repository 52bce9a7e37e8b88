/*
scheduler.go - Background cache sweeper

PURPOSE:
  Keeps the response cache honest between writes. Two things go stale
  without any write happening:
  - memory entries past their TTL still occupy capacity until touched
  - statements classify pending invoices as overdue relative to "today",
    so every cached statement is wrong once the calendar day changes

DESIGN:
  - Runs a background goroutine with configurable interval
  - Each tick purges expired memory entries (Redis expires on its own)
  - On the first tick of a new day, clears the api tier

CONFIGURATION:
  - Interval: How often to sweep (default: 1 minute)
  - Enabled:  Whether the sweeper runs at all (default: true)

USAGE:
  sweeper := NewCacheSweeper(cacheManager, logger)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - cache/manager.go: PurgeExpired, Clear
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/mattilda/school-ledger/cache"
	"github.com/mattilda/school-ledger/ledger"
	"go.uber.org/zap"
)

// CacheSweeper periodically purges expired entries and drops statements
// computed on a previous day.
type CacheSweeper struct {
	Cache    *cache.Manager
	Interval time.Duration
	Enabled  bool
	Logger   *zap.Logger
	Clock    func() time.Time

	lastDay ledger.Date
	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// NewCacheSweeper creates a sweeper with a one minute interval.
func NewCacheSweeper(c *cache.Manager, logger *zap.Logger) *CacheSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheSweeper{
		Cache:    c,
		Interval: time.Minute,
		Enabled:  true,
		Logger:   logger,
		Clock:    time.Now,
	}
}

// Start begins the sweeper.
func (cs *CacheSweeper) Start() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled {
		cs.Logger.Info("cache sweeper disabled, not starting")
		return
	}
	if cs.ticker != nil {
		return
	}

	cs.lastDay = ledger.DateOf(cs.Clock())
	cs.ticker = time.NewTicker(cs.Interval)
	cs.stop = make(chan struct{})
	cs.wg.Add(1)

	go cs.run(cs.ticker, cs.stop)

	cs.Logger.Info("cache sweeper started", zap.Duration("interval", cs.Interval))
}

// Stop stops the sweeper and waits for an in-flight sweep.
func (cs *CacheSweeper) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ticker != nil {
		cs.ticker.Stop()
		close(cs.stop)
		cs.wg.Wait()
		cs.ticker = nil
		cs.Logger.Info("cache sweeper stopped")
	}
}

func (cs *CacheSweeper) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer cs.wg.Done()

	for {
		select {
		case <-ticker.C:
			cs.Sweep(context.Background())
		case <-stop:
			return
		}
	}
}

// Sweep runs one pass. It returns the number of purged entries and whether
// the api tier was cleared for a day change.
func (cs *CacheSweeper) Sweep(ctx context.Context) (purged int, rolled bool) {
	purged = cs.Cache.PurgeExpired()
	if purged > 0 {
		cs.Logger.Debug("purged expired cache entries", zap.Int("count", purged))
	}

	today := ledger.DateOf(cs.Clock())
	if cs.lastDay.IsZero() {
		cs.lastDay = today
		return purged, false
	}
	if !today.After(cs.lastDay) {
		return purged, false
	}

	if err := cs.Cache.Clear(ctx, cache.TierAPI); err != nil {
		cs.Logger.Warn("clearing statements on day change failed", zap.Error(err))
		return purged, false
	}
	cs.Logger.Info("day changed, cleared cached statements",
		zap.Stringer("previous", cs.lastDay),
		zap.Stringer("today", today))
	cs.lastDay = today
	return purged, true
}
