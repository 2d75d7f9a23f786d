// Package cache memoizes the computed daily index series. The system
// computes exactly one series, so the cache holds a single entry guarded
// by a mutex: at most one pipeline run is in flight at a time, and
// callers arriving during a refresh keep being served the old value.
package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ua-snap/swti/internal/metrics"
	"github.com/ua-snap/swti/internal/models"
)

// DefaultTTL is how long a computed series is served before a refresh
// is attempted.
const DefaultTTL = 43200 * time.Second

// ComputeFunc runs the full fetch -> normalize -> aggregate pipeline.
type ComputeFunc func(ctx context.Context) ([]models.DailyIndexRecord, error)

// StoreFunc persists a freshly computed series.
type StoreFunc func(records []models.DailyIndexRecord, computedAt time.Time)

// Result is what callers get: the series, when it was computed, and
// whether it is older than the TTL (served because a refresh is in
// flight or the last refresh failed).
type Result struct {
	Records    []models.DailyIndexRecord
	ComputedAt time.Time
	Stale      bool
}

type Cache struct {
	compute ComputeFunc
	ttl     time.Duration
	clock   clockwork.Clock
	onStore StoreFunc

	mu         sync.Mutex
	cond       *sync.Cond
	records    []models.DailyIndexRecord
	computedAt time.Time
	has        bool
	refreshing bool
}

func New(compute ComputeFunc, ttl time.Duration, clock clockwork.Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		compute: compute,
		ttl:     ttl,
		clock:   clock,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// SetStoreFunc registers a persistence hook invoked after every
// successful refresh, outside the cache lock.
func (c *Cache) SetStoreFunc(fn StoreFunc) {
	c.onStore = fn
}

// Seed installs a previously persisted series, typically at startup. The
// seed may already be past the TTL; it then serves as the stale fallback
// until the first refresh succeeds.
func (c *Cache) Seed(records []models.DailyIndexRecord, computedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = records
	c.computedAt = computedAt
	c.has = true
}

// Invalidate forces the next Get to refresh. The current series is kept
// as the stale fallback.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.computedAt = time.Time{}
}

// Get returns the current daily index series, refreshing it first when
// the TTL has elapsed. A failed refresh keeps serving the last good
// series; the error only propagates when no prior series exists.
func (c *Cache) Get(ctx context.Context) (Result, error) {
	c.mu.Lock()
	for {
		if c.has && c.clock.Now().Sub(c.computedAt) < c.ttl {
			res := Result{Records: c.records, ComputedAt: c.computedAt}
			c.mu.Unlock()
			metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
			return res, nil
		}
		if !c.refreshing {
			break
		}
		if c.has {
			// Refresh in flight: keep serving the old value.
			res := Result{Records: c.records, ComputedAt: c.computedAt, Stale: true}
			c.mu.Unlock()
			metrics.CacheRequestsTotal.WithLabelValues("stale").Inc()
			return res, nil
		}
		c.cond.Wait()
	}
	c.refreshing = true
	c.mu.Unlock()

	metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
	records, err := c.compute(ctx)

	c.mu.Lock()
	c.refreshing = false
	c.cond.Broadcast()
	if err != nil {
		if c.has {
			log.Printf("cache: refresh failed, serving series from %s: %v",
				c.computedAt.Format(time.RFC3339), err)
			metrics.CacheRequestsTotal.WithLabelValues("refresh_error").Inc()
			res := Result{Records: c.records, ComputedAt: c.computedAt, Stale: true}
			c.mu.Unlock()
			return res, nil
		}
		c.mu.Unlock()
		metrics.CacheRequestsTotal.WithLabelValues("error").Inc()
		return Result{}, err
	}

	computedAt := c.clock.Now()
	c.records = records
	c.computedAt = computedAt
	c.has = true
	c.mu.Unlock()

	if c.onStore != nil {
		c.onStore(records, computedAt)
	}
	return Result{Records: records, ComputedAt: computedAt}, nil
}
