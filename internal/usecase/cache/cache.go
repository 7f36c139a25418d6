// Package cache is the filter-aware response cache in front of the pipeline.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/segmatch/internal/domain"
	domcache "github.com/kailas-cloud/segmatch/internal/domain/cache"
	"github.com/kailas-cloud/segmatch/internal/domain/filter"
	"github.com/kailas-cloud/segmatch/internal/domain/result"
	"github.com/kailas-cloud/segmatch/internal/logger"
)

// DefaultTTL is how long a cached result set stays valid.
const DefaultTTL = time.Hour

// Cache wraps a Store with TTL and exact filter matching. A nil store disables
// caching: every Get misses and Put is a no-op.
type Cache struct {
	store      Store
	ttl        time.Duration
	now        func() time.Time
	cacheTotal *prometheus.CounterVec
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the clock used for expiry.
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

// WithMetrics sets a counter vec with label "result" ("hit"/"miss"/"error").
func WithMetrics(v *prometheus.CounterVec) Option { return func(c *Cache) { c.cacheTotal = v } }

// New creates a Cache. A non-positive ttl means DefaultTTL.
func New(store Store, ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{store: store, ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Enabled reports whether a store is attached.
func (c *Cache) Enabled() bool { return c != nil && c.store != nil }

// Get returns the newest unexpired entry for the query whose filter set equals f.
// Misses and store failures both return false.
func (c *Cache) Get(ctx context.Context, query string, f filter.Set) (result.Set, bool) {
	if !c.Enabled() {
		return result.Set{}, false
	}
	want, err := f.Canonical()
	if err != nil {
		logger.FromContext(ctx).Warn("Filter set has no cache key, treating as miss", zap.Error(err))
		c.inc("miss")
		return result.Set{}, false
	}
	key := domcache.NormalizeQuery(query)
	entries, err := c.store.Query(ctx, key)
	if err != nil {
		logger.FromContext(ctx).Warn("Response cache read failed, treating as miss", zap.Error(err))
		c.inc("error")
		return result.Set{}, false
	}

	now := c.now()
	var best *domcache.Entry
	for i := range entries {
		e := &entries[i]
		if e.Query != key || e.Filters != want || e.Expired(now) {
			continue
		}
		if best == nil || e.CreatedAt.After(best.CreatedAt) {
			best = e
		}
	}
	if best == nil {
		c.inc("miss")
		return result.Set{}, false
	}
	c.inc("hit")
	return best.Result, true
}

// Put inserts a new entry expiring TTL from now. Failures are logged, not returned.
func (c *Cache) Put(ctx context.Context, query string, f filter.Set, set result.Set) {
	if !c.Enabled() {
		return
	}
	filters, err := f.Canonical()
	if err != nil {
		logger.FromContext(ctx).Warn("Filter set has no cache key, skipping write", zap.Error(err))
		return
	}
	now := c.now()
	e := domcache.Entry{
		ID:        uuid.NewString(),
		Query:     domcache.NormalizeQuery(query),
		Filters:   filters,
		Result:    set,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	if err := c.store.Insert(ctx, e); err != nil {
		logger.FromContext(ctx).Warn("Response cache write failed", zap.String("entry_id", e.ID), zap.Error(err))
	}
}

// PurgeExpired removes every entry past its expiry and returns how many went.
func (c *Cache) PurgeExpired(ctx context.Context) (int, error) {
	if !c.Enabled() {
		return 0, nil
	}
	n, err := c.store.DeleteExpired(ctx, c.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w: %w", domain.ErrCacheUnavailable, err)
	}
	return n, nil
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
