package segmatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/segmatch/internal/db"
	dbRedis "github.com/kailas-cloud/segmatch/internal/db/redis"
	"github.com/kailas-cloud/segmatch/internal/domain"
	"github.com/kailas-cloud/segmatch/internal/domain/result"
	budgetrepo "github.com/kailas-cloud/segmatch/internal/repository/budget"
	"github.com/kailas-cloud/segmatch/internal/repository/cachestore"
	"github.com/kailas-cloud/segmatch/internal/repository/flatfile"
	segmentrepo "github.com/kailas-cloud/segmatch/internal/repository/segment"
	cacheuc "github.com/kailas-cloud/segmatch/internal/usecase/cache"
	"github.com/kailas-cloud/segmatch/internal/usecase/enrich"
	"github.com/kailas-cloud/segmatch/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/segmatch/internal/usecase/health"
	intentuc "github.com/kailas-cloud/segmatch/internal/usecase/intent"
	"github.com/kailas-cloud/segmatch/internal/usecase/scoring"
	searchuc "github.com/kailas-cloud/segmatch/internal/usecase/search"
	usageuc "github.com/kailas-cloud/segmatch/internal/usecase/usage"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	sdkProvider             = "sdk"
)

// ErrNoStore is returned by operations that need the key-value store when the
// client was built without WithRedis.
var ErrNoStore = errors.New("segmatch: key-value store not configured (use WithRedis)")

// Internal interfaces for substitution in tests.
type searchUseCase interface {
	Search(ctx context.Context, req searchuc.Request) (result.Set, error)
	GetSegmentDetails(ctx context.Context, id string) (result.Card, error)
	PurgeCache(ctx context.Context) (int, error)
}

type catalogWriter interface {
	Upsert(ctx context.Context, segments []Segment) error
	Replace(ctx context.Context, segments []Segment) (int, error)
}

// Client is the segmatch SDK entry point.
type Client struct {
	store     db.Store
	searchSvc searchUseCase
	catalog   catalogWriter
	healthSvc healthUseCase
	usageSvc  usageUseCase
	obs       *observer
}

// New builds a Client. A catalog source is required: WithCatalogFile, WithSegments
// or WithRedis. The provided context bounds the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 && cfg.catalogFile == "" && cfg.segments == nil {
		return nil, errors.New("segmatch: catalog source required (use WithCatalogFile, WithSegments or WithRedis)")
	}
	if cfg.cache == cacheRedis && len(cfg.addrs) == 0 {
		return nil, errors.New("segmatch: WithRedisCache requires WithRedis")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var store db.Store
	if len(cfg.addrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.addrs, Password: cfg.password})
		if err != nil {
			return nil, fmt.Errorf("segmatch: create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("segmatch: database not ready: %w", err)
		}
		store = s
	}

	c, err := wireClient(ctx, store, cfg, obs)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	return c, nil
}

func loadSnapshot(cfg *clientConfig) (*flatfile.Store, error) {
	switch {
	case cfg.catalogFile != "":
		snap, err := flatfile.Load(cfg.catalogFile)
		if err != nil {
			return nil, fmt.Errorf("segmatch: %w", err)
		}
		return snap, nil
	case cfg.segments != nil:
		snap, err := flatfile.New(flatfile.Document{Segments: cfg.segments, Behavior: cfg.behavior})
		if err != nil {
			return nil, fmt.Errorf("segmatch: %w", err)
		}
		return snap, nil
	}
	return nil, nil
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	snap, err := loadSnapshot(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{store: store, obs: obs}

	var catalog searchuc.Catalog
	var dataset enrich.Dataset
	if snap != nil {
		catalog, dataset = snap, snap
	}
	if store != nil {
		repo := segmentrepo.New(store)
		c.catalog = repo
		if catalog == nil {
			catalog = repo
		}
	}

	var budget *generation.BudgetTracker
	var budgetChecker generation.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if cfg.dailyTokens > 0 || cfg.monthlyTokens > 0 {
		action := generation.BudgetActionWarn
		if cfg.rejectOverBudget {
			action = generation.BudgetActionReject
		}
		budget = generation.NewBudgetTracker(sdkProvider, cfg.dailyTokens, cfg.monthlyTokens, action, zap.NewNop())
		if store != nil {
			budget.WithStore(ctx, budgetrepo.New(store, 0, 0))
		}
		budgetChecker, budgetReader = budget, budget
	}

	// Generator: nil when not set, every query then takes the keyword fallback.
	var gen domain.Generator
	if cfg.generator != nil {
		gen = generation.NewInstrumented(
			&generatorAdapter{inner: cfg.generator}, sdkProvider, "",
			cfg.generatorTimeout, budgetChecker, zap.NewNop(),
		)
	}

	var respCache searchuc.ResponseCache
	switch cfg.cache {
	case cacheMemory:
		respCache = cacheuc.New(cacheuc.NewMemoryStore(), cfg.cacheTTL)
	case cacheRedis:
		respCache = cacheuc.New(cachestore.New(store, cachestore.DefaultPrefix), cfg.cacheTTL)
	}

	c.searchSvc = searchuc.New(
		catalog,
		intentuc.New(gen, 0),
		scoring.New(gen, cfg.scoring),
		enrich.New(dataset, cfg.enrich),
		respCache,
		searchuc.Config{Windows: cfg.windows},
	)
	c.usageSvc = usageuc.New(budgetReader, sdkProvider)

	var pinger healthuc.Pinger
	if store != nil {
		pinger = store
	}
	var genHealth healthuc.GeneratorChecker
	if hc, ok := cfg.generator.(domain.HealthChecker); ok {
		genHealth = hc
	}
	c.healthSvc = healthuc.New(pinger, genHealth)
	return c, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if c.store == nil {
		return ErrNoStore
	}
	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search ranks the catalog against a campaign brief. Only invalid input and an
// unreadable catalog are errors; generator trouble lowers the set's confidence.
func (c *Client) Search(ctx context.Context, query string, opts ...SearchOption) (set ResultSet, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err, "results", set.Size()) }()

	var o searchOptions
	for _, opt := range opts {
		opt(&o)
	}
	set, err = c.searchSvc.Search(ctx, searchuc.Request{Query: query, Filters: o.filters, History: o.history})
	if err != nil {
		return ResultSet{}, fmt.Errorf("search: %w", err)
	}
	c.obs.search(&set)
	return set, nil
}

// Segment returns one enriched segment. Unknown ids yield ErrSegmentNotFound.
func (c *Client) Segment(ctx context.Context, id string) (card Card, err error) {
	start := time.Now()
	defer func() { c.obs.observe("segment", start, err, "id", id) }()

	card, err = c.searchSvc.GetSegmentDetails(ctx, id)
	if err != nil {
		return Card{}, fmt.Errorf("segment: %w", err)
	}
	return card, nil
}

// PurgeCache deletes expired cached result sets and returns how many were removed.
func (c *Client) PurgeCache(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("purge_cache", start, err, "purged", n) }()

	n, err = c.searchSvc.PurgeCache(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	return n, nil
}

// ImportCatalog writes segments to the key-value catalog. With replace, stored
// segments missing from the input are deleted and their count returned.
func (c *Client) ImportCatalog(ctx context.Context, segments []Segment, replace bool) (removed int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("import_catalog", start, err, "segments", len(segments)) }()

	if c.catalog == nil {
		return 0, ErrNoStore
	}
	if replace {
		removed, err = c.catalog.Replace(ctx, segments)
	} else {
		err = c.catalog.Upsert(ctx, segments)
	}
	if err != nil {
		return 0, fmt.Errorf("import catalog: %w", err)
	}
	return removed, nil
}
