// Package app assembles the relevance pipeline from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kailas-cloud/segmatch/internal/config"
	"github.com/kailas-cloud/segmatch/internal/db"
	dbPostgres "github.com/kailas-cloud/segmatch/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/segmatch/internal/db/redis"
	"github.com/kailas-cloud/segmatch/internal/domain"
	"github.com/kailas-cloud/segmatch/internal/domain/result"
	"github.com/kailas-cloud/segmatch/internal/metrics"
	behaviorrepo "github.com/kailas-cloud/segmatch/internal/repository/behavior"
	budgetrepo "github.com/kailas-cloud/segmatch/internal/repository/budget"
	"github.com/kailas-cloud/segmatch/internal/repository/cachestore"
	"github.com/kailas-cloud/segmatch/internal/repository/flatfile"
	segmentrepo "github.com/kailas-cloud/segmatch/internal/repository/segment"
	openaiGen "github.com/kailas-cloud/segmatch/internal/transport/openai"
	cacheuc "github.com/kailas-cloud/segmatch/internal/usecase/cache"
	"github.com/kailas-cloud/segmatch/internal/usecase/enrich"
	"github.com/kailas-cloud/segmatch/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/segmatch/internal/usecase/health"
	intentuc "github.com/kailas-cloud/segmatch/internal/usecase/intent"
	"github.com/kailas-cloud/segmatch/internal/usecase/scoring"
	searchuc "github.com/kailas-cloud/segmatch/internal/usecase/search"
	usageuc "github.com/kailas-cloud/segmatch/internal/usecase/usage"
)

// App holds the wired services and the connections they own.
type App struct {
	Store    db.Store // nil when nothing is configured to use the key-value store
	Postgres *pgxpool.Pool
	Segments *segmentrepo.Repo // nil unless the catalog lives in the key-value store

	Search *searchuc.Service
	Usage  *usageuc.Service
	Health *healthuc.Service
}

// Close releases every connection opened by Build.
func (a *App) Close() {
	if a.Postgres != nil {
		a.Postgres.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
}

// Build connects to the configured backends and wires the pipeline.
// Metrics must already be registered.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	if cfg.NeedsRedis() {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create database store: %w", err)
		}
		a.Store = store
		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			return nil, fmt.Errorf("database not ready: %w", err)
		}
		logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))
	}

	catalog, snapshot, err := a.buildCatalog(cfg)
	if err != nil {
		return nil, err
	}

	dataset, err := a.buildDataset(ctx, cfg, snapshot)
	if err != nil {
		return nil, err
	}

	budget := a.buildBudget(ctx, cfg, logger)
	// Keep the interface nil when no budget is configured: a typed nil pointer
	// would pass the checker's nil test.
	var budgetChecker generation.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetChecker, budgetReader = budget, budget
	}

	var gen domain.Generator
	var genHealth healthuc.GeneratorChecker
	if cfg.Generator.APIKey != "" {
		base := openaiGen.NewGenerator(&openaiGen.Config{
			APIKey:       cfg.Generator.APIKey,
			BaseURL:      cfg.Generator.BaseURL,
			Model:        cfg.Generator.Model,
			Temperature:  cfg.Generator.Temperature,
			MaxTokens:    cfg.Generator.MaxTokens,
			SystemPrompt: cfg.Generator.SystemPrompt,
			Provider:     cfg.Generator.Provider,
			Logger:       logger,
		})
		gen = generation.NewInstrumented(
			base, cfg.Generator.Provider, cfg.Generator.Model,
			time.Duration(cfg.Generator.TimeoutSec)*time.Second, budgetChecker, logger,
		)
		genHealth = base
		logger.Info("Generator configured",
			zap.String("provider", cfg.Generator.Provider),
			zap.String("model", cfg.Generator.Model),
		)
	} else {
		logger.Warn("Generator API key not set, every query takes the keyword fallback")
	}

	p := cfg.Pipeline
	extractor := intentuc.New(gen, p.MaxHistory)
	scorer := scoring.New(gen, scoring.Config{
		BatchSize:   p.BatchSize,
		Concurrency: p.ScoreConcurrency,
		Weights: scoring.Weights{
			Keyword:  p.FallbackWeights.Keyword,
			Commerce: p.FallbackWeights.Commerce,
			Active:   p.FallbackWeights.Active,
			Cap:      p.FallbackWeights.Cap,
		},
	})
	enricher := enrich.New(dataset, enrich.Config{
		Labels: enrich.Labels{
			Catalog:    p.Labels.Catalog,
			Behavioral: p.Labels.Behavioral,
			Geographic: p.Labels.Geographic,
		},
		LookupLimit: cfg.Behavior.LookupLimit,
		TopGeo:      p.TopGeoGroups,
		Concurrency: p.EnrichConcurrency,
	})

	var respCache searchuc.ResponseCache
	if store := a.cacheStore(cfg); store != nil {
		respCache = cacheuc.New(store, time.Duration(cfg.Cache.TTLSec)*time.Second,
			cacheuc.WithMetrics(metrics.CacheLookupsTotal))
	}

	a.Search = searchuc.New(catalog, extractor, scorer, enricher, respCache, searchuc.Config{
		Windows: result.Windows{
			BestFit:   p.Windows.BestFit,
			HighValue: p.Windows.HighValue,
			Related:   p.Windows.Related,
		},
		MaxQueryLength: p.MaxQueryLength,
		Deadline:       time.Duration(p.DeadlineSec) * time.Second,
	})
	a.Usage = usageuc.New(budgetReader, cfg.Generator.Provider)

	var dbPinger healthuc.Pinger
	if a.Store != nil {
		dbPinger = a.Store
	}
	a.Health = healthuc.New(dbPinger, genHealth)
	if a.Postgres != nil {
		a.Health.WithPostgres(a.Postgres)
	}

	logger.Info("Pipeline ready",
		zap.String("catalog", cfg.Catalog.Source),
		zap.String("behavior", cfg.Behavior.Source),
		zap.String("cache", cfg.Cache.Backend),
		zap.Bool("budget", budget != nil),
	)
	ok = true
	return a, nil
}

func (a *App) buildCatalog(cfg *config.Config) (searchuc.Catalog, *flatfile.Store, error) {
	switch cfg.Catalog.Source {
	case config.SourceFile:
		snap, err := flatfile.Load(cfg.Catalog.File)
		if err != nil {
			return nil, nil, fmt.Errorf("load catalog: %w", err)
		}
		return snap, snap, nil
	default:
		a.Segments = segmentrepo.New(a.Store)
		return a.Segments, nil, nil
	}
}

func (a *App) buildDataset(ctx context.Context, cfg *config.Config, snapshot *flatfile.Store) (enrich.Dataset, error) {
	switch cfg.Behavior.Source {
	case config.SourcePostgres:
		pool, err := dbPostgres.NewPool(ctx, dbPostgres.Config{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.MaxConns,
			MinConns: cfg.Postgres.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.Postgres = pool
		return behaviorrepo.New(pool), nil
	case config.SourceFile:
		if snapshot != nil && cfg.BehaviorFile() == cfg.Catalog.File {
			return snapshot, nil
		}
		snap, err := flatfile.Load(cfg.BehaviorFile())
		if err != nil {
			return nil, fmt.Errorf("load behavior: %w", err)
		}
		return snap, nil
	default:
		return nil, nil
	}
}

func (a *App) buildBudget(ctx context.Context, cfg *config.Config, logger *zap.Logger) *generation.BudgetTracker {
	b := cfg.Generator.Budget
	if b.DailyTokenLimit <= 0 && b.MonthlyTokenLimit <= 0 {
		return nil
	}
	action := generation.BudgetActionWarn
	if b.Action == string(generation.BudgetActionReject) {
		action = generation.BudgetActionReject
	}
	tracker := generation.NewBudgetTracker(
		cfg.Generator.Provider, b.DailyTokenLimit, b.MonthlyTokenLimit, action, logger,
	)
	// Loads current counters from the store.
	tracker.WithStore(ctx, budgetrepo.New(a.Store, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
	return tracker
}

func (a *App) cacheStore(cfg *config.Config) cacheuc.Store {
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		return cachestore.New(a.Store, cfg.Cache.KeyPrefix)
	case config.CacheMemory:
		return cacheuc.NewMemoryStore()
	default:
		return nil
	}
}
