// Package search is the entry point of the relevance pipeline.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/segmatch/internal/domain"
	"github.com/kailas-cloud/segmatch/internal/domain/filter"
	"github.com/kailas-cloud/segmatch/internal/domain/intent"
	"github.com/kailas-cloud/segmatch/internal/domain/result"
	"github.com/kailas-cloud/segmatch/internal/logger"
	"github.com/kailas-cloud/segmatch/internal/metrics"
)

// DefaultMaxQueryLength bounds the query in runes.
const DefaultMaxQueryLength = 1000

// DirectLookupReason is the reason attached to cards built by GetSegmentDetails.
const DirectLookupReason = "direct lookup"

// Request is one search call.
type Request struct {
	Query   string
	Filters filter.Set
	History []intent.Turn
}

// Config tunes the entry point.
type Config struct {
	Windows        result.Windows
	MaxQueryLength int
	// Deadline bounds the generator stages of one search. Batches still pending
	// when it fires are scored by fallback. Zero means no overall deadline.
	Deadline time.Duration
}

// Service runs query -> intent -> filter -> score -> categorize -> enrich -> cache.
type Service struct {
	catalog Catalog
	intents IntentExtractor
	scorer  Scorer
	enrich  Enricher
	cache   ResponseCache
	cfg     Config
}

// New creates the pipeline service. cache may be nil.
func New(
	catalog Catalog, intents IntentExtractor, scorer Scorer,
	enrich Enricher, cache ResponseCache, cfg Config,
) *Service {
	if cfg.Windows == (result.Windows{}) {
		cfg.Windows = result.DefaultWindows()
	}
	if cfg.MaxQueryLength <= 0 {
		cfg.MaxQueryLength = DefaultMaxQueryLength
	}
	return &Service{
		catalog: catalog,
		intents: intents,
		scorer:  scorer,
		enrich:  enrich,
		cache:   cache,
		cfg:     cfg,
	}
}

// Search returns a categorized result set. Only invalid input and an unreadable
// catalog are errors; every other failure lowers confidence instead.
func (s *Service) Search(ctx context.Context, req Request) (result.Set, error) {
	query := strings.TrimSpace(req.Query)
	if err := s.validate(query, req.Filters); err != nil {
		return result.Set{}, err
	}
	ctx = logger.With(ctx, zap.String("query_hash", queryHash(query)))
	log := logger.FromContext(ctx)

	// A refinement turn depends on its history, which is not part of the cache key.
	cacheable := s.cache != nil && len(req.History) == 0
	if cacheable {
		if set, ok := s.cache.Get(ctx, query, req.Filters); ok {
			log.Debug("Search served from cache")
			metrics.SearchRequestsTotal.WithLabelValues(string(set.Confidence), "true").Inc()
			return set, nil
		}
	}

	genCtx, cancel := s.generatorContext(ctx)
	defer cancel()

	in, fromGen := s.intents.Extract(genCtx, query, req.History)

	catalog, err := s.catalog.List(ctx)
	if err != nil {
		return result.Set{}, fmt.Errorf("list catalog: %w", err)
	}
	candidates := req.Filters.Apply(catalog)

	set := result.Set{
		Query:           query,
		BestFit:         []result.Card{},
		HighValue:       []result.Card{},
		Related:         []result.Card{},
		TotalCandidates: len(candidates),
		Confidence:      result.ConfidenceHigh,
	}
	if len(candidates) == 0 {
		log.Warn("No candidates survived the filter", zap.Int("catalog_size", len(catalog)))
		set.Confidence, set.Degraded = result.ConfidenceLow, true
		metrics.SearchRequestsTotal.WithLabelValues(string(set.Confidence), "false").Inc()
		return set, nil
	}

	outcome := s.scorer.Score(genCtx, in, candidates)
	if errors.Is(genCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		log.Warn("Search deadline reached, pending batches scored by fallback",
			zap.Duration("deadline", s.cfg.Deadline),
			zap.Int("fallback_batches", outcome.FallbackBatches),
		)
	}
	if outcome.AllFallback() && outcome.KeywordMatches == 0 {
		set.Confidence, set.Degraded = result.ConfidenceLow, true
	}

	bestFit, highValue, related := result.Categorize(outcome.Ranked, s.cfg.Windows)
	tiers := make([]result.Scored, 0, len(bestFit)+len(highValue)+len(related))
	tiers = append(append(append(tiers, bestFit...), highValue...), related...)
	cards := s.enrich.Enrich(ctx, tiers)
	set.BestFit = cards[:len(bestFit):len(bestFit)]
	set.HighValue = cards[len(bestFit) : len(bestFit)+len(highValue) : len(bestFit)+len(highValue)]
	set.Related = cards[len(bestFit)+len(highValue):]

	log.Info("Search completed",
		zap.Int("candidates", len(candidates)),
		zap.Bool("intent_from_generator", fromGen),
		zap.Int("generator_batches", outcome.GeneratorBatches),
		zap.Int("fallback_batches", outcome.FallbackBatches),
		zap.Int("results", set.Size()),
		zap.String("confidence", string(set.Confidence)),
	)
	metrics.SearchRequestsTotal.WithLabelValues(string(set.Confidence), "false").Inc()

	// Degraded sets are never cached.
	if cacheable && !set.Degraded {
		s.cache.Put(ctx, query, req.Filters, set)
	}
	return set, nil
}

// GetSegmentDetails returns an enriched card for one segment.
func (s *Service) GetSegmentDetails(ctx context.Context, id string) (result.Card, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return result.Card{}, domain.NewQueryError("id", "is required")
	}
	seg, err := s.catalog.Get(ctx, id)
	if err != nil {
		return result.Card{}, fmt.Errorf("get segment %s: %w", id, err)
	}
	return s.enrich.Card(ctx, result.Scored{
		Segment: seg,
		Reason:  DirectLookupReason,
		Origin:  result.OriginDirect,
	}), nil
}

// PurgeCache drops expired cache entries and reports how many were removed.
func (s *Service) PurgeCache(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	n, err := s.cache.PurgeExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge cache: %w", err)
	}
	logger.FromContext(ctx).Info("Response cache purged", zap.Int("removed", n))
	return n, nil
}

func (s *Service) generatorContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Deadline <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.Deadline)
}

func (s *Service) validate(query string, f filter.Set) error {
	if query == "" {
		return domain.NewQueryError("query", "is required")
	}
	if utf8.RuneCountInString(query) > s.cfg.MaxQueryLength {
		return domain.NewQueryError("query", fmt.Sprintf("must be at most %d characters", s.cfg.MaxQueryLength))
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("validate filters: %w", err)
	}
	return nil
}

// queryHash keeps raw campaign text out of logs.
func queryHash(q string) string {
	h := sha256.Sum256([]byte(q))
	return hex.EncodeToString(h[:6])
}
