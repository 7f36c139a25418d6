package segmatch

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/segmatch/internal/domain/result"
	"github.com/kailas-cloud/segmatch/internal/usecase/enrich"
	"github.com/kailas-cloud/segmatch/internal/usecase/scoring"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type cacheMode int

const (
	cacheMemory cacheMode = iota
	cacheRedis
	cacheOff
)

type clientConfig struct {
	addrs    []string
	password string

	catalogFile string
	segments    []Segment
	behavior    []BehaviorRecord

	generator        Generator
	generatorTimeout time.Duration
	dailyTokens      int64
	monthlyTokens    int64
	rejectOverBudget bool

	cache    cacheMode
	cacheTTL time.Duration

	scoring scoring.Config
	enrich  enrich.Config
	windows result.Windows

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis connects the client to Redis or Valkey. The catalog is then read from
// the key-value store unless WithCatalogFile or WithSegments is also given.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithCatalogFile serves the catalog (and any behavioral records) from a YAML snapshot.
func WithCatalogFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogFile = path
	})
}

// WithSegments serves an in-memory catalog with optional behavioral records.
func WithSegments(segments []Segment, behavior []BehaviorRecord) Option {
	return optionFunc(func(c *clientConfig) {
		c.segments = segments
		c.behavior = behavior
	})
}

// WithGenerator sets the text generator used for intent extraction and scoring.
// A zero timeout leaves the call bounded by the caller's context only.
func WithGenerator(g Generator, timeout time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
		c.generatorTimeout = timeout
	})
}

// WithTokenBudget caps generator tokens per UTC day and month (0 = unlimited).
// With reject, calls over budget fail and the pipeline takes the keyword fallback.
func WithTokenBudget(daily, monthly int64, reject bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.dailyTokens = daily
		c.monthlyTokens = monthly
		c.rejectOverBudget = reject
	})
}

// WithRedisCache stores cached result sets in the key-value store. Requires WithRedis.
func WithRedisCache(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cache = cacheRedis
		c.cacheTTL = ttl
	})
}

// WithMemoryCache keeps cached result sets in process (the default, one hour TTL).
func WithMemoryCache(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cache = cacheMemory
		c.cacheTTL = ttl
	})
}

// WithoutCache disables the response cache.
func WithoutCache() Option {
	return optionFunc(func(c *clientConfig) {
		c.cache = cacheOff
	})
}

// WithBatching sets the scoring batch size and the number of batches in flight.
func WithBatching(size, concurrency int) Option {
	return optionFunc(func(c *clientConfig) {
		c.scoring.BatchSize = size
		c.scoring.Concurrency = concurrency
	})
}

// WithTiers sets how many segments go into each result tier. Defaults: 8, 5, 5.
func WithTiers(bestFit, highValue, related int) Option {
	return optionFunc(func(c *clientConfig) {
		c.windows = result.Windows{BestFit: bestFit, HighValue: highValue, Related: related}
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// SearchOption tunes a single Search call.
type SearchOption func(*searchOptions)

type searchOptions struct {
	filters Filters
	history []Turn
}

// WithFilters applies hard constraints before scoring.
func WithFilters(f Filters) SearchOption {
	return func(o *searchOptions) { o.filters = f }
}

// WithHistory passes prior conversation turns to intent extraction.
func WithHistory(turns ...Turn) SearchOption {
	return func(o *searchOptions) { o.history = turns }
}
