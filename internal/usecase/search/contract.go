package search

import (
	"context"

	"github.com/kailas-cloud/segmatch/internal/domain/filter"
	"github.com/kailas-cloud/segmatch/internal/domain/intent"
	"github.com/kailas-cloud/segmatch/internal/domain/result"
	"github.com/kailas-cloud/segmatch/internal/domain/segment"
	"github.com/kailas-cloud/segmatch/internal/usecase/scoring"
)

// Catalog reads the segment catalog. Get returns domain.ErrSegmentNotFound when absent.
type Catalog interface {
	List(ctx context.Context) ([]segment.Segment, error)
	Get(ctx context.Context, id string) (segment.Segment, error)
}

// IntentExtractor derives an intent; it never fails.
type IntentExtractor interface {
	Extract(ctx context.Context, query string, history []intent.Turn) (intent.Intent, bool)
}

// Scorer ranks candidates; it never fails.
type Scorer interface {
	Score(ctx context.Context, in intent.Intent, candidates []segment.Segment) scoring.Outcome
}

// Enricher builds cards; failures degrade to bare cards.
type Enricher interface {
	Enrich(ctx context.Context, scored []result.Scored) []result.Card
	Card(ctx context.Context, s result.Scored) result.Card
}

// ResponseCache is the filter-aware result cache.
type ResponseCache interface {
	Get(ctx context.Context, query string, f filter.Set) (result.Set, bool)
	Put(ctx context.Context, query string, f filter.Set, set result.Set)
	PurgeExpired(ctx context.Context) (int, error)
}
