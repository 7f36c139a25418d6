package chi

import (
	"context"

	"github.com/kailas-cloud/segmatch/internal/domain/result"
	domusage "github.com/kailas-cloud/segmatch/internal/domain/usage"
	healthuc "github.com/kailas-cloud/segmatch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/segmatch/internal/usecase/search"
)

// Searcher is the pipeline surface the API exposes (ISP).
type Searcher interface {
	Search(ctx context.Context, req searchuc.Request) (result.Set, error)
	GetSegmentDetails(ctx context.Context, id string) (result.Card, error)
	PurgeCache(ctx context.Context) (int, error)
}

// UsageReporter builds generator usage reports.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
