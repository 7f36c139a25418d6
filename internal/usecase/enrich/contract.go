package enrich

import (
	"context"

	"github.com/kailas-cloud/segmatch/internal/domain/behavior"
)

// Dataset looks up behavioral records by audience name.
// An empty result is a normal outcome, not an error.
type Dataset interface {
	LookupByAudienceName(ctx context.Context, name string, limit int) ([]behavior.Record, error)
}
