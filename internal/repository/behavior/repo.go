// Package behavior reads behavioral records from Postgres.
package behavior

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kailas-cloud/segmatch/internal/domain"
	dombeh "github.com/kailas-cloud/segmatch/internal/domain/behavior"
)

const lookupSQL = `SELECT location_key, weight
FROM audience_behavior
WHERE audience_name = $1
ORDER BY weight DESC, location_key
LIMIT $2`

// querier is the consumer interface over *pgxpool.Pool (ISP).
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repo implements enrich.Dataset over table audience_behavior.
type Repo struct {
	db querier
}

// New creates a behavioral dataset repository.
func New(db querier) *Repo {
	return &Repo{db: db}
}

// LookupByAudienceName returns up to limit records for the audience, heaviest first.
func (r *Repo) LookupByAudienceName(ctx context.Context, name string, limit int) ([]dombeh.Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, lookupSQL, name, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query %q: %w", domain.ErrDatasetUnavailable, name, err)
	}
	defer rows.Close()

	var out []dombeh.Record
	for rows.Next() {
		rec := dombeh.Record{AudienceName: name}
		if err := rows.Scan(&rec.LocationKey, &rec.Weight); err != nil {
			return nil, fmt.Errorf("%w: scan %q: %w", domain.ErrDatasetUnavailable, name, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %q: %w", domain.ErrDatasetUnavailable, name, err)
	}
	return out, nil
}
