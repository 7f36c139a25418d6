package cache

import (
	"context"
	"time"

	domcache "github.com/kailas-cloud/segmatch/internal/domain/cache"
)

// Store persists cache entries. Every write is an insert.
type Store interface {
	Insert(ctx context.Context, e domcache.Entry) error
	// Query returns every entry stored under the normalized query, expired or not.
	Query(ctx context.Context, query string) ([]domcache.Entry, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
