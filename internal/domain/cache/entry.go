// Package cache defines the persisted response-cache entry.
package cache

import (
	"strings"
	"time"

	"github.com/kailas-cloud/segmatch/internal/domain/result"
)

// Entry maps a normalized query and a canonical filter set to a result set.
// Entries are never updated in place; a newer entry shadows an older one.
type Entry struct {
	ID        string     `json:"id"`
	Query     string     `json:"query"`
	Filters   string     `json:"filters"`
	Result    result.Set `json:"result"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at now.
func (e *Entry) Expired(now time.Time) bool { return !now.Before(e.ExpiresAt) }

// NormalizeQuery case-folds a query and collapses its whitespace for use as a cache key.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
