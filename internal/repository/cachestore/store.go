// Package cachestore persists response-cache entries as expiring Redis hashes.
package cachestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/segmatch/internal/domain"
	domcache "github.com/kailas-cloud/segmatch/internal/domain/cache"
	"github.com/kailas-cloud/segmatch/internal/logger"
)

// DefaultPrefix namespaces cache keys.
const DefaultPrefix = domain.KeyPrefix + "cache:"

const (
	fieldQuery   = "query"
	fieldExpires = "expires_at"
	fieldEntry   = "entry"
)

// store is the consumer interface for cache persistence (ISP).
type store interface {
	HSetWithTTL(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) (int, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Store implements cache.Store. Each entry is its own key, so writes never overwrite.
type Store struct {
	store  store
	prefix string
}

// New creates a cache store. An empty prefix uses DefaultPrefix.
func New(s store, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{store: s, prefix: prefix}
}

// Insert writes the entry with a server-side TTL matching its expiry.
func (s *Store) Insert(ctx context.Context, e domcache.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	ttl := e.ExpiresAt.Sub(e.CreatedAt)
	if ttl <= 0 {
		return nil
	}

	fields := map[string]string{
		fieldQuery:   e.Query,
		fieldExpires: strconv.FormatInt(e.ExpiresAt.UnixMilli(), 10),
		fieldEntry:   string(data),
	}
	if err := s.store.HSetWithTTL(ctx, s.entryKey(e.Query, e.ID), fields, ttl); err != nil {
		return fmt.Errorf("insert cache entry: %w", err)
	}
	return nil
}

// Query returns every stored entry for the normalized query. Entries that
// fail to decode are logged and skipped.
func (s *Store) Query(ctx context.Context, query string) ([]domcache.Entry, error) {
	keys, err := s.store.Scan(ctx, s.queryPrefix(query)+"*")
	if err != nil {
		return nil, fmt.Errorf("scan cache: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	hashes, err := s.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load cache entries: %w", err)
	}

	out := make([]domcache.Entry, 0, len(hashes))
	for i, h := range hashes {
		// Digest collisions are resolved on the stored query text.
		if len(h) == 0 || h[fieldQuery] != query {
			continue
		}
		var e domcache.Entry
		if err := json.Unmarshal([]byte(h[fieldEntry]), &e); err != nil {
			logger.FromContext(ctx).Warn("Skipping corrupt cache entry", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// DeleteExpired removes entries whose expiry is at or before now.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	keys, err := s.store.Scan(ctx, s.prefix+"*")
	if err != nil {
		return 0, fmt.Errorf("scan cache: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	hashes, err := s.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return 0, fmt.Errorf("load cache entries: %w", err)
	}

	cutoff := now.UnixMilli()
	var expired []string
	for i, h := range hashes {
		if len(h) == 0 {
			continue
		}
		exp, err := strconv.ParseInt(h[fieldExpires], 10, 64)
		if err != nil || exp <= cutoff {
			expired = append(expired, keys[i])
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}

	n, err := s.store.Del(ctx, expired...)
	if err != nil {
		return 0, fmt.Errorf("delete %d expired entries: %w", len(expired), err)
	}
	return n, nil
}

func (s *Store) queryPrefix(query string) string {
	sum := sha256.Sum256([]byte(query))
	return s.prefix + hex.EncodeToString(sum[:8]) + ":"
}

func (s *Store) entryKey(query, id string) string {
	return s.queryPrefix(query) + id
}
