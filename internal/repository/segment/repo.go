// Package segment stores the segment catalog as one Redis hash per segment.
package segment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/segmatch/internal/db"
	"github.com/kailas-cloud/segmatch/internal/domain"
	domseg "github.com/kailas-cloud/segmatch/internal/domain/segment"
	"github.com/kailas-cloud/segmatch/internal/logger"
)

const keyPrefix = domain.KeyPrefix + "segment:"

// store is the consumer interface for the catalog (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) (int, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements search.Catalog over hashes.
type Repo struct {
	store store
}

// New creates a catalog repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// List returns the whole catalog ordered by ID. Corrupt hashes are logged and skipped.
func (r *Repo) List(ctx context.Context) ([]domseg.Segment, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan catalog: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	out := make([]domseg.Segment, 0, len(hashes))
	for i, m := range hashes {
		if len(m) == 0 {
			continue // deleted between SCAN and HGETALL
		}
		seg, err := parseHashFields(strings.TrimPrefix(keys[i], keyPrefix), m)
		if err != nil {
			logger.FromContext(ctx).Warn("Skipping corrupt catalog entry", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		out = append(out, seg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns one segment or domain.ErrSegmentNotFound.
func (r *Repo) Get(ctx context.Context, id string) (domseg.Segment, error) {
	m, err := r.store.HGetAll(ctx, keyPrefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domseg.Segment{}, fmt.Errorf("%s: %w", id, domain.ErrSegmentNotFound)
		}
		return domseg.Segment{}, fmt.Errorf("get segment %s: %w", id, err)
	}
	seg, err := parseHashFields(id, m)
	if err != nil {
		return domseg.Segment{}, fmt.Errorf("decode segment %s: %w", id, err)
	}
	return seg, nil
}

// Upsert validates the batch as one catalog snapshot and writes it in a single pipeline.
func (r *Repo) Upsert(ctx context.Context, segments []domseg.Segment) error {
	if err := domseg.ValidateCatalog(segments); err != nil {
		return err
	}
	if len(segments) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(segments))
	for i := range segments {
		items[i] = db.HashSetItem{Key: keyPrefix + segments[i].ID, Fields: buildHashFields(&segments[i])}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d segments: %w", len(segments), err)
	}
	return nil
}

// Replace swaps the stored catalog for segments, removing ids no longer present.
func (r *Repo) Replace(ctx context.Context, segments []domseg.Segment) (removed int, err error) {
	if err := r.Upsert(ctx, segments); err != nil {
		return 0, err
	}

	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("scan catalog: %w", err)
	}
	keep := make(map[string]struct{}, len(segments))
	for i := range segments {
		keep[keyPrefix+segments[i].ID] = struct{}{}
	}
	var stale []string
	for _, k := range keys {
		if _, ok := keep[k]; !ok {
			stale = append(stale, k)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	n, err := r.store.Del(ctx, stale...)
	if err != nil {
		return 0, fmt.Errorf("remove %d stale segments: %w", len(stale), err)
	}
	return n, nil
}
