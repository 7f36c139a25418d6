package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	domcache "github.com/kailas-cloud/segmatch/internal/domain/cache"
)

// MemoryStore keeps serialized entries in process memory.
// Entries are stored encoded so callers never share slices with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][][]byte)}
}

// Insert appends an entry under its query.
func (m *MemoryStore) Insert(_ context.Context, e domcache.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	m.mu.Lock()
	m.entries[e.Query] = append(m.entries[e.Query], data)
	m.mu.Unlock()
	return nil
}

// Query returns every entry under the query.
func (m *MemoryStore) Query(_ context.Context, query string) ([]domcache.Entry, error) {
	m.mu.RLock()
	raw := append([][]byte(nil), m.entries[query]...)
	m.mu.RUnlock()

	out := make([]domcache.Entry, 0, len(raw))
	for _, data := range raw {
		var e domcache.Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal cache entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// DeleteExpired drops every entry expired at now.
func (m *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for q, list := range m.entries {
		kept := make([][]byte, 0, len(list))
		for _, data := range list {
			var probe struct {
				ExpiresAt time.Time `json:"expires_at"`
			}
			if err := json.Unmarshal(data, &probe); err == nil && !now.Before(probe.ExpiresAt) {
				removed++
				continue
			}
			kept = append(kept, data)
		}
		if len(kept) == 0 {
			delete(m.entries, q)
		} else {
			m.entries[q] = kept
		}
	}
	return removed, nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, list := range m.entries {
		n += len(list)
	}
	return n
}
