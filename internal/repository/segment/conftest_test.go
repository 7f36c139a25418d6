package segment

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/kailas-cloud/segmatch/internal/db"
	domseg "github.com/kailas-cloud/segmatch/internal/domain/segment"
)

// mockStore is an in-memory hash store with error hooks.
type mockStore struct {
	hashes  map[string]map[string]string
	scanErr error
	setErr  error
	getErr  error
}

func (m *mockStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	if m.setErr != nil {
		return m.setErr
	}
	for _, it := range items {
		m.hashes[it.Key] = it.Fields
	}
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	h, ok := m.hashes[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return h, nil
}

func (m *mockStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i] = m.hashes[k]
	}
	return out, nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) (int, error) {
	n := 0
	for _, k := range keys {
		if _, ok := m.hashes[k]; ok {
			delete(m.hashes, k)
			n++
		}
	}
	return n, nil
}

func (m *mockStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	// Reverse order so List has to sort.
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{hashes: map[string]map[string]string{}}
	return New(ms), ms
}

func ptr(v float64) *float64 { return &v }

func testSegment(id string) domseg.Segment {
	return domseg.Segment{
		ID:                id,
		ParentID:          "root",
		Name:              "Pet Owners " + id,
		Description:       "Households that bought pet food",
		Type:              domseg.TypeCommerceAudience,
		Price:             1.25,
		Scale:             domseg.Scale{People: ptr(120000), Cookies: ptr(3.5e6)},
		ActivelyGenerated: true,
		TierPath:          []string{"Shopping", "Pets > Dogs"},
	}
}
