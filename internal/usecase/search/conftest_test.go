package search

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kailas-cloud/segmatch/internal/domain"
	"github.com/kailas-cloud/segmatch/internal/domain/behavior"
	"github.com/kailas-cloud/segmatch/internal/domain/segment"
)

// --- Mocks ---

type mockCatalog struct {
	segments []segment.Segment
	err      error
}

func (m *mockCatalog) List(_ context.Context) ([]segment.Segment, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.segments, nil
}

func (m *mockCatalog) Get(_ context.Context, id string) (segment.Segment, error) {
	for _, s := range m.segments {
		if s.ID == id {
			return s, nil
		}
	}
	return segment.Segment{}, domain.ErrSegmentNotFound
}

// mockGenerator answers intent prompts and scoring prompts differently.
type mockGenerator struct {
	mu     sync.Mutex
	calls  int
	err    error
	intent string
	score  int
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (domain.Generation, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return domain.Generation{}, m.err
	}
	if strings.Contains(prompt, "Extract the marketer's intent") {
		return domain.Generation{Text: m.intent}, nil
	}
	var items []string
	for _, line := range strings.Split(prompt, "\n") {
		parts := strings.Split(line, " | ")
		if len(parts) == 4 && !strings.Contains(parts[0], " ") {
			items = append(items, fmt.Sprintf(`{"id":%q,"score":%d,"reason":"fits"}`, parts[0], m.score))
		}
	}
	return domain.Generation{Text: `{"scores":[` + strings.Join(items, ",") + `]}`}, nil
}

func (m *mockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// slowGenerator answers intent prompts at once and blocks scoring prompts
// until the context is done.
type slowGenerator struct {
	mu          sync.Mutex
	scoreCalls  int
	intentCalls int
}

func (m *slowGenerator) Generate(ctx context.Context, prompt string) (domain.Generation, error) {
	m.mu.Lock()
	if strings.Contains(prompt, "Extract the marketer's intent") {
		m.intentCalls++
		m.mu.Unlock()
		return domain.Generation{Text: `{"category":"retail","keywords":["shoppers"]}`}, nil
	}
	m.scoreCalls++
	m.mu.Unlock()
	<-ctx.Done()
	return domain.Generation{}, ctx.Err()
}

func (m *slowGenerator) ScoreCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scoreCalls
}

type mockDataset struct {
	records map[string][]behavior.Record
}

func (m *mockDataset) LookupByAudienceName(_ context.Context, name string, _ int) ([]behavior.Record, error) {
	return m.records[name], nil
}

func commerceCatalog(n int) []segment.Segment {
	out := make([]segment.Segment, n)
	for i := range out {
		out[i] = segment.Segment{
			ID:          fmt.Sprintf("c%02d", i),
			Name:        fmt.Sprintf("Shoppers %02d", i),
			Description: "In-market shoppers",
			Type:        segment.TypeCommerceAudience,
			Price:       float64(i),
			TierPath:    []string{"Retail", "Shoppers"},
		}
	}
	return out
}
