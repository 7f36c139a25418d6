package scoring

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kailas-cloud/segmatch/internal/domain"
	"github.com/kailas-cloud/segmatch/internal/domain/segment"
)

type mockGenerator struct {
	mu      sync.Mutex
	respond func(prompt string) (string, error)
	calls   int
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (domain.Generation, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	text, err := m.respond(prompt)
	if err != nil {
		return domain.Generation{}, err
	}
	return domain.Generation{Text: text}, nil
}

func (m *mockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func makeSegment(id, name string, typ segment.Type, active bool) segment.Segment {
	return segment.Segment{
		ID:                id,
		Name:              name,
		Description:       "Audience of " + strings.ToLower(name),
		Type:              typ,
		ActivelyGenerated: active,
		TierPath:          []string{"Root", name},
	}
}

func makeCatalog(n int) []segment.Segment {
	out := make([]segment.Segment, n)
	for i := range out {
		out[i] = makeSegment(fmt.Sprintf("s%02d", i), fmt.Sprintf("Segment %02d", i), segment.TypeInterest, false)
	}
	return out
}

// idsInPrompt extracts the segment ids listed in a scoring prompt.
func idsInPrompt(prompt string) []string {
	var ids []string
	for _, line := range strings.Split(prompt, "\n") {
		parts := strings.Split(line, " | ")
		if len(parts) == 4 && !strings.Contains(parts[0], " ") {
			ids = append(ids, parts[0])
		}
	}
	return ids
}

// scoreAll answers with the same score for every listed id.
func scoreAll(score int) func(string) (string, error) {
	return func(prompt string) (string, error) {
		var items []string
		for _, id := range idsInPrompt(prompt) {
			items = append(items, fmt.Sprintf(`{"id":%q,"score":%d,"reason":"fit"}`, id, score))
		}
		return `{"scores":[` + strings.Join(items, ",") + `]}`, nil
	}
}
