package segmatch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/segmatch/internal/domain"
	"github.com/kailas-cloud/segmatch/internal/domain/result"
	domusage "github.com/kailas-cloud/segmatch/internal/domain/usage"
	healthuc "github.com/kailas-cloud/segmatch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/segmatch/internal/usecase/search"
)

func petCatalog() ([]Segment, []BehaviorRecord) {
	return []Segment{
			{ID: "1", Name: "Pet Owners", Description: "Households with a dog or cat.", Type: TypeInterest, ActivelyGenerated: true},
			{ID: "2", Name: "Pet Food Buyers", Description: "Premium pet food purchasers.", Type: TypeCommerceAudience, Price: 2.5},
			{ID: "3", Name: "Luxury Auto Intenders", Type: TypeCommerceAudience, Price: 7},
		}, []BehaviorRecord{
			{AudienceName: "Pet Food Buyers", LocationKey: "US-TX", Weight: 3},
			{AudienceName: "Pet Food Buyers", LocationKey: "US-CA", Weight: 1},
		}
}

func newInMemoryClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	segs, beh := petCatalog()
	c, err := New(context.Background(), append([]Option{WithSegments(segs, beh)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

// --- Construction ---

func TestNew_NoCatalogSource(t *testing.T) {
	if _, err := New(context.Background()); err == nil {
		t.Fatal("expected error when no catalog source provided")
	}
}

func TestNew_RedisCacheWithoutRedis(t *testing.T) {
	segs, _ := petCatalog()
	if _, err := New(context.Background(), WithSegments(segs, nil), WithRedisCache(time.Minute)); err == nil {
		t.Fatal("expected error for redis cache without redis")
	}
}

func TestNew_InvalidCatalog(t *testing.T) {
	dup := []Segment{{ID: "1"}, {ID: "1"}}
	_, err := New(context.Background(), WithSegments(dup, nil))
	if !errors.Is(err, ErrDuplicateSegment) {
		t.Fatalf("expected ErrDuplicateSegment, got %v", err)
	}
}

func TestNew_MissingCatalogFile(t *testing.T) {
	if _, err := New(context.Background(), WithCatalogFile(t.TempDir()+"/missing.yaml")); err == nil {
		t.Fatal("expected error for missing catalog file")
	}
}

func TestNew_IncompatibleMetricRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "segmatch", Subsystem: "sdk", Name: "operations_total", Help: "clash",
	}))
	segs, _ := petCatalog()
	if _, err := New(context.Background(), WithSegments(segs, nil), WithPrometheus(reg)); err == nil {
		t.Fatal("expected error for incompatible metric registration")
	}
}

// --- In-memory pipeline ---

func TestClient_SearchWithoutGenerator(t *testing.T) {
	c := newInMemoryClient(t)

	set, err := c.Search(context.Background(), "pet food")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if set.TotalCandidates != 3 {
		t.Errorf("TotalCandidates = %d, want 3", set.TotalCandidates)
	}
	if set.Confidence != ConfidenceHigh || set.Degraded {
		t.Errorf("keyword hits must keep confidence high, got %s degraded=%v", set.Confidence, set.Degraded)
	}
	if len(set.BestFit) == 0 || set.BestFit[0].Segment.ID != "2" {
		t.Fatalf("expected Pet Food Buyers first, got %+v", set.BestFit)
	}
}

func TestClient_SearchFilters(t *testing.T) {
	c := newInMemoryClient(t)

	set, err := c.Search(context.Background(), "pet food",
		WithFilters(Filters{Type: Type(TypeCommerceAudience), MaxPrice: Float(5)}))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if set.TotalCandidates != 1 || set.Size() != 1 {
		t.Fatalf("expected a single candidate, got total=%d size=%d", set.TotalCandidates, set.Size())
	}
}

func TestClient_SearchWithGenerator(t *testing.T) {
	gen := &mockGenerator{fn: func(_ context.Context, prompt string) (Generation, error) {
		if strings.Contains(prompt, "[SEGMENTS]") || strings.Contains(prompt, "\"scores\"") {
			return Generation{Text: `{"scores":[{"id":"3","score":90,"reason":"premium buyers"}]}`, TotalTokens: 10}, nil
		}
		return Generation{Text: `{"category":"pets","keywords":["pet"]}`, TotalTokens: 5}, nil
	}}
	c := newInMemoryClient(t, WithGenerator(gen, time.Second), WithTokenBudget(0, 1000, true))

	if _, err := c.Search(context.Background(), "pet lovers"); err != nil {
		t.Fatalf("Search: %v", err)
	}
	r := c.Usage(context.Background(), PeriodMonth)
	if r.Tokens == 0 {
		t.Fatal("expected generator tokens to be recorded")
	}
	if r.Budget.TokensLimit != 1000 || r.Budget.TokensRemaining != 1000-r.Tokens {
		t.Fatalf("unexpected budget: %+v (tokens %d)", r.Budget, r.Tokens)
	}
}

func TestClient_SearchInvalidQuery(t *testing.T) {
	c := newInMemoryClient(t)
	_, err := c.Search(context.Background(), "   ")
	if !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestClient_Segment(t *testing.T) {
	c := newInMemoryClient(t)

	card, err := c.Segment(context.Background(), "2")
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if card.Reason != searchuc.DirectLookupReason {
		t.Errorf("Reason = %q", card.Reason)
	}
	if len(card.Geographic) != 2 || card.Geographic[0].LocationKey != "US-TX" {
		t.Errorf("unexpected geographic insights: %+v", card.Geographic)
	}

	if _, err := c.Segment(context.Background(), "404"); !errors.Is(err, ErrSegmentNotFound) {
		t.Fatalf("expected ErrSegmentNotFound, got %v", err)
	}
}

func TestClient_NoStoreOperations(t *testing.T) {
	c := newInMemoryClient(t)

	if err := c.Ping(context.Background()); !errors.Is(err, ErrNoStore) {
		t.Errorf("Ping: expected ErrNoStore, got %v", err)
	}
	if _, err := c.ImportCatalog(context.Background(), nil, false); !errors.Is(err, ErrNoStore) {
		t.Errorf("ImportCatalog: expected ErrNoStore, got %v", err)
	}
	h := c.Health(context.Background())
	if h.Status != "ok" || len(h.Checks) != 0 {
		t.Errorf("unexpected health: %+v", h)
	}
}

func TestClient_UsageWithoutBudget(t *testing.T) {
	c := newInMemoryClient(t)
	r := c.Usage(context.Background(), PeriodTotal)
	if r.Period != PeriodTotal || !r.PeriodStart.IsZero() || r.Budget.TokensLimit != 0 {
		t.Fatalf("unexpected report: %+v", r)
	}
}

// --- Mocked use cases ---

func TestClient_Search_PassesOptions(t *testing.T) {
	var got searchuc.Request
	c := &Client{searchSvc: &mockSearchUC{
		searchFn: func(_ context.Context, req searchuc.Request) (result.Set, error) {
			got = req
			return result.Set{Confidence: result.ConfidenceLow}, nil
		},
	}}

	_, err := c.Search(context.Background(), "q",
		WithFilters(Filters{Active: Bool(true)}),
		WithHistory(Turn{Role: "user", Content: "earlier"}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Query != "q" || got.Filters.Active == nil || !*got.Filters.Active {
		t.Errorf("unexpected request: %+v", got)
	}
	if len(got.History) != 1 || got.History[0].Content != "earlier" {
		t.Errorf("history not forwarded: %+v", got.History)
	}
}

func TestClient_ImportCatalog(t *testing.T) {
	var upserted, replaced int
	c := &Client{catalog: &mockCatalog{
		upsertFn: func(_ context.Context, s []Segment) error { upserted = len(s); return nil },
		replaceFn: func(_ context.Context, s []Segment) (int, error) {
			replaced = len(s)
			return 4, nil
		},
	}}
	segs, _ := petCatalog()

	if n, err := c.ImportCatalog(context.Background(), segs, false); err != nil || n != 0 {
		t.Fatalf("upsert: n=%d err=%v", n, err)
	}
	if upserted != 3 {
		t.Errorf("upserted = %d, want 3", upserted)
	}
	n, err := c.ImportCatalog(context.Background(), segs[:1], true)
	if err != nil || n != 4 || replaced != 1 {
		t.Fatalf("replace: n=%d replaced=%d err=%v", n, replaced, err)
	}
}

func TestClient_ImportCatalog_Error(t *testing.T) {
	c := &Client{catalog: &mockCatalog{
		upsertFn: func(context.Context, []Segment) error { return domain.ErrInvalidSegment },
	}}
	if _, err := c.ImportCatalog(context.Background(), nil, false); !errors.Is(err, ErrInvalidSegment) {
		t.Fatalf("expected ErrInvalidSegment, got %v", err)
	}
}

func TestClient_PurgeCache(t *testing.T) {
	c := &Client{searchSvc: &mockSearchUC{
		purgeFn: func(context.Context) (int, error) { return 0, domain.ErrCacheUnavailable },
	}}
	if _, err := c.PurgeCache(context.Background()); !errors.Is(err, ErrCacheUnavailable) {
		t.Fatalf("expected ErrCacheUnavailable, got %v", err)
	}
}

func TestClient_Health(t *testing.T) {
	c := &Client{healthSvc: &mockHealthUC{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{
			healthuc.ComponentDatabase:  healthuc.CheckOK,
			healthuc.ComponentGenerator: healthuc.CheckError,
		},
	}}}

	h := c.Health(context.Background())
	if h.Status != "degraded" || h.Checks["generator"] != "error" || h.Checks["database"] != "ok" {
		t.Fatalf("unexpected health: %+v", h)
	}
}

func TestClient_Usage(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	c := &Client{usageSvc: &mockUsageUC{fn: func(_ context.Context, p domusage.Period) domusage.Report {
		if p != domusage.PeriodMonth {
			t.Errorf("period = %q, want month", p)
		}
		return domusage.Report{
			Period: p, PeriodStart: &start, PeriodEnd: &end, Tokens: 42,
			Budget: domusage.NewBudget(100, 58, &end),
		}
	}}}

	r := c.Usage(context.Background(), "bogus")
	if r.Period != PeriodMonth || r.Tokens != 42 || !r.PeriodEnd.Equal(end) {
		t.Errorf("unexpected report: %+v", r)
	}
	if r.Budget.TokensRemaining != 58 || r.Budget.IsExhausted || !r.Budget.ResetsAt.Equal(end) {
		t.Errorf("unexpected budget: %+v", r.Budget)
	}
}

// --- Generator adapter ---

func TestGeneratorAdapter(t *testing.T) {
	a := &generatorAdapter{inner: &mockGenerator{fn: func(context.Context, string) (Generation, error) {
		return Generation{Text: "hi", PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}, nil
	}}}
	g, err := a.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Text != "hi" || g.TotalTokens != 5 || g.CompletionTokens != 2 {
		t.Errorf("unexpected generation: %+v", g)
	}
}

func TestGeneratorAdapter_Error(t *testing.T) {
	a := &generatorAdapter{inner: &mockGenerator{fn: func(context.Context, string) (Generation, error) {
		return Generation{}, errors.New("provider down")
	}}}
	if _, err := a.Generate(context.Background(), "p"); !errors.Is(err, domain.ErrGeneratorFailure) {
		t.Fatalf("expected ErrGeneratorFailure, got %v", err)
	}
}

// --- Observer ---

func TestObserver_NilIsSafe(t *testing.T) {
	var o *observer
	o.observe("op", time.Now(), nil)
	o.search(&ResultSet{})
}

func TestObserver_MetricsAndLogs(t *testing.T) {
	reg := prometheus.NewRegistry()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c := newInMemoryClient(t, WithPrometheus(reg), WithLogger(logger))
	if _, err := c.Search(context.Background(), "pet food"); err != nil {
		t.Fatalf("Search: %v", err)
	}
	_, _ = c.Search(context.Background(), "")

	o := c.obs.metrics
	if got := testutil.ToFloat64(o.operations.WithLabelValues("search", "ok")); got != 1 {
		t.Errorf("search ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(o.operations.WithLabelValues("search", "error")); got != 1 {
		t.Errorf("search error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(o.searches.WithLabelValues("high")); got != 1 {
		t.Errorf("high-confidence searches = %v, want 1", got)
	}
	if !strings.Contains(buf.String(), "operation failed") || !strings.Contains(buf.String(), "op=search") {
		t.Errorf("expected failure log, got:\n%s", buf.String())
	}
}

func TestObserver_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newInMemoryClient(t, WithPrometheus(reg))
	b := newInMemoryClient(t, WithPrometheus(reg))
	if a.obs.metrics.operations != b.obs.metrics.operations {
		t.Fatal("expected clients on one registry to share collectors")
	}
}
