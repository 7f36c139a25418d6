package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/segmatch/internal/domain"
	"github.com/kailas-cloud/segmatch/internal/domain/result"
	"github.com/kailas-cloud/segmatch/internal/domain/segment"
	domusage "github.com/kailas-cloud/segmatch/internal/domain/usage"
	healthuc "github.com/kailas-cloud/segmatch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/segmatch/internal/usecase/search"
)

// --- Mocks ---

type mockSearcher struct {
	searchFn  func(ctx context.Context, req searchuc.Request) (result.Set, error)
	detailsFn func(ctx context.Context, id string) (result.Card, error)
	purgeFn   func(ctx context.Context) (int, error)
}

func (m *mockSearcher) Search(ctx context.Context, req searchuc.Request) (result.Set, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, req)
	}
	return result.Set{Query: req.Query, Confidence: result.ConfidenceHigh}, nil
}

func (m *mockSearcher) GetSegmentDetails(ctx context.Context, id string) (result.Card, error) {
	if m.detailsFn != nil {
		return m.detailsFn(ctx, id)
	}
	return result.Card{}, nil
}

func (m *mockSearcher) PurgeCache(ctx context.Context) (int, error) {
	if m.purgeFn != nil {
		return m.purgeFn(ctx)
	}
	return 0, nil
}

type mockUsage struct {
	got domusage.Period
}

func (m *mockUsage) GetReport(_ context.Context, p domusage.Period) domusage.Report {
	m.got = p
	return domusage.Report{Period: p, Tokens: 1200}
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

func newTestRouter(t *testing.T, s Searcher, u UsageReporter, h HealthChecker, keys ...string) http.Handler {
	t.Helper()
	return NewRouter(NewServer(s, u, h, zap.NewNop()), keys, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

// --- Tests ---

func TestSearch_PassesRequestThrough(t *testing.T) {
	var got searchuc.Request
	s := &mockSearcher{searchFn: func(_ context.Context, req searchuc.Request) (result.Set, error) {
		got = req
		return result.Set{Query: req.Query, TotalCandidates: 7, Confidence: result.ConfidenceHigh}, nil
	}}
	h := newTestRouter(t, s, nil, nil)

	rr := do(t, h, http.MethodPost, "/api/v1/search", `{
		"query": "eco-friendly running shoes",
		"filters": {"type": "commerce-audience", "max_price": 2.5, "active": true},
		"history": [{"role": "user", "content": "shoes"}]
	}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	if got.Query != "eco-friendly running shoes" || len(got.History) != 1 {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.Filters.Type == nil || *got.Filters.Type != segment.TypeCommerceAudience {
		t.Fatalf("type filter lost: %+v", got.Filters)
	}
	if got.Filters.MaxPrice == nil || *got.Filters.MaxPrice != 2.5 || got.Filters.Active == nil || !*got.Filters.Active {
		t.Fatalf("filters lost: %+v", got.Filters)
	}

	var set result.Set
	if err := json.NewDecoder(rr.Body).Decode(&set); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if set.TotalCandidates != 7 || set.Confidence != result.ConfidenceHigh {
		t.Fatalf("unexpected set: %+v", set)
	}
}

func TestSearch_BadBody(t *testing.T) {
	h := newTestRouter(t, &mockSearcher{}, nil, nil)
	for _, body := range []string{`{`, `{"query": "x", "unknown": 1}`, `[]`} {
		rr := do(t, h, http.MethodPost, "/api/v1/search", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d", body, rr.Code)
		}
		if e := decodeError(t, rr); e.Code != CodeBadRequest {
			t.Errorf("body %q: code = %q", body, e.Code)
		}
	}
}

func TestSearch_ValidationError(t *testing.T) {
	s := &mockSearcher{searchFn: func(context.Context, searchuc.Request) (result.Set, error) {
		return result.Set{}, domain.NewQueryError("query", "is required")
	}}
	rr := do(t, newTestRouter(t, s, nil, nil), http.MethodPost, "/api/v1/search", `{"query": ""}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	e := decodeError(t, rr)
	if e.Code != CodeValidationFailed || !strings.Contains(e.Message, "query") {
		t.Fatalf("unexpected error: %+v", e)
	}
}

func TestSearch_InternalErrorIsOpaque(t *testing.T) {
	s := &mockSearcher{searchFn: func(context.Context, searchuc.Request) (result.Set, error) {
		return result.Set{}, fmt.Errorf("list catalog: dial tcp 10.0.0.5:6379: connection refused")
	}}
	rr := do(t, newTestRouter(t, s, nil, nil), http.MethodPost, "/api/v1/search", `{"query": "x"}`)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	e := decodeError(t, rr)
	if e.Code != CodeInternalError || strings.Contains(e.Message, "10.0.0.5") {
		t.Fatalf("internal detail leaked: %+v", e)
	}
}

func TestGetSegment(t *testing.T) {
	s := &mockSearcher{detailsFn: func(_ context.Context, id string) (result.Card, error) {
		if id != "seg-42" {
			return result.Card{}, fmt.Errorf("%s: %w", id, domain.ErrSegmentNotFound)
		}
		return result.Card{Scored: result.Scored{
			Segment: segment.Segment{ID: id, Name: "Runners"},
			Reason:  searchuc.DirectLookupReason,
			Origin:  result.OriginDirect,
		}}, nil
	}}
	h := newTestRouter(t, s, nil, nil)

	rr := do(t, h, http.MethodGet, "/api/v1/segments/seg-42", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var card result.Card
	if err := json.NewDecoder(rr.Body).Decode(&card); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if card.Segment.ID != "seg-42" || card.Origin != result.OriginDirect {
		t.Fatalf("unexpected card: %+v", card)
	}

	rr = do(t, h, http.MethodGet, "/api/v1/segments/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != CodeSegmentNotFound || e.Message != domain.ErrSegmentNotFound.Error() {
		t.Fatalf("unexpected error: %+v", e)
	}
}

func TestPurgeCache(t *testing.T) {
	s := &mockSearcher{purgeFn: func(context.Context) (int, error) { return 3, nil }}
	rr := do(t, newTestRouter(t, s, nil, nil), http.MethodPost, "/api/v1/admin/cache/purge", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp PurgeResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil || resp.Purged != 3 {
		t.Fatalf("unexpected response %+v / %v", resp, err)
	}
}

func TestPurgeCache_Unavailable(t *testing.T) {
	s := &mockSearcher{purgeFn: func(context.Context) (int, error) {
		return 0, fmt.Errorf("purge: %w", domain.ErrCacheUnavailable)
	}}
	rr := do(t, newTestRouter(t, s, nil, nil), http.MethodPost, "/api/v1/admin/cache/purge", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestGetUsage(t *testing.T) {
	u := &mockUsage{}
	h := newTestRouter(t, &mockSearcher{}, u, nil)

	rr := do(t, h, http.MethodGet, "/api/v1/usage?period=day", "")
	if rr.Code != http.StatusOK || u.got != domusage.PeriodDay {
		t.Fatalf("status %d, period %q", rr.Code, u.got)
	}

	do(t, h, http.MethodGet, "/api/v1/usage", "")
	if u.got != domusage.PeriodMonth {
		t.Fatalf("default period = %q", u.got)
	}
}

func TestHealthCheck(t *testing.T) {
	healthy := &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	if rr := do(t, newTestRouter(t, &mockSearcher{}, nil, healthy), http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Fatalf("healthy status = %d", rr.Code)
	}

	degraded := &mockHealth{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{healthuc.ComponentDatabase: healthuc.CheckError},
	}}
	rr := do(t, newTestRouter(t, &mockSearcher{}, nil, degraded), http.MethodGet, "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("degraded status = %d", rr.Code)
	}
}

func TestRouter_AuthAndExemptions(t *testing.T) {
	h := newTestRouter(t, &mockSearcher{}, nil, nil, "secret")

	if rr := do(t, h, http.MethodPost, "/api/v1/search", `{"query":"x"}`); rr.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated search = %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Fatalf("health = %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/metrics", ""); rr.Code != http.StatusOK {
		t.Fatalf("metrics = %d", rr.Code)
	}
}

func TestRouter_UnknownRouteAndMethod(t *testing.T) {
	h := newTestRouter(t, &mockSearcher{}, nil, nil)
	if rr := do(t, h, http.MethodGet, "/api/v1/nothing", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown route = %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/api/v1/search", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method = %d", rr.Code)
	}
}

func TestRouter_RequestIDHeader(t *testing.T) {
	h := newTestRouter(t, &mockSearcher{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	req.Header.Set("X-Request-Id", "req-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("X-Request-ID = %q", got)
	}
}

func TestJSONRecoverer(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := JSONRecoverer(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if e := decodeError(t, rr); e.Code != CodeInternalError {
		t.Fatalf("code = %q", e.Code)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Fatal("panic not logged")
	}
}

func TestWideEventMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := WideEventMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(time.Millisecond)
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/search", http.NoBody))

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 canonical line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) || fields["path"] != "/api/v1/search" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestSafeDomainMessage(t *testing.T) {
	if got := safeDomainMessage(errors.New("secret detail")); got != "internal error" {
		t.Errorf("got %q", got)
	}
	wrapped := fmt.Errorf("layer: %w", domain.NewFilterError("max_price", "must be >= 0"))
	if got := safeDomainMessage(wrapped); !strings.Contains(got, "max_price") {
		t.Errorf("got %q", got)
	}
}
