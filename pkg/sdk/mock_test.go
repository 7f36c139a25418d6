package segmatch

import (
	"context"

	"github.com/kailas-cloud/segmatch/internal/domain/result"
	domusage "github.com/kailas-cloud/segmatch/internal/domain/usage"
	healthuc "github.com/kailas-cloud/segmatch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/segmatch/internal/usecase/search"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn  func(ctx context.Context, req searchuc.Request) (result.Set, error)
	segmentFn func(ctx context.Context, id string) (result.Card, error)
	purgeFn   func(ctx context.Context) (int, error)
}

func (m *mockSearchUC) Search(ctx context.Context, req searchuc.Request) (result.Set, error) {
	return m.searchFn(ctx, req)
}

func (m *mockSearchUC) GetSegmentDetails(ctx context.Context, id string) (result.Card, error) {
	return m.segmentFn(ctx, id)
}

func (m *mockSearchUC) PurgeCache(ctx context.Context) (int, error) {
	return m.purgeFn(ctx)
}

// --- catalogWriter mock ---

type mockCatalog struct {
	upsertFn  func(ctx context.Context, segments []Segment) error
	replaceFn func(ctx context.Context, segments []Segment) (int, error)
}

func (m *mockCatalog) Upsert(ctx context.Context, segments []Segment) error {
	return m.upsertFn(ctx, segments)
}

func (m *mockCatalog) Replace(ctx context.Context, segments []Segment) (int, error) {
	return m.replaceFn(ctx, segments)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- usageUseCase mock ---

type mockUsageUC struct {
	fn func(ctx context.Context, period domusage.Period) domusage.Report
}

func (m *mockUsageUC) GetReport(ctx context.Context, period domusage.Period) domusage.Report {
	return m.fn(ctx, period)
}

// --- Generator mock ---

type mockGenerator struct {
	fn func(ctx context.Context, prompt string) (Generation, error)
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (Generation, error) {
	return m.fn(ctx, prompt)
}
