package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/segmatch/internal/domain/usage"
)

// Service handles generator usage reporting.
type Service struct {
	br       BudgetReader
	provider string
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service. br can be nil (no budget configured, nothing tracked).
func New(br BudgetReader, provider string, opts ...Option) *Service {
	s := &Service{br: br, provider: provider, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetReport builds a usage report for the period. Total reuses the monthly counter.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := s.now().UTC()
	r := domusage.Report{Period: period, Provider: s.provider}

	var limit, used, remaining int64
	var end *time.Time

	switch period {
	case domusage.PeriodDay:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		stop := start.Add(24 * time.Hour)
		r.PeriodStart, r.PeriodEnd, end = &start, &stop, &stop
		if s.br != nil {
			limit, used, remaining = s.br.DailyLimit(), s.br.DailyUsed(), s.br.RemainingDaily()
		}
	case domusage.PeriodMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		stop := start.AddDate(0, 1, 0)
		r.PeriodStart, r.PeriodEnd, end = &start, &stop, &stop
		fallthrough
	default:
		if s.br != nil {
			limit, used, remaining = s.br.MonthlyLimit(), s.br.MonthlyUsed(), s.br.RemainingMonthly()
		}
	}

	r.Tokens = used
	r.Budget = domusage.NewBudget(limit, remaining, end)
	return r
}
