package segmatch

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/segmatch/internal/domain/usage"
)

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
	PeriodTotal UsagePeriod = "total"
)

// UsageReport contains generator token usage for a time period.
// PeriodStart and PeriodEnd are zero for PeriodTotal.
type UsageReport struct {
	Period      UsagePeriod
	PeriodStart time.Time
	PeriodEnd   time.Time
	Tokens      int64
	Budget      BudgetStatus
}

// BudgetStatus tracks token quota state. A zero TokensLimit means unlimited.
type BudgetStatus struct {
	TokensLimit     int64
	TokensRemaining int64
	IsExhausted     bool
	ResetsAt        time.Time
}

// Usage returns a generator usage report for the given period.
// Observer always records success: the underlying use-case is in-memory
// and does not produce errors.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) UsageReport {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, nil) }()

	report := c.usageSvc.GetReport(ctx, domusage.ParsePeriod(string(period)))
	return UsageReport{
		Period:      UsagePeriod(report.Period),
		PeriodStart: deref(report.PeriodStart),
		PeriodEnd:   deref(report.PeriodEnd),
		Tokens:      report.Tokens,
		Budget: BudgetStatus{
			TokensLimit:     report.Budget.Limit,
			TokensRemaining: report.Budget.Remaining,
			IsExhausted:     report.Budget.Exhausted,
			ResetsAt:        deref(report.Budget.ResetsAt),
		},
	}
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// usageUseCase is the internal interface for usage reports.
type usageUseCase interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}
