// Package usage describes generator token consumption reports.
package usage

import "time"

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// ParsePeriod maps a query value to a Period. Unknown or empty values mean month.
func ParsePeriod(s string) Period {
	switch Period(s) {
	case PeriodDay, PeriodTotal:
		return Period(s)
	}
	return PeriodMonth
}

// Budget is the token budget state for a period. A zero Limit means unlimited.
type Budget struct {
	Limit     int64      `json:"tokens_limit"`
	Remaining int64      `json:"tokens_remaining"`
	Exhausted bool       `json:"is_exhausted"`
	ResetsAt  *time.Time `json:"resets_at,omitempty"`
}

// Report is generator usage for a time period.
type Report struct {
	Period      Period     `json:"period"`
	PeriodStart *time.Time `json:"period_start_at,omitempty"`
	PeriodEnd   *time.Time `json:"period_end_at,omitempty"`
	Provider    string     `json:"provider,omitempty"`
	Tokens      int64      `json:"tokens"`
	Budget      Budget     `json:"budget"`
}

// NewBudget builds a budget snapshot. Negative limit or remaining values mean unlimited.
func NewBudget(limit, remaining int64, resetsAt *time.Time) Budget {
	if limit <= 0 {
		return Budget{}
	}
	if remaining < 0 {
		remaining = 0
	}
	return Budget{
		Limit:     limit,
		Remaining: remaining,
		Exhausted: remaining == 0,
		ResetsAt:  resetsAt,
	}
}
