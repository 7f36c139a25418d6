package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentDatabase  = "database"
	ComponentPostgres  = "postgres"
	ComponentGenerator = "generator"
)

// DefaultTimeout bounds each individual check.
const DefaultTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks. Unconfigured components are not reported.
type Service struct {
	checks  map[string]func(ctx context.Context) error
	timeout time.Duration
}

// New creates a Service. Any argument can be nil.
func New(db Pinger, generator GeneratorChecker) *Service {
	s := &Service{checks: make(map[string]func(ctx context.Context) error), timeout: DefaultTimeout}
	if db != nil {
		s.checks[ComponentDatabase] = db.Ping
	}
	if generator != nil {
		s.checks[ComponentGenerator] = generator.HealthCheck
	}
	return s
}

// WithPostgres adds the Postgres behavioral dataset check.
func (s *Service) WithPostgres(p Pinger) *Service {
	if p != nil {
		s.checks[ComponentPostgres] = p.Ping
	}
	return s
}

// Check runs all checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(s.checks))
	)

	var g errgroup.Group
	for name, fn := range s.checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			res := CheckOK
			if err := fn(cctx); err != nil {
				res = CheckError
			}
			mu.Lock()
			checks[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	return Report{Status: status, Checks: checks}
}
