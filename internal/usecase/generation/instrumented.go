package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/segmatch/internal/domain"
	"github.com/kailas-cloud/segmatch/internal/metrics"
)

// Instrumented wraps a Generator with a per-call deadline, budget enforcement and logging.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type Instrumented struct {
	inner    domain.Generator
	provider string
	model    string
	timeout  time.Duration
	budget   BudgetChecker
	logger   *zap.Logger
}

// NewInstrumented wraps inner. budget may be nil; a zero timeout disables the deadline.
func NewInstrumented(
	inner domain.Generator, provider, model string,
	timeout time.Duration, budget BudgetChecker, logger *zap.Logger,
) *Instrumented {
	return &Instrumented{
		inner:    inner,
		provider: provider,
		model:    model,
		timeout:  timeout,
		budget:   budget,
		logger:   logger,
	}
}

// Generate checks the budget, bounds the call by the timeout and records usage.
// A deadline hit is reported as domain.ErrGeneratorTimeout.
func (g *Instrumented) Generate(ctx context.Context, prompt string) (domain.Generation, error) {
	if g.budget != nil {
		if err := g.budget.Check(ctx); err != nil {
			g.logger.Warn("Generator budget exhausted",
				zap.String("provider", g.provider),
				zap.String("model", g.model),
				zap.Error(err),
			)
			return domain.Generation{}, fmt.Errorf("budget check: %w", err)
		}
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	gen, err := g.inner.Generate(callCtx, prompt)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w after %s: %w", domain.ErrGeneratorTimeout, g.timeout, err)
		}
		g.logger.Warn("Generation failed",
			zap.String("provider", g.provider),
			zap.String("model", g.model),
			zap.Duration("duration", duration),
			zap.Int("prompt_chars", len(prompt)),
			zap.Error(err),
		)
		return domain.Generation{}, fmt.Errorf("generate: %w", err)
	}

	if g.budget != nil && gen.TotalTokens > 0 {
		g.budget.Record(int64(gen.TotalTokens))
		remaining := metrics.GeneratorBudgetTokensRemaining
		remaining.WithLabelValues(g.provider, "daily").Set(float64(g.budget.RemainingDaily()))
		remaining.WithLabelValues(g.provider, "monthly").Set(float64(g.budget.RemainingMonthly()))
	}

	g.logger.Debug("Generation completed",
		zap.String("provider", g.provider),
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", gen.PromptTokens),
		zap.Int("completion_tokens", gen.CompletionTokens),
		zap.Int("output_chars", len(gen.Text)),
	)
	return gen, nil
}
