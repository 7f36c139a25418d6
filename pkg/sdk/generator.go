package segmatch

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/segmatch/internal/domain"
)

// Generator completes a prompt with free text. Output needs no structure:
// the pipeline recovers what it can and falls back to keyword scoring otherwise.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Generation, error)
}

// Generation carries the generated text and token counts.
type Generation struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// generatorAdapter wraps a public Generator to satisfy domain.Generator.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Generate(ctx context.Context, prompt string) (domain.Generation, error) {
	g, err := a.inner.Generate(ctx, prompt)
	if err != nil {
		return domain.Generation{}, fmt.Errorf("%w: %w", domain.ErrGeneratorFailure, err)
	}
	return domain.Generation{
		Text:             g.Text,
		PromptTokens:     g.PromptTokens,
		CompletionTokens: g.CompletionTokens,
		TotalTokens:      g.TotalTokens,
	}, nil
}
