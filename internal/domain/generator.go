package domain

import "context"

// KeyPrefix namespaces every key segmatch writes to the key-value store.
const KeyPrefix = "segmatch:"

// Generator is the text-completion contract shared between layers.
// Output is free text with no structural guarantee.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Generation, error)
}

// HealthChecker verifies generator availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Generation carries generated text and token usage through the decorator chain.
type Generation struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
