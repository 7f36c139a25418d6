// Package openai implements domain.Generator over an OpenAI-compatible chat completion API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/segmatch/internal/domain"
	"github.com/kailas-cloud/segmatch/internal/metrics"
)

// DefaultSystemPrompt frames every request.
const DefaultSystemPrompt = "You are an audience planning assistant for digital advertising. " +
	"Answer with JSON only when JSON is requested."

// Generator is a text generator using the OpenAI-compatible API (OpenAI, Nebius, vLLM).
type Generator struct {
	client       *openai.Client
	model        string
	temperature  float32
	maxTokens    int
	systemPrompt string
	user         string
	provider     string
	logger       *zap.Logger
}

// Config holds the generator provider settings.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	Temperature  float32
	MaxTokens    int
	SystemPrompt string
	User         string
	Provider     string
	Logger       *zap.Logger
}

// NewGenerator creates an OpenAI-compatible text generator.
func NewGenerator(cfg *Config) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	system := cfg.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		systemPrompt: system,
		user:         cfg.User,
		provider:     cfg.Provider,
		logger:       logger,
	}
}

// Generate implements domain.Generator. Every failure wraps domain.ErrGeneratorFailure.
func (g *Generator) Generate(ctx context.Context, prompt string) (domain.Generation, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		User:        g.user,
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		g.fail("api_error")
		if ctxErr := ctx.Err(); ctxErr != nil {
			// Keep deadline/cancel visible to the timeout decorator.
			return domain.Generation{}, fmt.Errorf("%w: %w", domain.ErrGeneratorFailure, ctxErr)
		}
		return domain.Generation{}, parseAPIError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		g.fail("empty_response")
		return domain.Generation{}, fmt.Errorf("empty completion: %w", domain.ErrGeneratorFailure)
	}

	metrics.GeneratorRequestsTotal.WithLabelValues(g.provider, g.model, "success").Inc()
	metrics.GeneratorRequestDuration.WithLabelValues(g.provider, g.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.GeneratorTokensTotal.WithLabelValues(g.provider, g.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.GeneratorTokensTotal.WithLabelValues(g.provider, g.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	if resp.Choices[0].FinishReason == openai.FinishReasonLength {
		g.logger.Warn("completion truncated by max_tokens",
			zap.String("model", g.model),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		)
	}

	return domain.Generation{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (g *Generator) fail(kind string) {
	metrics.GeneratorRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
	metrics.GeneratorErrorsTotal.WithLabelValues(g.provider, g.model, kind).Inc()
}

// parseAPIError extracts a readable message and wraps domain.ErrGeneratorFailure.
func parseAPIError(err error) error {
	wrap := domain.ErrGeneratorFailure

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("generator API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("generator API error %d: %w", reqErr.HTTPStatusCode, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("generator API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("generator request failed: %w", wrap)
}

// extractDetail reads the "detail" field some compatible providers return instead of "error".
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		return parsed.Detail
	}
	return ""
}
