// Package intent turns a campaign query into a normalized intent record.
package intent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	domintent "github.com/kailas-cloud/segmatch/internal/domain/intent"
	"github.com/kailas-cloud/segmatch/internal/logger"
	"github.com/kailas-cloud/segmatch/internal/metrics"
	"github.com/kailas-cloud/segmatch/internal/usecase/recovery"
)

// DefaultMaxHistory bounds how many prior turns go into the prompt.
const DefaultMaxHistory = 6

// Extractor asks the generator for an intent and falls back to the raw query.
type Extractor struct {
	gen        Generator
	parser     *recovery.Parser
	maxHistory int
}

// New creates an Extractor. gen may be nil, in which case every query takes the fallback.
func New(gen Generator, maxHistory int) *Extractor {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Extractor{
		gen: gen,
		parser: recovery.New(recovery.Schema{
			ArrayFields:  []string{"keywords", "target_audience"},
			StringFields: []string{"category", "demographic", "goal"},
		}, metrics.ParserStages("intent")),
		maxHistory: maxHistory,
	}
}

// extracted is the loose shape the generator is asked for. Lists may come back as
// comma-separated strings, so they are decoded as any.
type extracted struct {
	Category       string `json:"category"`
	Demographic    string `json:"demographic"`
	Goal           string `json:"goal"`
	Keywords       any    `json:"keywords"`
	TargetAudience any    `json:"target_audience"`
}

// Extract never fails. The second return reports whether the generator contributed.
func (e *Extractor) Extract(ctx context.Context, query string, history []domintent.Turn) (domintent.Intent, bool) {
	log := logger.FromContext(ctx)
	fallback := domintent.Fallback(query)
	if e.gen == nil {
		metrics.IntentExtractionsTotal.WithLabelValues("fallback").Inc()
		return fallback, false
	}

	gen, err := e.gen.Generate(ctx, buildPrompt(query, history, e.maxHistory))
	if err != nil {
		log.Warn("Intent extraction failed, using query fallback", zap.Error(err))
		metrics.IntentExtractionsTotal.WithLabelValues("fallback").Inc()
		return fallback, false
	}

	res := e.parser.Parse(gen.Text)
	raw, ok := recovery.Decode[extracted](res)
	if !ok {
		log.Warn("Intent response not structured, using query fallback",
			zap.String("kind", res.Kind.String()),
			zap.Int("response_chars", len(gen.Text)),
		)
		metrics.IntentExtractionsTotal.WithLabelValues("fallback").Inc()
		return fallback, false
	}

	in := domintent.Intent{
		Category:       strings.TrimSpace(raw.Category),
		Demographic:    strings.TrimSpace(raw.Demographic),
		Goal:           strings.TrimSpace(raw.Goal),
		Keywords:       domintent.NormalizeKeywords(stringList(raw.Keywords)),
		TargetAudience: trimmedList(stringList(raw.TargetAudience)),
	}
	if in.Category == "" && len(in.Keywords) == 0 {
		log.Warn("Intent response carried no category or keywords, using query fallback")
		metrics.IntentExtractionsTotal.WithLabelValues("fallback").Inc()
		return fallback, false
	}
	// Fill whichever half is missing from the query itself.
	if in.Category == "" {
		in.Category = fallback.Category
	}
	if len(in.Keywords) == 0 {
		in.Keywords = fallback.Keywords
	}

	log.Debug("Intent extracted",
		zap.String("category", in.Category),
		zap.Strings("keywords", in.Keywords),
		zap.String("parse_stage", string(res.Stage)),
	)
	metrics.IntentExtractionsTotal.WithLabelValues("generator").Inc()
	return in, true
}

// stringList accepts a JSON array of strings or a comma-separated string.
func stringList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return strings.Split(t, ",")
	default:
		return nil
	}
}

func trimmedList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
