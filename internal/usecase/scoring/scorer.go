// Package scoring assigns 0-100 relevance scores to candidate segments in batches,
// falling back to keyword overlap per batch when the generator lets it down.
package scoring

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/segmatch/internal/domain/intent"
	"github.com/kailas-cloud/segmatch/internal/domain/result"
	"github.com/kailas-cloud/segmatch/internal/domain/segment"
	"github.com/kailas-cloud/segmatch/internal/logger"
	"github.com/kailas-cloud/segmatch/internal/metrics"
	"github.com/kailas-cloud/segmatch/internal/usecase/recovery"
)

// Defaults for Config zero values.
const (
	DefaultBatchSize   = 50
	DefaultConcurrency = 4
)

// Config tunes batching and the fallback heuristic.
type Config struct {
	BatchSize   int
	Concurrency int
	Weights     Weights
}

// Scorer ranks candidates against an intent.
type Scorer struct {
	gen    Generator
	parser *recovery.Parser
	cfg    Config
}

// New creates a Scorer. gen may be nil: every batch then takes the fallback.
func New(gen Generator, cfg Config) *Scorer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	return &Scorer{
		gen:    gen,
		parser: recovery.New(recovery.Schema{ArrayFields: []string{"scores"}}, metrics.ParserStages("scoring")),
		cfg:    cfg,
	}
}

// Outcome is a total ranking plus how it was produced.
type Outcome struct {
	Ranked           []result.Scored
	GeneratorBatches int
	FallbackBatches  int
	// KeywordMatches counts fallback-scored candidates with at least one keyword hit.
	KeywordMatches int
}

// AllFallback reports whether no batch was scored by the generator.
func (o Outcome) AllFallback() bool { return o.GeneratorBatches == 0 }

type batchResult struct {
	scored         []result.Scored
	fromGenerator  bool
	keywordMatches int
}

// Score never fails: a batch whose generator call or parse fails is scored by
// FallbackScore without affecting the other batches.
func (s *Scorer) Score(ctx context.Context, in intent.Intent, candidates []segment.Segment) Outcome {
	if len(candidates) == 0 {
		return Outcome{Ranked: []result.Scored{}}
	}

	size := s.cfg.BatchSize
	n := (len(candidates) + size - 1) / size
	results := make([]batchResult, n)

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i := range n {
		from := i * size
		to := min(from+size, len(candidates))
		g.Go(func() error {
			results[i] = s.scoreBatch(ctx, in, candidates[from:to], from)
			return nil
		})
	}
	_ = g.Wait() // batches never return errors

	out := Outcome{}
	all := make([]result.Scored, 0, len(candidates))
	for _, r := range results {
		all = append(all, r.scored...)
		out.KeywordMatches += r.keywordMatches
		if r.fromGenerator {
			out.GeneratorBatches++
		} else {
			out.FallbackBatches++
		}
	}
	// Completion order is arbitrary; the ranking is an explicit stable sort over catalog order.
	out.Ranked = result.Rank(all)
	return out
}

func (s *Scorer) scoreBatch(ctx context.Context, in intent.Intent, batch []segment.Segment, offset int) (br batchResult) {
	log := logger.FromContext(ctx).With(zap.Int("batch_offset", offset), zap.Int("batch_size", len(batch)))
	defer func() {
		if r := recover(); r != nil {
			log.Error("Scoring batch panicked, using fallback", zap.Any("panic", r))
			br = s.fallbackBatch(in, batch, offset, nil)
		}
		origin := result.OriginFallback
		if br.fromGenerator {
			origin = result.OriginGenerator
		}
		metrics.ScoringBatchesTotal.WithLabelValues(string(origin)).Inc()
	}()

	if s.gen == nil {
		return s.fallbackBatch(in, batch, offset, nil)
	}
	if err := ctx.Err(); err != nil {
		log.Warn("Scoring batch skipped the generator, using fallback", zap.Error(err))
		return s.fallbackBatch(in, batch, offset, nil)
	}

	gen, err := s.gen.Generate(ctx, buildPrompt(in, batch))
	if err != nil {
		log.Warn("Scoring batch generator call failed, using fallback", zap.Error(err))
		return s.fallbackBatch(in, batch, offset, nil)
	}

	res := s.parser.Parse(gen.Text)
	accepted, discarded := acceptTriples(res, batch)
	if discarded > 0 {
		metrics.ScoringHallucinatedTotal.Add(float64(discarded))
		log.Warn("Discarded scores for ids outside the batch", zap.Int("discarded", discarded))
	}
	if len(accepted) == 0 {
		log.Warn("Scoring batch response unusable, using fallback",
			zap.String("kind", res.Kind.String()),
			zap.String("parse_stage", string(res.Stage)),
		)
		return s.fallbackBatch(in, batch, offset, nil)
	}
	if missing := len(batch) - len(accepted); missing > 0 {
		log.Debug("Generator omitted candidates, scoring them by fallback", zap.Int("missing", missing))
	}
	return s.fallbackBatch(in, batch, offset, accepted)
}

// fallbackBatch scores every candidate not present in accepted by keyword overlap.
func (s *Scorer) fallbackBatch(in intent.Intent, batch []segment.Segment, offset int, accepted map[string]triple) batchResult {
	br := batchResult{scored: make([]result.Scored, 0, len(batch)), fromGenerator: len(accepted) > 0}
	for i := range batch {
		seg := batch[i]
		if t, ok := accepted[seg.ID]; ok {
			br.scored = append(br.scored, result.Scored{
				Segment:  seg,
				Score:    t.score,
				Reason:   t.reason,
				Origin:   result.OriginGenerator,
				Position: offset + i,
			})
			continue
		}
		score, hits := FallbackScore(&seg, in.Keywords, s.cfg.Weights)
		if hits > 0 {
			br.keywordMatches++
		}
		br.scored = append(br.scored, result.Scored{
			Segment:  seg,
			Score:    score,
			Reason:   FallbackReason,
			Origin:   result.OriginFallback,
			Position: offset + i,
		})
	}
	return br
}

type triple struct {
	score  int
	reason string
}

// acceptTriples keeps triples whose id belongs to batch. The first triple per id wins.
func acceptTriples(res recovery.Result, batch []segment.Segment) (map[string]triple, int) {
	items := scoreItems(res)
	if len(items) == 0 {
		return nil, 0
	}
	inBatch := make(map[string]struct{}, len(batch))
	for i := range batch {
		inBatch[batch[i].ID] = struct{}{}
	}

	accepted := make(map[string]triple, len(items))
	discarded := 0
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := firstString(obj, "id", "segment_id", "segmentId")
		score, ok := toScore(obj["score"])
		if id == "" || !ok {
			continue
		}
		if _, ok := inBatch[id]; !ok {
			discarded++
			continue
		}
		if _, dup := accepted[id]; dup {
			continue
		}
		reason, _ := obj["reason"].(string)
		accepted[id] = triple{score: score, reason: strings.TrimSpace(reason)}
	}
	return accepted, discarded
}

// scoreItems finds the triple list: a top-level array, the "scores" field,
// or the first array-valued field of an object.
func scoreItems(res recovery.Result) []any {
	if arr, ok := res.Array(); ok {
		return arr
	}
	obj, ok := res.Object()
	if !ok {
		return nil
	}
	if arr, ok := obj["scores"].([]any); ok {
		return arr
	}
	for _, v := range obj {
		if arr, ok := v.([]any); ok {
			return arr
		}
	}
	return nil
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// toScore accepts JSON numbers and numeric strings, rounding and clamping to 0-100.
func toScore(v any) (int, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%")), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Max(0, math.Min(result.MaxScore, f))
	return int(math.Round(f)), true
}

// String is used in debug logs.
func (o Outcome) String() string {
	return fmt.Sprintf("ranked=%d generator_batches=%d fallback_batches=%d keyword_matches=%d",
		len(o.Ranked), o.GeneratorBatches, o.FallbackBatches, o.KeywordMatches)
}
