package scoring

import (
	"strings"

	"github.com/kailas-cloud/segmatch/internal/domain/result"
	"github.com/kailas-cloud/segmatch/internal/domain/segment"
)

// FallbackReason is attached to every keyword-overlap score.
const FallbackReason = "Ranked by keyword overlap with the campaign description"

// Weights tunes the deterministic keyword-overlap score.
type Weights struct {
	Keyword  int `yaml:"keyword"`
	Commerce int `yaml:"commerce"`
	Active   int `yaml:"active"`
	Cap      int `yaml:"cap"`
}

// DefaultWeights returns +20 per keyword hit, +10 commerce, +5 active, capped at 100.
func DefaultWeights() Weights {
	return Weights{Keyword: 20, Commerce: 10, Active: 5, Cap: result.MaxScore}
}

// FallbackScore scores seg against keywords without the generator.
// It is a pure function of its arguments; hits is the number of keywords found.
func FallbackScore(seg *segment.Segment, keywords []string, w Weights) (score, hits int) {
	text := strings.ToLower(seg.SearchText())
	for _, k := range keywords {
		if k != "" && strings.Contains(text, strings.ToLower(k)) {
			hits++
		}
	}
	score = hits * w.Keyword
	if seg.IsCommerce() {
		score += w.Commerce
	}
	if seg.ActivelyGenerated {
		score += w.Active
	}
	limit := w.Cap
	if limit <= 0 || limit > result.MaxScore {
		limit = result.MaxScore
	}
	return min(result.ClampScore(score), limit), hits
}
