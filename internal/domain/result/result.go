// Package result holds the per-request ranking, tiering and enrichment types.
package result

import (
	"sort"

	"github.com/kailas-cloud/segmatch/internal/domain/segment"
)

// MaxScore is the upper bound of a relevance score.
const MaxScore = 100

// Origin records which scoring path produced a score.
type Origin string

// Scoring origins.
const (
	OriginGenerator Origin = "generator"
	OriginFallback  Origin = "fallback"
	OriginDirect    Origin = "direct"
)

// Confidence is the caller-facing quality indicator of a result set.
type Confidence string

// Confidence levels.
const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// Scored pairs a segment with a 0-100 relevance score and a short reason.
type Scored struct {
	Segment segment.Segment `json:"segment"`
	Score   int             `json:"score"`
	Reason  string          `json:"reason"`
	Origin  Origin          `json:"origin"`
	// Position is the segment's index in the filtered catalog, used as the tie-breaker.
	Position int `json:"position"`
}

// ClampScore bounds v to [0, MaxScore].
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// Rank returns a copy sorted by score descending, ties by catalog position.
func Rank(scored []Scored) []Scored {
	out := make([]Scored, len(scored))
	copy(out, scored)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Position < out[j].Position
	})
	return out
}

// BehavioralInsight summarizes behavioral records associated with a segment.
type BehavioralInsight struct {
	Signal        string  `json:"signal"`
	Records       int     `json:"records"`
	TotalWeight   float64 `json:"total_weight"`
	AverageWeight float64 `json:"average_weight"`
	Summary       string  `json:"summary"`
}

// GeoInsight is one geographic concentration group.
type GeoInsight struct {
	LocationKey string  `json:"location_key"`
	Records     int     `json:"records"`
	TotalWeight float64 `json:"total_weight"`
	// IndexRatio is the group's mean weight over the overall mean weight, times 100.
	IndexRatio float64 `json:"index_ratio"`
}

// Card is a scored candidate plus cross-signal context.
type Card struct {
	Scored
	Behavioral  []BehavioralInsight `json:"behavioral_insights"`
	Geographic  []GeoInsight        `json:"geographic_insights"`
	DataSources []string            `json:"data_sources"`
}

// Set is the categorized result set returned to callers.
type Set struct {
	Query           string     `json:"query"`
	BestFit         []Card     `json:"best_fit"`
	HighValue       []Card     `json:"high_value"`
	Related         []Card     `json:"related"`
	TotalCandidates int        `json:"total_candidates"`
	Confidence      Confidence `json:"confidence"`
	Degraded        bool       `json:"degraded"`
}

// Size returns the number of cards across all tiers.
func (s *Set) Size() int { return len(s.BestFit) + len(s.HighValue) + len(s.Related) }
