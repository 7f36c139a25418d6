package metrics

import "github.com/prometheus/client_golang/prometheus"

// Relevance pipeline metrics.
var (
	// ParserStagesTotal counts which recovery stage produced each parse.
	// Callers curry the "parser" label and hand the vec to the parser.
	ParserStagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "segmatch",
			Name:      "parser_stages_total",
			Help:      "Structured-response recovery results by stage",
		},
		[]string{"parser", "stage"},
	)

	IntentExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "segmatch",
			Name:      "intent_extractions_total",
			Help:      "Intent extractions by origin",
		},
		[]string{"origin"}, // "generator" / "fallback"
	)

	ScoringBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "segmatch",
			Name:      "scoring_batches_total",
			Help:      "Scoring batches by origin",
		},
		[]string{"origin"},
	)

	ScoringHallucinatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "segmatch",
			Name:      "scoring_discarded_triples_total",
			Help:      "Scored triples discarded for referencing ids outside their batch",
		},
	)

	EnrichmentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "segmatch",
			Name:      "enrichment_total",
			Help:      "Card enrichment outcomes",
		},
		[]string{"outcome"}, // "enriched" / "empty" / "skipped" / "error"
	)

	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "segmatch",
			Name:      "response_cache_total",
			Help:      "Response cache lookups",
		},
		[]string{"result"}, // "hit" / "miss" / "error"
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "segmatch",
			Name:      "search_requests_total",
			Help:      "Pipeline searches by confidence",
		},
		[]string{"confidence", "cached"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers relevance pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		ParserStagesTotal,
		IntentExtractionsTotal,
		ScoringBatchesTotal,
		ScoringHallucinatedTotal,
		EnrichmentTotal,
		CacheLookupsTotal,
		SearchRequestsTotal,
	)
	pipelineMetricsRegistered = true
}

// ParserStages returns the stage counter for one named parser.
func ParserStages(parser string) *prometheus.CounterVec {
	return ParserStagesTotal.MustCurryWith(prometheus.Labels{"parser": parser})
}
