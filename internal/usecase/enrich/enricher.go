// Package enrich attaches behavioral and geographic context to ranked segments.
package enrich

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/segmatch/internal/domain/behavior"
	"github.com/kailas-cloud/segmatch/internal/domain/result"
	"github.com/kailas-cloud/segmatch/internal/logger"
	"github.com/kailas-cloud/segmatch/internal/metrics"
)

// Labels names the data sources reported on each card.
type Labels struct {
	Catalog    string `yaml:"catalog"`
	Behavioral string `yaml:"behavioral"`
	Geographic string `yaml:"geographic"`
}

// Config tunes enrichment.
type Config struct {
	Labels      Labels
	LookupLimit int
	TopGeo      int
	Concurrency int
}

// DefaultConfig returns the stock labels, a 500-record lookup, top 3 regions and 8 workers.
func DefaultConfig() Config {
	return Config{
		Labels: Labels{
			Catalog:    "segment-catalog",
			Behavioral: "behavioral-signals",
			Geographic: "geographic-concentration",
		},
		LookupLimit: 500,
		TopGeo:      3,
		Concurrency: 8,
	}
}

// Enricher builds cards. Each segment is enriched independently.
type Enricher struct {
	dataset Dataset
	cfg     Config
}

// New creates an Enricher. dataset may be nil: cards then carry the catalog label only.
func New(dataset Dataset, cfg Config) *Enricher {
	def := DefaultConfig()
	if cfg.Labels.Catalog == "" {
		cfg.Labels.Catalog = def.Labels.Catalog
	}
	if cfg.Labels.Behavioral == "" {
		cfg.Labels.Behavioral = def.Labels.Behavioral
	}
	if cfg.Labels.Geographic == "" {
		cfg.Labels.Geographic = def.Labels.Geographic
	}
	if cfg.LookupLimit <= 0 {
		cfg.LookupLimit = def.LookupLimit
	}
	if cfg.TopGeo <= 0 {
		cfg.TopGeo = def.TopGeo
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	return &Enricher{dataset: dataset, cfg: cfg}
}

// Enrich returns one card per scored segment, in input order.
// A failing segment yields a bare card and never affects the others.
func (e *Enricher) Enrich(ctx context.Context, scored []result.Scored) []result.Card {
	cards := make([]result.Card, len(scored))
	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i := range scored {
		g.Go(func() error {
			cards[i] = e.Card(ctx, scored[i])
			return nil
		})
	}
	_ = g.Wait() // Card absorbs every failure
	return cards
}

// Card enriches a single segment.
func (e *Enricher) Card(ctx context.Context, s result.Scored) (card result.Card) {
	log := logger.FromContext(ctx).With(zap.String("segment_id", s.Segment.ID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("Enrichment panicked, returning bare card", zap.Any("panic", r))
			metrics.EnrichmentTotal.WithLabelValues("error").Inc()
			card = e.bare(s)
		}
	}()

	if e.dataset == nil || !s.Segment.IsCommerce() {
		metrics.EnrichmentTotal.WithLabelValues("skipped").Inc()
		return e.bare(s)
	}

	records, err := e.dataset.LookupByAudienceName(ctx, s.Segment.Name, e.cfg.LookupLimit)
	if err != nil {
		log.Warn("Behavioral lookup failed, returning bare card", zap.Error(err))
		metrics.EnrichmentTotal.WithLabelValues("error").Inc()
		return e.bare(s)
	}
	if len(records) == 0 {
		metrics.EnrichmentTotal.WithLabelValues("empty").Inc()
		return e.bare(s)
	}

	card = e.bare(s)
	card.Behavioral = []result.BehavioralInsight{behavioralInsight(s.Segment.Name, records)}
	card.Geographic = geoConcentration(records, e.cfg.TopGeo)
	card.DataSources = e.sources(card)
	metrics.EnrichmentTotal.WithLabelValues("enriched").Inc()
	return card
}

func (e *Enricher) bare(s result.Scored) result.Card {
	return result.Card{
		Scored:      s,
		Behavioral:  []result.BehavioralInsight{},
		Geographic:  []result.GeoInsight{},
		DataSources: []string{e.cfg.Labels.Catalog},
	}
}

// sources lists the catalog label plus a label per non-empty insight type.
func (e *Enricher) sources(c result.Card) []string {
	out := []string{e.cfg.Labels.Catalog}
	if len(c.Behavioral) > 0 {
		out = append(out, e.cfg.Labels.Behavioral)
	}
	if len(c.Geographic) > 0 {
		out = append(out, e.cfg.Labels.Geographic)
	}
	return out
}

func behavioralInsight(name string, records []behavior.Record) result.BehavioralInsight {
	total := 0.0
	for _, r := range records {
		total += r.Weight
	}
	avg := total / float64(len(records))
	return result.BehavioralInsight{
		Signal:        "co-purchase",
		Records:       len(records),
		TotalWeight:   total,
		AverageWeight: round2(avg),
		Summary: fmt.Sprintf("%d behavioral records linked to %q, average weight %.2f",
			len(records), name, avg),
	}
}
