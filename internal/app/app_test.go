package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/segmatch/internal/config"
	healthuc "github.com/kailas-cloud/segmatch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/segmatch/internal/usecase/search"
)

const catalogYAML = `segments:
  - id: "1"
    name: Pet Owners
    description: Households with a dog or cat.
    type: interest
    actively_generated: true
  - id: "2"
    name: Pet Food Buyers
    description: Purchased premium pet food.
    type: commerce-audience
    price: 2.5
    actively_generated: true
behavior:
  - {audience_name: Pet Food Buyers, location_key: US-TX, weight: 3}
  - {audience_name: Pet Food Buyers, location_key: US-CA, weight: 1}
`

func fileConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(catalogYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		HTTP:     config.HTTPConfig{Port: 8080},
		Catalog:  config.CatalogConfig{Source: config.SourceFile, File: path},
		Behavior: config.BehaviorConfig{Source: config.SourceFile},
		Cache:    config.CacheConfig{Backend: config.CacheMemory},
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func TestBuild_FileBackedPipeline(t *testing.T) {
	a, err := Build(context.Background(), fileConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	if a.Store != nil || a.Postgres != nil || a.Segments != nil {
		t.Fatal("file-backed config must not open connections")
	}

	set, err := a.Search.Search(context.Background(), searchuc.Request{Query: "pet food"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if set.TotalCandidates != 2 {
		t.Fatalf("expected 2 candidates, got %d", set.TotalCandidates)
	}
	if set.Size() != 2 {
		t.Fatalf("expected both segments ranked, got %d", set.Size())
	}
	if set.Degraded {
		t.Fatal("keyword matches must keep the set out of degraded mode")
	}

	card, err := a.Search.GetSegmentDetails(context.Background(), "2")
	if err != nil {
		t.Fatalf("GetSegmentDetails: %v", err)
	}
	if len(card.Geographic) == 0 || card.Geographic[0].LocationKey != "US-TX" {
		t.Fatalf("expected geographic insights led by US-TX, got %+v", card.Geographic)
	}
}

func TestBuild_NoComponentsIsHealthy(t *testing.T) {
	a, err := Build(context.Background(), fileConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	report := a.Health.Check(context.Background())
	if report.Status != healthuc.Healthy {
		t.Fatalf("expected healthy, got %+v", report)
	}
	if len(report.Checks) != 0 {
		t.Fatalf("expected no checks, got %v", report.Checks)
	}
}

func TestBuild_MissingCatalogFile(t *testing.T) {
	cfg := fileConfig(t)
	cfg.Catalog.File = filepath.Join(t.TempDir(), "missing.yaml")
	cfg.Behavior.Source = config.SourceNone

	if _, err := Build(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for missing catalog file")
	}
}
