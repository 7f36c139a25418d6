package segment

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/segmatch/internal/domain"
	domseg "github.com/kailas-cloud/segmatch/internal/domain/segment"
)

func TestUpsertGet_RoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	want := testSegment("s-1")

	if err := repo.Upsert(ctx, []domseg.Segment{want}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// FullPath is materialised on write.
	want.FullPath = "Shopping > Pets > Dogs"
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestUpsert_OmitsAbsentScale(t *testing.T) {
	repo, ms := newTestRepo(t)
	seg := testSegment("s-1")
	if err := repo.Upsert(context.Background(), []domseg.Segment{seg}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h := ms.hashes["segmatch:segment:s-1"]
	if _, ok := h[fieldScaleHouseholds]; ok {
		t.Fatal("absent scale must not be written")
	}
	if h[fieldScalePeople] != "120000" {
		t.Fatalf("people = %q", h[fieldScalePeople])
	}
}

func TestUpsert_RejectsInvalidSnapshot(t *testing.T) {
	repo, ms := newTestRepo(t)
	segs := []domseg.Segment{testSegment("a"), testSegment("a")}

	err := repo.Upsert(context.Background(), segs)
	if !errors.Is(err, domain.ErrDuplicateSegment) {
		t.Fatalf("expected ErrDuplicateSegment, got %v", err)
	}
	if len(ms.hashes) != 0 {
		t.Fatal("nothing may be written for an invalid snapshot")
	}
}

func TestUpsert_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.setErr = errors.New("OOM")
	if err := repo.Upsert(context.Background(), []domseg.Segment{testSegment("a")}); err == nil {
		t.Fatal("expected error")
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrSegmentNotFound) {
		t.Fatalf("expected ErrSegmentNotFound, got %v", err)
	}
}

func TestGet_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.getErr = errors.New("timeout")
	_, err := repo.Get(context.Background(), "x")
	if err == nil || errors.Is(err, domain.ErrSegmentNotFound) {
		t.Fatalf("expected non-notfound error, got %v", err)
	}
}

func TestList_SortedByID(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	segs := []domseg.Segment{testSegment("b"), testSegment("c"), testSegment("a")}
	if err := repo.Upsert(ctx, segs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "c" {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestList_SkipsVanishedKeys(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hashes["segmatch:segment:gone"] = map[string]string{}
	ms.hashes["segmatch:segment:here"] = buildHashFields(&domseg.Segment{ID: "here", Name: "Here"})

	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "here" {
		t.Fatalf("unexpected list: %v", got)
	}
}

func TestList_Empty(t *testing.T) {
	repo, _ := newTestRepo(t)
	got, err := repo.List(context.Background())
	if err != nil || got != nil {
		t.Fatalf("expected nil/nil, got %v/%v", got, err)
	}
}

func TestList_ScanError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.scanErr = errors.New("conn reset")
	if _, err := repo.List(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestReplace_RemovesStale(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	if err := repo.Upsert(ctx, []domseg.Segment{testSegment("old"), testSegment("keep")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	removed, err := repo.Replace(ctx, []domseg.Segment{testSegment("keep"), testSegment("new")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := ms.hashes["segmatch:segment:old"]; ok {
		t.Fatal("stale segment still stored")
	}
	if len(ms.hashes) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(ms.hashes))
	}
}

func TestParseHashFields_Garbage(t *testing.T) {
	valid := map[string]string{fieldPrice: "1.5", fieldActive: "true", fieldTierPath: `["A"]`}
	tests := map[string]map[string]string{
		"missing price":     {},
		"garbage price":     {fieldPrice: "n/a"},
		"garbage flag":      {fieldPrice: "1", fieldActive: "maybe"},
		"garbage tier path": {fieldPrice: "1", fieldTierPath: "not json"},
		"garbage scale":     {fieldPrice: "1", fieldScaleDevices: "many"},
	}
	for name, m := range tests {
		if _, err := parseHashFields("x", m); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	s, err := parseHashFields("x", valid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ID != "x" || s.Price != 1.5 || !s.ActivelyGenerated || len(s.TierPath) != 1 {
		t.Fatalf("unexpected segment: %+v", s)
	}
}

func TestList_SkipsCorruptHashes(t *testing.T) {
	repo, ms := newTestRepo(t)
	if err := repo.Upsert(context.Background(), []domseg.Segment{testSegment("a"), testSegment("b")}); err != nil {
		t.Fatal(err)
	}
	ms.hashes[keyPrefix+"b"][fieldPrice] = "free"

	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("expected only the intact segment, got %+v", got)
	}
	if _, err := repo.Get(context.Background(), "b"); err == nil || errors.Is(err, domain.ErrSegmentNotFound) {
		t.Errorf("expected a decode error for the corrupt segment, got %v", err)
	}
}
