// Package flatfile serves the catalog and behavioral records from a YAML snapshot.
package flatfile

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/segmatch/internal/domain"
	dombeh "github.com/kailas-cloud/segmatch/internal/domain/behavior"
	domseg "github.com/kailas-cloud/segmatch/internal/domain/segment"
)

// Document is the on-disk layout.
type Document struct {
	Segments []domseg.Segment `yaml:"segments"`
	Behavior []dombeh.Record  `yaml:"behavior"`
}

// Store is an immutable in-memory snapshot. Safe for concurrent use.
type Store struct {
	segments []domseg.Segment
	byID     map[string]int
	behavior map[string][]dombeh.Record
}

// Load reads and validates a snapshot file.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Decode parses a snapshot. Segments keep file order; behavior is sorted by weight descending.
func Decode(r io.Reader) (*Store, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	return New(doc)
}

// New builds a store from an in-memory document.
func New(doc Document) (*Store, error) {
	if err := domseg.ValidateCatalog(doc.Segments); err != nil {
		return nil, err
	}

	s := &Store{
		segments: doc.Segments,
		byID:     make(map[string]int, len(doc.Segments)),
		behavior: make(map[string][]dombeh.Record),
	}
	for i := range doc.Segments {
		s.byID[doc.Segments[i].ID] = i
	}
	for _, rec := range doc.Behavior {
		if rec.AudienceName == "" {
			return nil, fmt.Errorf("%w: behavior record without audience_name", domain.ErrInvalidSegment)
		}
		s.behavior[rec.AudienceName] = append(s.behavior[rec.AudienceName], rec)
	}
	for _, recs := range s.behavior {
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Weight > recs[j].Weight })
	}
	return s, nil
}

// List returns a copy of the catalog in file order.
func (s *Store) List(_ context.Context) ([]domseg.Segment, error) {
	out := make([]domseg.Segment, len(s.segments))
	copy(out, s.segments)
	return out, nil
}

// Get returns one segment or domain.ErrSegmentNotFound.
func (s *Store) Get(_ context.Context, id string) (domseg.Segment, error) {
	i, ok := s.byID[id]
	if !ok {
		return domseg.Segment{}, fmt.Errorf("%s: %w", id, domain.ErrSegmentNotFound)
	}
	return s.segments[i], nil
}

// LookupByAudienceName returns up to limit records, heaviest first.
func (s *Store) LookupByAudienceName(_ context.Context, name string, limit int) ([]dombeh.Record, error) {
	recs := s.behavior[name]
	if limit >= 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	out := make([]dombeh.Record, len(recs))
	copy(out, recs)
	return out, nil
}

// Segments exposes the snapshot for bulk import.
func (s *Store) Segments() []domseg.Segment {
	out := make([]domseg.Segment, len(s.segments))
	copy(out, s.segments)
	return out
}
