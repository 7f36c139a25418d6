// Package filter holds the caller-supplied hard constraints applied before scoring.
package filter

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/kailas-cloud/segmatch/internal/domain"
	"github.com/kailas-cloud/segmatch/internal/domain/segment"
)

// Set is a conjunction of optional constraints. A nil field does not constrain.
type Set struct {
	Type     *segment.Type `json:"type,omitempty"`
	MaxPrice *float64      `json:"max_price,omitempty"`
	MinScale *float64      `json:"min_scale,omitempty"`
	Active   *bool         `json:"active,omitempty"`
}

// Validate rejects malformed constraints.
func (s Set) Validate() error {
	if s.Type != nil && !s.Type.IsValid() {
		return domain.NewFilterError("type", "unknown segment type "+string(*s.Type))
	}
	if err := checkBound("max_price", s.MaxPrice); err != nil {
		return err
	}
	return checkBound("min_scale", s.MinScale)
}

func checkBound(field string, v *float64) error {
	switch {
	case v == nil:
		return nil
	case math.IsNaN(*v) || math.IsInf(*v, 0):
		return domain.NewFilterError(field, "must be a finite number")
	case *v < 0:
		return domain.NewFilterError(field, "must be >= 0")
	}
	return nil
}

// IsEmpty reports whether no constraint is set.
func (s Set) IsEmpty() bool {
	return s.Type == nil && s.MaxPrice == nil && s.MinScale == nil && s.Active == nil
}

// Matches reports whether seg satisfies every present constraint.
// The scale floor is met when any methodology reaches it.
func (s Set) Matches(seg *segment.Segment) bool {
	if s.Type != nil && seg.Type != *s.Type {
		return false
	}
	if s.MaxPrice != nil && seg.Price > *s.MaxPrice {
		return false
	}
	if s.Active != nil && seg.ActivelyGenerated != *s.Active {
		return false
	}
	if s.MinScale != nil {
		reached := false
		for _, v := range seg.Scale.Signals() {
			if v >= *s.MinScale {
				reached = true
				break
			}
		}
		if !reached {
			return false
		}
	}
	return true
}

// Apply returns the catalog subset matching s, preserving catalog order.
func (s Set) Apply(catalog []segment.Segment) []segment.Segment {
	out := make([]segment.Segment, 0, len(catalog))
	for i := range catalog {
		if s.Matches(&catalog[i]) {
			out = append(out, catalog[i])
		}
	}
	return out
}

// Canonical is the serialized form used for exact cache-key equality.
// Struct field order makes it deterministic. Non-finite bounds have no
// serialized form and are an error.
func (s Set) Canonical() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("canonical filter set: %w", err)
	}
	return string(data), nil
}

// Equal reports deep equality of the serialized forms. Sets without a
// canonical form are never equal.
func (s Set) Equal(other Set) bool {
	a, err := s.Canonical()
	if err != nil {
		return false
	}
	b, err := other.Canonical()
	return err == nil && a == b
}
