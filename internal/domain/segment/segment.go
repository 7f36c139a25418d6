// Package segment defines the targetable audience/inventory unit ranked by the pipeline.
package segment

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/segmatch/internal/domain"
)

// MaxTierDepth is the maximum number of labels in a tier path.
const MaxTierDepth = 6

// Type enumerates segment kinds.
type Type string

// Segment type constants.
const (
	TypeCommerceAudience Type = "commerce-audience"
	TypeInterest         Type = "interest"
)

// IsValid reports whether t is a known segment type.
func (t Type) IsValid() bool {
	switch t {
	case TypeCommerceAudience, TypeInterest:
		return true
	}
	return false
}

// Scale holds optional reach estimates, one per measurement methodology.
type Scale struct {
	People     *float64 `json:"people,omitempty" yaml:"people,omitempty"`
	Households *float64 `json:"households,omitempty" yaml:"households,omitempty"`
	Devices    *float64 `json:"devices,omitempty" yaml:"devices,omitempty"`
	Cookies    *float64 `json:"cookies,omitempty" yaml:"cookies,omitempty"`
}

// Signals returns the present reach estimates in a fixed methodology order.
func (s Scale) Signals() []float64 {
	out := make([]float64, 0, 4)
	for _, v := range []*float64{s.People, s.Households, s.Devices, s.Cookies} {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// Segment is a named, typed audience or inventory unit.
type Segment struct {
	ID                string   `json:"id" yaml:"id"`
	ParentID          string   `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Name              string   `json:"name" yaml:"name"`
	Description       string   `json:"description" yaml:"description"`
	Type              Type     `json:"type" yaml:"type"`
	Price             float64  `json:"price" yaml:"price"`
	Scale             Scale    `json:"scale" yaml:"scale"`
	ActivelyGenerated bool     `json:"actively_generated" yaml:"actively_generated"`
	TierPath          []string `json:"tier_path,omitempty" yaml:"tier_path,omitempty"`
	FullPath          string   `json:"full_path" yaml:"full_path"`
}

// Validate checks catalog invariants.
func (s *Segment) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: id is required", domain.ErrInvalidSegment)
	}
	if s.Price < 0 {
		return fmt.Errorf("%w: %s: price must be >= 0", domain.ErrInvalidSegment, s.ID)
	}
	if len(s.TierPath) > MaxTierDepth {
		return fmt.Errorf("%w: %s: tier path depth %d exceeds %d",
			domain.ErrInvalidSegment, s.ID, len(s.TierPath), MaxTierDepth)
	}
	if s.Type != "" && !s.Type.IsValid() {
		return fmt.Errorf("%w: %s: unknown type %q", domain.ErrInvalidSegment, s.ID, s.Type)
	}
	return nil
}

// Path returns FullPath, deriving it from TierPath when it was not precomputed.
func (s *Segment) Path() string {
	if s.FullPath != "" {
		return s.FullPath
	}
	return strings.Join(s.TierPath, " > ")
}

// SearchText is the combined name, description and path used for keyword matching.
func (s *Segment) SearchText() string {
	return s.Name + " " + s.Description + " " + s.Path()
}

// IsCommerce reports whether the segment is a commerce audience.
func (s *Segment) IsCommerce() bool { return s.Type == TypeCommerceAudience }

// ValidateCatalog checks every segment and rejects duplicate ids within one snapshot.
func ValidateCatalog(segments []Segment) error {
	seen := make(map[string]struct{}, len(segments))
	for i := range segments {
		if err := segments[i].Validate(); err != nil {
			return err
		}
		if _, dup := seen[segments[i].ID]; dup {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateSegment, segments[i].ID)
		}
		seen[segments[i].ID] = struct{}{}
	}
	return nil
}
