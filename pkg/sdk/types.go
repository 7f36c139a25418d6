package segmatch

import (
	"github.com/kailas-cloud/segmatch/internal/domain/behavior"
	"github.com/kailas-cloud/segmatch/internal/domain/filter"
	"github.com/kailas-cloud/segmatch/internal/domain/intent"
	"github.com/kailas-cloud/segmatch/internal/domain/result"
	"github.com/kailas-cloud/segmatch/internal/domain/segment"
)

// Catalog and result types shared with the server.
type (
	Segment        = segment.Segment
	SegmentType    = segment.Type
	Scale          = segment.Scale
	Filters        = filter.Set
	Turn           = intent.Turn
	ResultSet      = result.Set
	Card           = result.Card
	Confidence     = result.Confidence
	BehaviorRecord = behavior.Record
)

// Segment type constants.
const (
	TypeCommerceAudience = segment.TypeCommerceAudience
	TypeInterest         = segment.TypeInterest
)

// Confidence levels.
const (
	ConfidenceHigh = result.ConfidenceHigh
	ConfidenceLow  = result.ConfidenceLow
)

// Float returns a pointer to v, for optional filter fields.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v, for optional filter fields.
func Bool(v bool) *bool { return &v }

// Type returns a pointer to t, for optional filter fields.
func Type(t SegmentType) *SegmentType { return &t }
