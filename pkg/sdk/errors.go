package segmatch

import "github.com/kailas-cloud/segmatch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery            = domain.ErrInvalidQuery
	ErrInvalidFilter           = domain.ErrInvalidFilter
	ErrSegmentNotFound         = domain.ErrSegmentNotFound
	ErrInvalidSegment          = domain.ErrInvalidSegment
	ErrDuplicateSegment        = domain.ErrDuplicateSegment
	ErrGeneratorFailure        = domain.ErrGeneratorFailure
	ErrGeneratorTimeout        = domain.ErrGeneratorTimeout
	ErrGenerationQuotaExceeded = domain.ErrGenerationQuotaExceeded
	ErrCacheUnavailable        = domain.ErrCacheUnavailable
	ErrDatasetUnavailable      = domain.ErrDatasetUnavailable
)
