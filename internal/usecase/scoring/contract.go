package scoring

import (
	"context"

	"github.com/kailas-cloud/segmatch/internal/domain"
)

// Generator produces free text for a prompt (ISP).
type Generator interface {
	Generate(ctx context.Context, prompt string) (domain.Generation, error)
}
