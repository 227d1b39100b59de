package ai

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
)

// DefaultEmbeddingRate caps embedding requests per second during backfill.
const DefaultEmbeddingRate = 5.0

// throttledEmbedding rate-limits every call to the wrapped service.
type throttledEmbedding struct {
	driven.EmbeddingService
	limiter *rate.Limiter
}

// ThrottleEmbedding wraps svc so it issues at most rps requests per
// second. A nil svc or non-positive rps returns svc unchanged.
func ThrottleEmbedding(svc driven.EmbeddingService, rps float64) driven.EmbeddingService {
	if svc == nil || rps <= 0 {
		return svc
	}
	return &throttledEmbedding{
		EmbeddingService: svc,
		limiter:          rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (t *throttledEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.EmbeddingService.Embed(ctx, text)
}

func (t *throttledEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.EmbeddingService.EmbedBatch(ctx, texts)
}
