package driven

import (
	"context"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
)

// Classifier judges whether QA pairs are worth keeping.
//
// Classify returns one verdict per input pair, in input order; true means
// keep. Callers treat an error or a verdict count that differs from the
// input count as "keep everything".
type Classifier interface {
	Classify(ctx context.Context, pairs []domain.QAPair) ([]bool, error)
}
