package driving

import (
	"context"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
)

// MaintenanceService cleans, enriches and inspects the corpus.
type MaintenanceService interface {
	// Sanitize filters and deduplicates records without touching the store.
	// Returns domain.ErrNothingToSanitize for an empty corpus.
	Sanitize(ctx context.Context, records []domain.KnowledgeRecord, opts domain.SanitizeOptions) (domain.SanitizeReport, error)

	// SanitizeStore loads the corpus, sanitises it, and saves the result
	// unless opts.DryRun is set.
	SanitizeStore(ctx context.Context, opts domain.SanitizeOptions) (domain.SanitizeReport, error)

	// Backfill computes embeddings for records that lack one.
	Backfill(ctx context.Context, opts domain.BackfillOptions) (domain.BackfillReport, error)

	// Stats summarises the stored corpus.
	Stats(ctx context.Context) (domain.CorpusStats, error)

	// Export returns the stored corpus.
	Export(ctx context.Context) ([]domain.KnowledgeRecord, error)

	// Import appends records to the corpus, or replaces it when replace is set.
	Import(ctx context.Context, records []domain.KnowledgeRecord, replace bool) (domain.SaveResult, error)
}
