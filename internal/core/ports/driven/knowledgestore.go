package driven

import (
	"context"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
)

// KnowledgeStore reads and writes the whole knowledge corpus as one unit.
//
// Implementations must not cache: every Load reflects the store's current
// content. Load returns an empty slice and no error when the corpus does
// not exist yet. Save replaces the entire corpus.
type KnowledgeStore interface {
	// Load fetches every record in storage order.
	Load(ctx context.Context) ([]domain.KnowledgeRecord, error)

	// Save replaces the stored corpus with records.
	// Returns domain.ErrReadOnly when no write credential is configured.
	Save(ctx context.Context, records []domain.KnowledgeRecord) error

	// Writable reports whether Save can persist.
	Writable() bool
}

// SnapshotStore is implemented by knowledge stores that keep a history of
// saved versions.
type SnapshotStore interface {
	// Snapshots lists saved versions, newest first.
	Snapshots(ctx context.Context) ([]domain.CorpusSnapshot, error)

	// Prune keeps only the newest keep versions.
	Prune(ctx context.Context, keep int) error
}
