package driven

import (
	"context"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
)

// OverrideStore holds session-scoped answer overrides.
// Keys are normalised question strings; expired overrides are never returned.
type OverrideStore interface {
	// Get returns the live override for key within a session.
	Get(ctx context.Context, sessionID, key string) (*domain.AnswerOverride, bool)

	// Put stores an override under key, replacing any previous one.
	Put(ctx context.Context, key string, override domain.AnswerOverride) error

	// Clear removes every override for a session.
	Clear(ctx context.Context, sessionID string) error
}
