package driving

import (
	"context"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
)

// RetrievalService ranks knowledge records against a query.
//
// Retrieval never fails: store errors, timeouts and missing embeddings
// degrade to fewer (or zero) matches.
type RetrievalService interface {
	// Retrieve returns the top QA and context matches for a query.
	Retrieve(ctx context.Context, query domain.Query) domain.RetrievalResult

	// RetrieveMatches returns the top QA matches only. Context records
	// are never returned, even when no QA record is eligible.
	RetrieveMatches(ctx context.Context, embedding []float32, limit int, text string) []domain.ScoredCandidate

	// Search embeds query.Text when no embedding is supplied, then retrieves.
	Search(ctx context.Context, query domain.Query) domain.RetrievalResult

	// UpdateAnswer sets the answer for a question, creating the record if needed.
	UpdateAnswer(ctx context.Context, update domain.AnswerUpdate) (domain.UpsertResult, error)

	// SetOverride stores a session-scoped answer for a question.
	SetOverride(ctx context.Context, override domain.AnswerOverride) error

	// ClearOverrides removes every override of a session.
	ClearOverrides(ctx context.Context, sessionID string) error
}
