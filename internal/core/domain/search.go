package domain

import "time"

// Retrieval defaults.
const (
	// DefaultQALimit is the number of QA matches returned when unspecified.
	DefaultQALimit = 5

	// DefaultContextLimit is the number of context matches returned when unspecified.
	DefaultContextLimit = 5

	// SemanticWeight is the share of the fused score taken from cosine similarity.
	SemanticWeight = 0.7

	// LexicalWeight is the share of the fused score taken from text similarity.
	LexicalWeight = 0.3
)

// Query is a retrieval request.
type Query struct {
	// Text is the raw query text. Optional; without it only
	// semantic similarity contributes.
	Text string

	// Embedding is the query vector. Empty selects lexical-only scoring.
	Embedding []float32

	// QALimit is the maximum number of QA matches. Zero returns none.
	QALimit int

	// ContextLimit is the maximum number of context matches. Zero returns none.
	ContextLimit int

	// SessionID scopes answer overrides. Empty disables overrides.
	SessionID string
}

// NewQuery creates a query with the default limits.
func NewQuery(text string, embedding []float32) Query {
	return Query{
		Text:         text,
		Embedding:    embedding,
		QALimit:      DefaultQALimit,
		ContextLimit: DefaultContextLimit,
	}
}

// ScoredCandidate is a record annotated with its relevance scores.
type ScoredCandidate struct {
	// Record is the matched knowledge record.
	Record KnowledgeRecord

	// Score is the fused relevance score used for ranking.
	Score float64

	// SemanticScore is the cosine similarity component.
	SemanticScore float64

	// LexicalScore is the text similarity component.
	LexicalScore float64

	// Override marks a session-scoped answer that replaced stored content.
	Override bool
}

// RetrievalResult holds the ranked matches for a query.
type RetrievalResult struct {
	// QAMatches are QA candidates in descending score order.
	QAMatches []ScoredCandidate

	// ContextMatches are context candidates in descending score order.
	ContextMatches []ScoredCandidate
}

// IsEmpty reports whether neither list has matches.
func (r RetrievalResult) IsEmpty() bool {
	return len(r.QAMatches) == 0 && len(r.ContextMatches) == 0
}

// SaveResult reports what a store save actually did.
type SaveResult struct {
	// Persisted is false when the store is read-only.
	Persisted bool

	// Records is the number of records handed to the store.
	Records int
}

// AnswerUpdate is a request to set the answer for a question.
type AnswerUpdate struct {
	// Question identifies the record(s) to update, compared after normalisation.
	Question string

	// Answer is the new answer text.
	Answer string

	// Provenance replaces the stored provenance when non-zero.
	Provenance Provenance
}

// UpsertResult reports the outcome of an answer update.
type UpsertResult struct {
	// ID is the identifier of the created record, or of the first updated one.
	ID string

	// Created is 1 when a new record was appended.
	Created int

	// Updated counts existing records whose answer was replaced.
	Updated int

	// Persisted is false when the store is read-only.
	Persisted bool
}

// AnswerOverride is a session-scoped answer that takes precedence over
// stored matches for one normalised question.
type AnswerOverride struct {
	// SessionID is the session the override belongs to.
	SessionID string

	// Question is the question text as entered.
	Question string

	// Answer is the answer shown for the session.
	Answer string

	// Provenance describes where the override came from.
	Provenance Provenance

	// ExpiresAt is when the override stops applying. Zero means the store default.
	ExpiresAt time.Time
}
