package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driving"
	"github.com/custodia-labs/rfpkb/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// DefaultOverrideTTL is how long a session override applies when the
// caller does not set an expiry.
const DefaultOverrideTTL = 30 * time.Minute

// RetrievalService ranks the knowledge corpus against queries.
type RetrievalService struct {
	corpus           *Corpus
	normaliser       driven.RecordNormaliser
	scorer           *Scorer
	embeddingService driven.EmbeddingService
	overrides        driven.OverrideStore
	overrideTTL      time.Duration
	newID            func() string
	now              func() time.Time
}

// NewRetrievalService creates a retrieval service.
// The embeddingService parameter is optional (can be nil).
func NewRetrievalService(
	corpus *Corpus,
	normaliser driven.RecordNormaliser,
	embeddingService driven.EmbeddingService,
) *RetrievalService {
	return &RetrievalService{
		corpus:           corpus,
		normaliser:       normaliser,
		scorer:           NewScorer(normaliser),
		embeddingService: embeddingService,
		overrideTTL:      DefaultOverrideTTL,
		now:              time.Now,
	}
}

// SetOverrideStore enables session-scoped answer overrides.
func (s *RetrievalService) SetOverrideStore(store driven.OverrideStore, ttl time.Duration) {
	s.overrides = store
	if ttl > 0 {
		s.overrideTTL = ttl
	}
}

// SetIDGenerator sets the function used to identify records created by UpdateAnswer.
func (s *RetrievalService) SetIDGenerator(gen func() string) {
	s.newID = gen
}

// Retrieve returns the top QA and context matches for a query. Both lists
// are sorted by descending score; ties keep corpus order.
func (s *RetrievalService) Retrieve(ctx context.Context, query domain.Query) domain.RetrievalResult {
	logger.Section("Retrieval")
	logger.Debug("Query: %q, embedding dims: %d, limits: qa=%d context=%d",
		query.Text, len(query.Embedding), query.QALimit, query.ContextLimit)

	result := domain.RetrievalResult{
		QAMatches:      []domain.ScoredCandidate{},
		ContextMatches: []domain.ScoredCandidate{},
	}
	if query.QALimit <= 0 && query.ContextLimit <= 0 {
		logger.Debug("Both limits are zero, skipping retrieval")
		return result
	}

	records := s.corpus.Load(ctx)
	prepared := s.scorer.prepare(query.Embedding, query.Text)

	var qa, passages []domain.ScoredCandidate
	skipped := 0
	for _, raw := range records {
		record := s.normaliser.Normalise(raw)
		if !s.normaliser.Eligible(record) {
			skipped++
			continue
		}
		switch {
		case record.IsContext() && query.ContextLimit > 0:
			passages = append(passages, s.scorer.score(prepared, record))
		case record.IsQA() && query.QALimit > 0:
			qa = append(qa, s.scorer.score(prepared, record))
		}
	}
	logger.Debug("Scored %d QA and %d context candidates, %d ineligible", len(qa), len(passages), skipped)

	result.QAMatches = topK(qa, query.QALimit)
	result.ContextMatches = topK(passages, query.ContextLimit)

	if query.SessionID != "" && query.QALimit > 0 {
		result.QAMatches = s.applyOverride(ctx, query, result.QAMatches)
	}

	logger.Info("Returning %d QA and %d context matches", len(result.QAMatches), len(result.ContextMatches))
	return result
}

// RetrieveMatches returns QA matches only. An empty QA corpus yields an
// empty result even when context records exist.
func (s *RetrievalService) RetrieveMatches(
	ctx context.Context, embedding []float32, limit int, text string,
) []domain.ScoredCandidate {
	return s.Retrieve(ctx, domain.Query{
		Text:      text,
		Embedding: embedding,
		QALimit:   limit,
	}).QAMatches
}

// Search embeds the query text when no embedding was supplied, then
// retrieves. Embedding failures fall back to lexical-only scoring.
func (s *RetrievalService) Search(ctx context.Context, query domain.Query) domain.RetrievalResult {
	if len(query.Embedding) == 0 {
		query.Embedding = s.embedQuery(ctx, query.Text)
	}
	return s.Retrieve(ctx, query)
}

// UpdateAnswer sets the answer of every QA record whose normalised question
// matches, or appends a new record. The whole corpus is saved; concurrent
// writers overwrite each other.
func (s *RetrievalService) UpdateAnswer(
	ctx context.Context, update domain.AnswerUpdate,
) (domain.UpsertResult, error) {
	logger.Section("Update Answer")

	question := strings.TrimSpace(update.Question)
	answer := strings.TrimSpace(update.Answer)
	if question == "" || answer == "" {
		return domain.UpsertResult{}, fmt.Errorf("question and answer are required: %w", domain.ErrInvalidInput)
	}

	records, err := s.corpus.LoadStrict(ctx)
	if err != nil {
		return domain.UpsertResult{}, fmt.Errorf("update answer: %w", err)
	}

	key := s.normaliser.Key(question)
	embedding := s.embedQuery(ctx, question+"\n"+answer)

	var result domain.UpsertResult
	for i := range records {
		r := &records[i]
		if !r.IsQA() || s.normaliser.Key(r.Question) != key {
			continue
		}
		r.Answer = answer
		if !update.Provenance.IsZero() {
			r.Provenance = update.Provenance
		}
		if len(embedding) > 0 {
			r.Embedding = embedding
		}
		if result.ID == "" {
			result.ID = r.ID
		}
		result.Updated++
	}

	if result.Updated == 0 {
		record := domain.NewQARecord(question, answer)
		record.Provenance = update.Provenance
		record.Embedding = embedding
		if s.newID != nil {
			record.ID = s.newID()
		}
		records = append(records, record)
		result.ID = record.ID
		result.Created = 1
	}
	logger.Debug("Upsert for %q: updated=%d created=%d", key, result.Updated, result.Created)

	saved, err := s.corpus.Save(ctx, records)
	if err != nil {
		return result, fmt.Errorf("update answer: %w", err)
	}
	result.Persisted = saved.Persisted
	return result, nil
}

// SetOverride stores a session-scoped answer for a question.
func (s *RetrievalService) SetOverride(ctx context.Context, override domain.AnswerOverride) error {
	if s.overrides == nil {
		return domain.ErrOverridesDisabled
	}
	if override.SessionID == "" || strings.TrimSpace(override.Question) == "" ||
		strings.TrimSpace(override.Answer) == "" {
		return fmt.Errorf("session, question and answer are required: %w", domain.ErrInvalidInput)
	}
	if override.ExpiresAt.IsZero() {
		override.ExpiresAt = s.now().Add(s.overrideTTL)
	}
	return s.overrides.Put(ctx, s.normaliser.Key(override.Question), override)
}

// ClearOverrides removes every override of a session.
func (s *RetrievalService) ClearOverrides(ctx context.Context, sessionID string) error {
	if s.overrides == nil {
		return domain.ErrOverridesDisabled
	}
	return s.overrides.Clear(ctx, sessionID)
}

// applyOverride puts the session's answer for this exact question first and
// drops stored matches for the same question.
func (s *RetrievalService) applyOverride(
	ctx context.Context, query domain.Query, matches []domain.ScoredCandidate,
) []domain.ScoredCandidate {
	if s.overrides == nil {
		return matches
	}
	key := s.normaliser.Key(query.Text)
	override, ok := s.overrides.Get(ctx, query.SessionID, key)
	if !ok {
		return matches
	}
	logger.Debug("Applying session override for %q", key)

	record := domain.NewQARecord(override.Question, override.Answer)
	record.Provenance = override.Provenance
	out := make([]domain.ScoredCandidate, 0, len(matches)+1)
	out = append(out, domain.ScoredCandidate{
		Record:       record,
		Score:        1,
		LexicalScore: 1,
		Override:     true,
	})
	for _, m := range matches {
		if s.normaliser.Key(m.Record.Question) == key {
			continue
		}
		out = append(out, m)
	}
	if len(out) > query.QALimit {
		out = out[:query.QALimit]
	}
	return out
}

// embedQuery returns nil when no embedding service is configured or the
// provider fails.
func (s *RetrievalService) embedQuery(ctx context.Context, text string) []float32 {
	if s.embeddingService == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	embedding, err := s.embeddingService.Embed(ctx, text)
	if err != nil {
		logger.Warn("Embedding failed, using lexical scoring only: %v", err)
		return nil
	}
	return embedding
}

// topK sorts candidates by descending score, keeping input order for ties,
// and returns at most k of them.
func topK(candidates []domain.ScoredCandidate, k int) []domain.ScoredCandidate {
	if k <= 0 || len(candidates) == 0 {
		return []domain.ScoredCandidate{}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}
