package services

import (
	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
	"github.com/custodia-labs/rfpkb/internal/core/similarity"
)

// Scorer computes the hybrid relevance of a record against a query.
type Scorer struct {
	normaliser driven.RecordNormaliser
}

// NewScorer creates a scorer that prepares text with normaliser.
func NewScorer(normaliser driven.RecordNormaliser) *Scorer {
	return &Scorer{normaliser: normaliser}
}

// preparedQuery caches the match form of the query text across candidates.
type preparedQuery struct {
	embedding []float32
	matchText string
}

func (s *Scorer) prepare(embedding []float32, text string) preparedQuery {
	return preparedQuery{
		embedding: embedding,
		matchText: s.normaliser.MatchText(text),
	}
}

// Score rates one normalised record against a query embedding and text.
func (s *Scorer) Score(embedding []float32, text string, record domain.KnowledgeRecord) domain.ScoredCandidate {
	return s.score(s.prepare(embedding, text), record)
}

// score fuses cosine and lexical similarity. When either side lacks an
// embedding the fused score is the lexical score alone.
func (s *Scorer) score(q preparedQuery, record domain.KnowledgeRecord) domain.ScoredCandidate {
	c := domain.ScoredCandidate{Record: record}

	if q.matchText != "" {
		c.LexicalScore = similarity.BestLexical(q.matchText, s.matchFields(record)...)
	}

	if len(q.embedding) > 0 && record.HasEmbedding() {
		c.SemanticScore = similarity.Cosine(q.embedding, record.Embedding)
		c.Score = domain.SemanticWeight*c.SemanticScore + domain.LexicalWeight*c.LexicalScore
		return c
	}

	c.Score = c.LexicalScore
	return c
}

// matchFields returns the record's searchable text in match form. The
// combined text comes first; single fields let an exact question match
// score as one.
func (s *Scorer) matchFields(record domain.KnowledgeRecord) []string {
	if record.IsContext() {
		// Retrieval only scores context records with content. Score callers
		// may pass legacy records that kept their text in answer or question.
		text := record.Content
		if text == "" {
			text = record.Answer
		}
		if text == "" {
			text = record.Question
		}
		return []string{s.normaliser.MatchText(text)}
	}

	question := s.normaliser.MatchText(record.Question)
	answer := s.normaliser.MatchText(record.Answer)
	combined := question
	switch {
	case combined == "":
		combined = answer
	case answer != "":
		combined = question + " " + answer
	}
	return []string{combined, question, answer}
}
