package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// RecordKind tags a knowledge record as a curated pair or a context passage.
type RecordKind string

// Record kinds.
const (
	// KindQA is a curated question/answer pair.
	KindQA RecordKind = "qa"

	// KindContext is a free-text passage that supports answering questions.
	KindContext RecordKind = "context"
)

// ParseRecordKind maps a stored type tag to a RecordKind.
// Anything other than "context" is a QA record.
func ParseRecordKind(tag string) RecordKind {
	if strings.EqualFold(strings.TrimSpace(tag), string(KindContext)) {
		return KindContext
	}
	return KindQA
}

// String returns the string representation.
func (k RecordKind) String() string {
	return string(k)
}

// Provenance describes where a record came from. All fields are optional.
type Provenance struct {
	// Source is a free-form label such as "rfp-2024" or "manual".
	Source string

	// SourceFile is the file the record was extracted from.
	SourceFile string

	// Doc is the document title or identifier.
	Doc string

	// Origin records how the record entered the store (import, upsert, ...).
	Origin string
}

// IsZero reports whether no provenance field is set.
func (p Provenance) IsZero() bool {
	return p == Provenance{}
}

// KnowledgeRecord is the unit stored in the knowledge base.
//
// QA records carry Question and Answer; context records carry Content.
// Fields that the store holds but this package does not interpret are kept
// in Extra so a load/save round trip does not lose them.
type KnowledgeRecord struct {
	// ID is an optional stable identifier.
	ID string

	// Kind distinguishes QA pairs from context passages.
	Kind RecordKind

	// Question is the curated question (QA only).
	Question string

	// Answer is the curated answer (QA only).
	Answer string

	// Content is the passage text (context only).
	Content string

	// Embedding is the precomputed vector. Empty means "no embedding".
	Embedding []float32

	// Provenance describes where the record came from.
	Provenance Provenance

	// Extra holds uninterpreted fields as raw JSON values.
	Extra map[string]json.RawMessage
}

// NewQARecord creates a QA record.
func NewQARecord(question, answer string) KnowledgeRecord {
	return KnowledgeRecord{Kind: KindQA, Question: question, Answer: answer}
}

// NewContextRecord creates a context record.
func NewContextRecord(content string) KnowledgeRecord {
	return KnowledgeRecord{Kind: KindContext, Content: content}
}

// IsQA reports whether the record is a question/answer pair.
// Records with an unset kind are treated as QA.
func (r KnowledgeRecord) IsQA() bool {
	return r.Kind != KindContext
}

// IsContext reports whether the record is a context passage.
func (r KnowledgeRecord) IsContext() bool {
	return r.Kind == KindContext
}

// HasEmbedding reports whether the record carries a usable vector.
func (r KnowledgeRecord) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

// PrimaryText is the text a record is matched on: the answer for QA
// pairs and the content for context passages.
func (r KnowledgeRecord) PrimaryText() string {
	if r.IsContext() {
		return r.Content
	}
	return r.Answer
}

// EmbeddingText is the text used to compute the record's embedding.
func (r KnowledgeRecord) EmbeddingText() string {
	if r.IsContext() {
		return r.Content
	}
	if r.Question == "" {
		return r.Answer
	}
	return r.Question + "\n" + r.Answer
}

// Clone returns a deep copy so callers can mutate the result freely.
func (r KnowledgeRecord) Clone() KnowledgeRecord {
	out := r
	if r.Embedding != nil {
		out.Embedding = append([]float32(nil), r.Embedding...)
	}
	if r.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// CloneRecords deep-copies a slice of records.
func CloneRecords(records []KnowledgeRecord) []KnowledgeRecord {
	if records == nil {
		return nil
	}
	out := make([]KnowledgeRecord, len(records))
	for i := range records {
		out[i] = records[i].Clone()
	}
	return out
}

// QAPair is the minimal view of a QA record handed to the classifier.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// CorpusStats summarises a corpus for operators.
type CorpusStats struct {
	// Total is the number of stored records.
	Total int

	// QA is the number of question/answer records.
	QA int

	// Context is the number of context records.
	Context int

	// WithEmbedding counts records carrying a vector.
	WithEmbedding int

	// EligibleQA counts QA records that pass the retrieval hygiene filter.
	EligibleQA int

	// EligibleContext counts context records with non-empty content.
	EligibleContext int
}

// CorpusSnapshot describes one saved version of a corpus in a store that
// keeps history.
type CorpusSnapshot struct {
	ID          int64
	SavedAt     time.Time
	RecordCount int
}
