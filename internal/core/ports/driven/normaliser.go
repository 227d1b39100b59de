package driven

import "github.com/custodia-labs/rfpkb/internal/core/domain"

// RecordNormaliser canonicalises record text and decides eligibility.
// Implementations must be pure: the same input always gives the same output.
type RecordNormaliser interface {
	// Normalise returns a copy of the record with canonical display text
	// (collapsed whitespace, legacy aliases rewritten).
	Normalise(record domain.KnowledgeRecord) domain.KnowledgeRecord

	// MatchText returns the form of text used for lexical comparison:
	// case-folded, abbreviations expanded, punctuation reduced to spaces.
	MatchText(text string) string

	// Key returns the comparison key for upsert and deduplication.
	Key(text string) string

	// Eligible reports whether a record may be scored at retrieval time.
	Eligible(record domain.KnowledgeRecord) bool

	// IsGarbage reports whether an answer is junk under the strict predicate.
	IsGarbage(answer string) bool

	// IsBorderline reports whether a structurally valid pair should be
	// referred to the quality classifier.
	IsBorderline(pair domain.QAPair) bool
}
