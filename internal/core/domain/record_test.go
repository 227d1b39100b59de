package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRecordKind(t *testing.T) {
	tests := []struct {
		tag  string
		want RecordKind
	}{
		{"qa", KindQA},
		{"context", KindContext},
		{"Context", KindContext},
		{" context ", KindContext},
		{"", KindQA},
		{"faq", KindQA},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRecordKind(tt.tag))
		})
	}
}

func TestKnowledgeRecord_KindHelpers(t *testing.T) {
	qa := NewQARecord("Do you encrypt data?", "Yes, AES-256 at rest.")
	ctx := NewContextRecord("All data is encrypted at rest.")
	unset := KnowledgeRecord{Answer: "legacy record"}

	assert.True(t, qa.IsQA())
	assert.False(t, qa.IsContext())
	assert.True(t, ctx.IsContext())
	assert.False(t, ctx.IsQA())
	assert.True(t, unset.IsQA(), "records without a kind default to QA")
}

func TestKnowledgeRecord_PrimaryText(t *testing.T) {
	assert.Equal(t, "Yes.", NewQARecord("Q?", "Yes.").PrimaryText())
	assert.Equal(t, "passage", NewContextRecord("passage").PrimaryText())
}

func TestKnowledgeRecord_EmbeddingText(t *testing.T) {
	assert.Equal(t, "Q?\nYes.", NewQARecord("Q?", "Yes.").EmbeddingText())
	assert.Equal(t, "Yes.", NewQARecord("", "Yes.").EmbeddingText())
	assert.Equal(t, "passage", NewContextRecord("passage").EmbeddingText())
}

func TestKnowledgeRecord_HasEmbedding(t *testing.T) {
	r := NewQARecord("q", "a")
	assert.False(t, r.HasEmbedding())

	r.Embedding = []float32{0.1}
	assert.True(t, r.HasEmbedding())
}

func TestKnowledgeRecord_Clone(t *testing.T) {
	orig := NewQARecord("q", "a")
	orig.Embedding = []float32{1, 2, 3}
	orig.Extra = map[string]json.RawMessage{"tags": json.RawMessage(`["x"]`)}

	clone := orig.Clone()
	clone.Embedding[0] = 9
	clone.Extra["tags"][1] = 'y'
	clone.Answer = "changed"

	assert.Equal(t, float32(1), orig.Embedding[0])
	assert.Equal(t, `["x"]`, string(orig.Extra["tags"]))
	assert.Equal(t, "a", orig.Answer)
}

func TestCloneRecords(t *testing.T) {
	assert.Nil(t, CloneRecords(nil))

	records := []KnowledgeRecord{NewQARecord("q", "a"), NewContextRecord("c")}
	out := CloneRecords(records)
	out[0].Question = "other"

	assert.Len(t, out, 2)
	assert.Equal(t, "q", records[0].Question)
}

func TestProvenance_IsZero(t *testing.T) {
	assert.True(t, Provenance{}.IsZero())
	assert.False(t, Provenance{Source: "manual"}.IsZero())
}
