package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
)

func newTestRetrieval(store *mockKnowledgeStore, embedder *mockEmbeddingService) *RetrievalService {
	corpus := NewCorpus(store, time.Second)
	if embedder == nil {
		return NewRetrievalService(corpus, testNormaliser(), nil)
	}
	return NewRetrievalService(corpus, testNormaliser(), embedder)
}

func sampleCorpus() []domain.KnowledgeRecord {
	return []domain.KnowledgeRecord{
		qaWithEmbedding("How many licensed clinicians?", "We employ 500 licensed clinicians.", []float32{1, 0, 0}),
		qaWithEmbedding("Do you encrypt data at rest?", "Yes, AES-256 encryption at rest.", []float32{0, 1, 0}),
		domain.NewQARecord("What is your uptime?", "N/A"),
		domain.NewQARecord("Placeholder question", "-"),
		domain.NewContextRecord("Our clinicians are licensed in all 50 states."),
		domain.NewContextRecord("Encryption keys are rotated every 90 days."),
		domain.NewContextRecord("   "),
	}
}

func TestRetrievalService_Retrieve(t *testing.T) {
	svc := newTestRetrieval(newMockStore(sampleCorpus()...), nil)

	result := svc.Retrieve(context.Background(), domain.NewQuery("How many licensed clinicians?", []float32{1, 0, 0}))

	require.Len(t, result.QAMatches, 2, "garbage answers are ineligible")
	assert.Equal(t, "How many licensed clinicians?", result.QAMatches[0].Record.Question)
	assert.InDelta(t, 1.0, result.QAMatches[0].Score, 1e-6)

	require.Len(t, result.ContextMatches, 2, "empty context is ineligible")
	assert.Contains(t, result.ContextMatches[0].Record.Content, "clinicians")
}

func TestRetrievalService_Retrieve_ExcludesGarbage(t *testing.T) {
	store := newMockStore(
		domain.NewQARecord("q1", "N/A"),
		domain.NewQARecord("q2", "-"),
		domain.NewQARecord("q3", "."),
		domain.NewQARecord("q4", "a"),
		domain.NewQARecord("q5", ""),
	)
	svc := newTestRetrieval(store, nil)

	result := svc.Retrieve(context.Background(), domain.NewQuery("q1", nil))
	assert.Empty(t, result.QAMatches)
	assert.NotNil(t, result.QAMatches)
}

func TestRetrievalService_Retrieve_EmptyCorpus(t *testing.T) {
	svc := newTestRetrieval(newMockStore(), nil)

	result := svc.Retrieve(context.Background(), domain.NewQuery("anything", []float32{1}))

	assert.True(t, result.IsEmpty())
	assert.NotNil(t, result.QAMatches)
	assert.NotNil(t, result.ContextMatches)
}

func TestRetrievalService_Retrieve_StoreFailureDegrades(t *testing.T) {
	store := newMockStore(sampleCorpus()...)
	store.loadErr = errBoom
	svc := newTestRetrieval(store, nil)

	result := svc.Retrieve(context.Background(), domain.NewQuery("clinicians", nil))
	assert.True(t, result.IsEmpty())
}

func TestRetrievalService_Retrieve_ZeroLimits(t *testing.T) {
	store := newMockStore(sampleCorpus()...)
	svc := newTestRetrieval(store, nil)

	result := svc.Retrieve(context.Background(), domain.Query{Text: "clinicians"})
	assert.True(t, result.IsEmpty())
	assert.Zero(t, store.loads, "no load when nothing is requested")

	qaOnly := svc.Retrieve(context.Background(), domain.Query{Text: "clinicians", QALimit: 5})
	assert.NotEmpty(t, qaOnly.QAMatches)
	assert.Empty(t, qaOnly.ContextMatches)

	contextOnly := svc.Retrieve(context.Background(), domain.Query{Text: "clinicians", ContextLimit: 1})
	assert.Empty(t, contextOnly.QAMatches)
	assert.Len(t, contextOnly.ContextMatches, 1)
}

func TestRetrievalService_Retrieve_Truncates(t *testing.T) {
	var records []domain.KnowledgeRecord
	for i := 0; i < 10; i++ {
		records = append(records, domain.NewQARecord("Question about security", "A valid security answer."))
	}
	svc := newTestRetrieval(newMockStore(records...), nil)

	result := svc.Retrieve(context.Background(), domain.NewQuery("security", nil))
	assert.Len(t, result.QAMatches, domain.DefaultQALimit)
}

func TestRetrievalService_Retrieve_StableTies(t *testing.T) {
	records := []domain.KnowledgeRecord{
		domain.NewQARecord("Same question", "First answer text."),
		domain.NewQARecord("Same question", "First answer text."),
		domain.NewQARecord("Same question", "First answer text."),
	}
	records[0].ID = "a"
	records[1].ID = "b"
	records[2].ID = "c"
	svc := newTestRetrieval(newMockStore(records...), nil)

	result := svc.Retrieve(context.Background(), domain.NewQuery("Same question", nil))

	require.Len(t, result.QAMatches, 3)
	assert.Equal(t, "a", result.QAMatches[0].Record.ID)
	assert.Equal(t, "b", result.QAMatches[1].Record.ID)
	assert.Equal(t, "c", result.QAMatches[2].Record.ID)
}

func TestRetrievalService_Retrieve_Deterministic(t *testing.T) {
	svc := newTestRetrieval(newMockStore(sampleCorpus()...), nil)
	q := domain.NewQuery("encryption", []float32{0.5, 0.5, 0})

	first := svc.Retrieve(context.Background(), q)
	second := svc.Retrieve(context.Background(), q)

	assert.Equal(t, first, second)
}

func TestRetrievalService_Retrieve_NoEmbeddingFallback(t *testing.T) {
	store := newMockStore(domain.NewQARecord("How many licensed clinicians?", "We employ 500 licensed clinicians."))
	svc := newTestRetrieval(store, nil)

	result := svc.Retrieve(context.Background(), domain.NewQuery("How many licensed clinicians?", []float32{1, 0, 0}))

	require.Len(t, result.QAMatches, 1)
	m := result.QAMatches[0]
	assert.Equal(t, m.LexicalScore, m.Score)
	assert.Zero(t, m.SemanticScore)
}

func TestRetrievalService_Retrieve_DuplicateQuestionsScoredIndependently(t *testing.T) {
	store := newMockStore(
		domain.NewQARecord("Do you offer SSO?", "Yes, with SAML."),
		domain.NewQARecord("Do you offer SSO?", "Yes, with OIDC."),
	)
	svc := newTestRetrieval(store, nil)

	result := svc.Retrieve(context.Background(), domain.NewQuery("Do you offer SSO?", nil))
	assert.Len(t, result.QAMatches, 2)
}

func TestRetrievalService_Retrieve_NormalisesRecords(t *testing.T) {
	store := newMockStore(domain.NewQARecord("  Do you   offer SSO? ", "Yes,\n with SAML."))
	svc := newTestRetrieval(store, nil)

	result := svc.Retrieve(context.Background(), domain.NewQuery("sso", nil))

	require.Len(t, result.QAMatches, 1)
	assert.Equal(t, "Do you offer SSO?", result.QAMatches[0].Record.Question)
	assert.Equal(t, "Yes, with SAML.", result.QAMatches[0].Record.Answer)
}

func TestRetrievalService_RetrieveMatches_NoContextFallback(t *testing.T) {
	store := newMockStore(
		domain.NewQARecord("q", "N/A"),
		domain.NewContextRecord("Clinicians are licensed."),
	)
	svc := newTestRetrieval(store, nil)

	matches := svc.RetrieveMatches(context.Background(), nil, 5, "clinicians")
	assert.Empty(t, matches)
	assert.NotNil(t, matches)
}

func TestRetrievalService_RetrieveMatches(t *testing.T) {
	svc := newTestRetrieval(newMockStore(sampleCorpus()...), nil)

	matches := svc.RetrieveMatches(context.Background(), []float32{0, 1, 0}, 1, "")
	require.Len(t, matches, 1)
	assert.Equal(t, "Do you encrypt data at rest?", matches[0].Record.Question)
	for _, m := range matches {
		assert.True(t, m.Record.IsQA())
	}
}

func TestRetrievalService_Search_EmbedsQuery(t *testing.T) {
	embedder := &mockEmbeddingService{vector: []float32{0, 1, 0}}
	svc := newTestRetrieval(newMockStore(sampleCorpus()...), embedder)

	svc.Search(context.Background(), domain.NewQuery("", nil))
	assert.Zero(t, embedder.calls, "empty text is not embedded")

	result := svc.Search(context.Background(), domain.NewQuery("data protection", nil))
	assert.Equal(t, 1, embedder.calls)
	require.NotEmpty(t, result.QAMatches)
	assert.Equal(t, "Do you encrypt data at rest?", result.QAMatches[0].Record.Question)
	assert.Greater(t, result.QAMatches[0].SemanticScore, 0.9)
}

func TestRetrievalService_Search_EmbeddingFailureDegrades(t *testing.T) {
	embedder := &mockEmbeddingService{err: errBoom}
	svc := newTestRetrieval(newMockStore(sampleCorpus()...), embedder)

	result := svc.Search(context.Background(), domain.NewQuery("licensed clinicians", nil))

	require.NotEmpty(t, result.QAMatches)
	for _, m := range result.QAMatches {
		assert.Zero(t, m.SemanticScore)
		assert.Equal(t, m.LexicalScore, m.Score)
	}
}

func TestRetrievalService_UpdateAnswer_UpdatesExisting(t *testing.T) {
	store := newMockStore(
		domain.NewQARecord("How many clinicians?", "Old answer text."),
		domain.NewContextRecord("context"),
	)
	svc := newTestRetrieval(store, nil)

	result, err := svc.UpdateAnswer(context.Background(), domain.AnswerUpdate{
		Question:   "how many   clinicians",
		Answer:     "We employ 500 clinicians.",
		Provenance: domain.Provenance{Origin: "manual"},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Zero(t, result.Created)
	assert.True(t, result.Persisted)

	saved := store.snapshot()
	require.Len(t, saved, 2)
	assert.Equal(t, "We employ 500 clinicians.", saved[0].Answer)
	assert.Equal(t, "How many clinicians?", saved[0].Question, "stored question keeps its wording")
	assert.Equal(t, "manual", saved[0].Provenance.Origin)
}

func TestRetrievalService_UpdateAnswer_Creates(t *testing.T) {
	store := newMockStore(domain.NewQARecord("Other question?", "Other answer."))
	embedder := &mockEmbeddingService{vector: []float32{0.5, 0.5}}
	svc := newTestRetrieval(store, embedder)
	svc.SetIDGenerator(func() string { return "new-id" })

	result, err := svc.UpdateAnswer(context.Background(), domain.AnswerUpdate{
		Question: "Do you have a BAA?",
		Answer:   "Yes, we sign BAAs.",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, "new-id", result.ID)

	saved := store.snapshot()
	require.Len(t, saved, 2)
	assert.Equal(t, "Do you have a BAA?", saved[1].Question)
	assert.Equal(t, []float32{0.5, 0.5}, saved[1].Embedding)
	assert.Equal(t, domain.KindQA, saved[1].Kind)
}

func TestRetrievalService_UpdateAnswer_ReadOnly(t *testing.T) {
	store := newMockStore()
	store.readOnly = true
	svc := newTestRetrieval(store, nil)

	result, err := svc.UpdateAnswer(context.Background(), domain.AnswerUpdate{Question: "Q?", Answer: "Answer."})

	require.NoError(t, err)
	assert.False(t, result.Persisted)
	assert.Equal(t, 1, result.Created)
	assert.Empty(t, store.snapshot())
}

func TestRetrievalService_UpdateAnswer_LoadFailureRefusesWrite(t *testing.T) {
	store := newMockStore(domain.NewQARecord("Q?", "Answer."))
	store.loadErr = errBoom
	svc := newTestRetrieval(store, nil)

	_, err := svc.UpdateAnswer(context.Background(), domain.AnswerUpdate{Question: "Q?", Answer: "New."})

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Zero(t, store.saves)
}

func TestRetrievalService_UpdateAnswer_InvalidInput(t *testing.T) {
	svc := newTestRetrieval(newMockStore(), nil)

	_, err := svc.UpdateAnswer(context.Background(), domain.AnswerUpdate{Question: " ", Answer: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.UpdateAnswer(context.Background(), domain.AnswerUpdate{Question: "Q?", Answer: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrievalService_Overrides(t *testing.T) {
	store := newMockStore(
		domain.NewQARecord("Do you offer SSO?", "Stored answer about SSO."),
		domain.NewQARecord("Do you offer MFA?", "Stored answer about MFA."),
	)
	svc := newTestRetrieval(store, nil)
	overrides := newMockOverrideStore()
	svc.SetOverrideStore(overrides, time.Hour)
	ctx := context.Background()

	require.NoError(t, svc.SetOverride(ctx, domain.AnswerOverride{
		SessionID: "s1",
		Question:  "Do you offer SSO?",
		Answer:    "Session answer.",
	}))

	q := domain.NewQuery("do you offer sso", nil)
	q.SessionID = "s1"
	result := svc.Retrieve(ctx, q)

	require.NotEmpty(t, result.QAMatches)
	assert.True(t, result.QAMatches[0].Override)
	assert.Equal(t, "Session answer.", result.QAMatches[0].Record.Answer)
	for _, m := range result.QAMatches[1:] {
		assert.NotEqual(t, "Stored answer about SSO.", m.Record.Answer)
	}

	other := domain.NewQuery("do you offer sso", nil)
	other.SessionID = "s2"
	assert.False(t, svc.Retrieve(ctx, other).QAMatches[0].Override)

	require.NoError(t, svc.ClearOverrides(ctx, "s1"))
	assert.False(t, svc.Retrieve(ctx, q).QAMatches[0].Override)
}

func TestRetrievalService_SetOverride_DefaultsExpiry(t *testing.T) {
	svc := newTestRetrieval(newMockStore(), nil)
	overrides := newMockOverrideStore()
	svc.SetOverrideStore(overrides, time.Hour)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	require.NoError(t, svc.SetOverride(context.Background(), domain.AnswerOverride{
		SessionID: "s", Question: "Q?", Answer: "A.",
	}))

	o, ok := overrides.Get(context.Background(), "s", "q")
	require.True(t, ok)
	assert.Equal(t, fixed.Add(time.Hour), o.ExpiresAt)
}

func TestRetrievalService_Overrides_Disabled(t *testing.T) {
	svc := newTestRetrieval(newMockStore(), nil)

	err := svc.SetOverride(context.Background(), domain.AnswerOverride{SessionID: "s", Question: "q", Answer: "a"})
	assert.ErrorIs(t, err, domain.ErrOverridesDisabled)
	assert.ErrorIs(t, svc.ClearOverrides(context.Background(), "s"), domain.ErrOverridesDisabled)
}

func TestRetrievalService_SetOverride_InvalidInput(t *testing.T) {
	svc := newTestRetrieval(newMockStore(), nil)
	svc.SetOverrideStore(newMockOverrideStore(), 0)

	err := svc.SetOverride(context.Background(), domain.AnswerOverride{Question: "q", Answer: "a"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
