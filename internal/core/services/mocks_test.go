package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
	"github.com/custodia-labs/rfpkb/internal/normalisers/record"
)

// mockKnowledgeStore is an in-test KnowledgeStore with failure injection.
type mockKnowledgeStore struct {
	mu        sync.Mutex
	records   []domain.KnowledgeRecord
	readOnly  bool
	loadErr   error
	saveErr   error
	loadDelay time.Duration
	saves     int
	loads     int
}

var _ driven.KnowledgeStore = (*mockKnowledgeStore)(nil)

func newMockStore(records ...domain.KnowledgeRecord) *mockKnowledgeStore {
	return &mockKnowledgeStore{records: records}
}

func (m *mockKnowledgeStore) Load(ctx context.Context) ([]domain.KnowledgeRecord, error) {
	m.mu.Lock()
	m.loads++
	delay := m.loadDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return domain.CloneRecords(m.records), nil
}

func (m *mockKnowledgeStore) Save(_ context.Context, records []domain.KnowledgeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readOnly {
		return domain.ErrReadOnly
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.records = domain.CloneRecords(records)
	return nil
}

func (m *mockKnowledgeStore) Writable() bool {
	return !m.readOnly
}

func (m *mockKnowledgeStore) snapshot() []domain.KnowledgeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.CloneRecords(m.records)
}

// mockEmbeddingService returns fixed vectors or an error.
type mockEmbeddingService struct {
	vector     []float32
	err        error
	batchErr   error
	shortBatch bool
	calls      int
}

var _ driven.EmbeddingService = (*mockEmbeddingService)(nil)

func (m *mockEmbeddingService) Embed(_ context.Context, _ string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.vector, nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	n := len(texts)
	if m.shortBatch {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = m.vector
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int { return len(m.vector) }
func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }
func (m *mockEmbeddingService) Ping(context.Context) error { return m.err }
func (m *mockEmbeddingService) Close() error { return nil }

// mockClassifier returns scripted verdicts per call.
type mockClassifier struct {
	// decide returns the verdicts for one chunk. Nil keeps everything.
	decide func(call int, pairs []domain.QAPair) ([]bool, error)
	calls  int
	sizes  []int
}

var _ driven.Classifier = (*mockClassifier)(nil)

func (m *mockClassifier) Classify(_ context.Context, pairs []domain.QAPair) ([]bool, error) {
	m.calls++
	m.sizes = append(m.sizes, len(pairs))
	if m.decide == nil {
		out := make([]bool, len(pairs))
		for i := range out {
			out[i] = true
		}
		return out, nil
	}
	return m.decide(m.calls, pairs)
}

// mockOverrideStore is a map-backed OverrideStore.
type mockOverrideStore struct {
	items map[string]domain.AnswerOverride
}

var _ driven.OverrideStore = (*mockOverrideStore)(nil)

func newMockOverrideStore() *mockOverrideStore {
	return &mockOverrideStore{items: make(map[string]domain.AnswerOverride)}
}

func (m *mockOverrideStore) Get(_ context.Context, sessionID, key string) (*domain.AnswerOverride, bool) {
	o, ok := m.items[sessionID+"|"+key]
	if !ok {
		return nil, false
	}
	return &o, true
}

func (m *mockOverrideStore) Put(_ context.Context, key string, o domain.AnswerOverride) error {
	m.items[o.SessionID+"|"+key] = o
	return nil
}

func (m *mockOverrideStore) Clear(_ context.Context, sessionID string) error {
	for k, o := range m.items {
		if o.SessionID == sessionID {
			delete(m.items, k)
		}
	}
	return nil
}

var errBoom = errors.New("boom")

func testNormaliser() *record.Normaliser {
	return record.New(record.Options{})
}

func qaWithEmbedding(question, answer string, embedding []float32) domain.KnowledgeRecord {
	r := domain.NewQARecord(question, answer)
	r.Embedding = embedding
	return r
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "id-" + string(rune('0'+n))
	}
}
