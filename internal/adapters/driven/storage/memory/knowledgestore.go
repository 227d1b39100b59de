package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
)

// Ensure KnowledgeStore implements the interface.
var _ driven.KnowledgeStore = (*KnowledgeStore)(nil)

// KnowledgeStore keeps the corpus in process memory.
// Load and Save copy records so callers never share backing arrays.
type KnowledgeStore struct {
	mu       sync.RWMutex
	records  []domain.KnowledgeRecord
	readOnly bool
}

// NewKnowledgeStore creates a store seeded with records.
func NewKnowledgeStore(records ...domain.KnowledgeRecord) *KnowledgeStore {
	return &KnowledgeStore{records: domain.CloneRecords(records)}
}

// SetReadOnly makes Save return domain.ErrReadOnly.
func (s *KnowledgeStore) SetReadOnly(readOnly bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readOnly = readOnly
}

// Load returns a copy of the stored corpus.
func (s *KnowledgeStore) Load(ctx context.Context) ([]domain.KnowledgeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.records == nil {
		return []domain.KnowledgeRecord{}, nil
	}
	return domain.CloneRecords(s.records), nil
}

// Save replaces the stored corpus with a copy of records.
func (s *KnowledgeStore) Save(ctx context.Context, records []domain.KnowledgeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readOnly {
		return domain.ErrReadOnly
	}
	s.records = domain.CloneRecords(records)
	return nil
}

// Writable reports whether Save persists.
func (s *KnowledgeStore) Writable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.readOnly
}
