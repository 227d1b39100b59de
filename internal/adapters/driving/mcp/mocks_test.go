package mcp

import (
	"context"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	result  domain.RetrievalResult
	matches []domain.ScoredCandidate
	upsert  domain.UpsertResult
	err     error

	lastQuery    domain.Query
	lastMethod   string
	lastLimit    int
	lastText     string
	lastUpdate   domain.AnswerUpdate
	lastOverride domain.AnswerOverride
}

func (m *mockRetrievalService) Retrieve(_ context.Context, query domain.Query) domain.RetrievalResult {
	m.lastMethod = "retrieve"
	m.lastQuery = query
	return m.result
}

func (m *mockRetrievalService) RetrieveMatches(
	_ context.Context, embedding []float32, limit int, text string,
) []domain.ScoredCandidate {
	m.lastMethod = "matches"
	m.lastQuery = domain.Query{Embedding: embedding}
	m.lastLimit = limit
	m.lastText = text
	return m.matches
}

func (m *mockRetrievalService) Search(_ context.Context, query domain.Query) domain.RetrievalResult {
	m.lastMethod = "search"
	m.lastQuery = query
	return m.result
}

func (m *mockRetrievalService) UpdateAnswer(
	_ context.Context, update domain.AnswerUpdate,
) (domain.UpsertResult, error) {
	m.lastUpdate = update
	return m.upsert, m.err
}

func (m *mockRetrievalService) SetOverride(_ context.Context, override domain.AnswerOverride) error {
	m.lastOverride = override
	return m.err
}

func (m *mockRetrievalService) ClearOverrides(_ context.Context, _ string) error {
	return m.err
}

// mockMaintenanceService is a mock implementation of driving.MaintenanceService.
type mockMaintenanceService struct {
	report  domain.SanitizeReport
	stats   domain.CorpusStats
	records []domain.KnowledgeRecord
	err     error

	lastOpts domain.SanitizeOptions
}

func (m *mockMaintenanceService) Sanitize(
	_ context.Context, _ []domain.KnowledgeRecord, opts domain.SanitizeOptions,
) (domain.SanitizeReport, error) {
	m.lastOpts = opts
	return m.report, m.err
}

func (m *mockMaintenanceService) SanitizeStore(
	_ context.Context, opts domain.SanitizeOptions,
) (domain.SanitizeReport, error) {
	m.lastOpts = opts
	return m.report, m.err
}

func (m *mockMaintenanceService) Backfill(
	_ context.Context, _ domain.BackfillOptions,
) (domain.BackfillReport, error) {
	return domain.BackfillReport{}, m.err
}

func (m *mockMaintenanceService) Stats(_ context.Context) (domain.CorpusStats, error) {
	return m.stats, m.err
}

func (m *mockMaintenanceService) Export(_ context.Context) ([]domain.KnowledgeRecord, error) {
	return m.records, m.err
}

func (m *mockMaintenanceService) Import(
	_ context.Context, records []domain.KnowledgeRecord, _ bool,
) (domain.SaveResult, error) {
	return domain.SaveResult{Records: len(records), Persisted: true}, m.err
}
