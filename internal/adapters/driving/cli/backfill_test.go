package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
)

func TestBackfillCmd_WithoutEmbeddingProvider(t *testing.T) {
	setupTestServices(t, sampleCorpus()...)

	_, err := executeCommand("", "backfill")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no embedding provider configured")
}

func TestBackfillCmd_DryRunCountsMissing(t *testing.T) {
	embedding := &fakeEmbedding{}
	env := setupTestServicesWithEmbedding(t, embedding, sampleCorpus()...)

	out, err := executeCommand("", "backfill", "--dry-run")

	require.NoError(t, err)
	assert.Contains(t, out, "Missing embeddings: 3")
	assert.Contains(t, out, "Dry run, corpus not modified.")
	assert.Zero(t, embedding.calls)

	records, err := env.store.Load(context.Background())
	require.NoError(t, err)
	for _, r := range records {
		assert.False(t, r.HasEmbedding())
	}
}

func TestBackfillCmd_EmbedsAndAssignsIDs(t *testing.T) {
	embedding := &fakeEmbedding{}
	embedded := domain.NewQARecord("Already embedded?", "Yes, it already has a vector.")
	embedded.ID = "done"
	embedded.Embedding = []float32{0, 1}
	unnamed := domain.NewContextRecord("A passage without an identifier.")

	env := setupTestServicesWithEmbedding(t, embedding, embedded, unnamed)

	out, err := executeCommand("", "backfill", "--batch-size", "1")

	require.NoError(t, err)
	assert.Contains(t, out, "Missing embeddings: 1")
	assert.Contains(t, out, "Embedded:           1")
	assert.Contains(t, out, "Assigned IDs:       1")
	assert.Equal(t, 1, embedding.calls)

	records, err := env.store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []float32{0, 1}, records[0].Embedding)
	assert.Equal(t, []float32{1, 0}, records[1].Embedding)
	assert.Equal(t, "id-001", records[1].ID)
}

func TestBackfillCmd_ReportsFailedBatches(t *testing.T) {
	embedding := &fakeEmbedding{err: assert.AnError}
	env := setupTestServicesWithEmbedding(t, embedding, sampleCorpus()...)

	out, err := executeCommand("", "backfill")

	require.NoError(t, err)
	assert.Contains(t, out, "Embedded:           0")
	assert.Contains(t, out, "Failed:             3")

	records, err := env.store.Load(context.Background())
	require.NoError(t, err)
	for _, r := range records {
		assert.False(t, r.HasEmbedding())
	}
}
