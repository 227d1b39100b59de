package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/rfpkb/internal/adapters/driven/storage/corpus"
	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
	"github.com/custodia-labs/rfpkb/internal/logger"
)

// KnowledgeStore keeps the corpus as a history of full snapshots.
// Load reads the newest snapshot; Save appends one and prunes old ones.
type KnowledgeStore struct {
	store *Store
}

var (
	_ driven.KnowledgeStore = (*KnowledgeStore)(nil)
	_ driven.SnapshotStore  = (*KnowledgeStore)(nil)
)

// Load decodes the newest snapshot. No snapshot is an empty corpus.
func (k *KnowledgeStore) Load(ctx context.Context) ([]domain.KnowledgeRecord, error) {
	var payload string
	err := k.store.db.QueryRowContext(ctx, `
		SELECT payload FROM corpus_snapshots ORDER BY id DESC LIMIT 1
	`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return []domain.KnowledgeRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading latest snapshot: %w", err)
	}

	records, err := corpus.Decode([]byte(payload))
	if errors.Is(err, corpus.ErrNotArray) {
		logger.Warn("sqlite: latest snapshot is not an array, treating corpus as empty")
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return records, nil
}

// Save appends a snapshot of records.
func (k *KnowledgeStore) Save(ctx context.Context, records []domain.KnowledgeRecord) error {
	payload, err := corpus.Encode(records)
	if err != nil {
		return fmt.Errorf("encoding corpus: %w", err)
	}

	_, err = k.store.db.ExecContext(ctx, `
		INSERT INTO corpus_snapshots (saved_at, record_count, payload) VALUES (?, ?, ?)
	`, time.Now().UTC().Format(time.RFC3339Nano), len(records), string(payload))
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	if k.store.retention > 0 {
		if err := k.Prune(ctx, k.store.retention); err != nil {
			logger.Warn("sqlite: pruning snapshots failed: %v", err)
		}
	}
	return nil
}

// Writable is always true for the local database.
func (k *KnowledgeStore) Writable() bool {
	return true
}

// Prune keeps only the newest keep snapshots.
func (k *KnowledgeStore) Prune(ctx context.Context, keep int) error {
	if keep < 1 {
		return fmt.Errorf("%w: keep must be at least 1", domain.ErrInvalidInput)
	}
	_, err := k.store.db.ExecContext(ctx, `
		DELETE FROM corpus_snapshots
		WHERE id NOT IN (SELECT id FROM corpus_snapshots ORDER BY id DESC LIMIT ?)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning snapshots: %w", err)
	}
	return nil
}

// Snapshots lists saved versions, newest first.
func (k *KnowledgeStore) Snapshots(ctx context.Context) ([]domain.CorpusSnapshot, error) {
	rows, err := k.store.db.QueryContext(ctx, `
		SELECT id, saved_at, record_count FROM corpus_snapshots ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []domain.CorpusSnapshot //nolint:prealloc // size unknown from query
	for rows.Next() {
		var snap domain.CorpusSnapshot
		var savedAt string
		if err := rows.Scan(&snap.ID, &savedAt, &snap.RecordCount); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, savedAt); err == nil {
			snap.SavedAt = t
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snapshots, nil
}
