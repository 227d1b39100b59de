package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
	"github.com/custodia-labs/rfpkb/internal/logger"
)

// DefaultLoadTimeout bounds a corpus load when no timeout is configured.
const DefaultLoadTimeout = 10 * time.Second

// Corpus is the accessor every service uses to reach the knowledge store.
//
// Reads are never cached. Load converts every failure into an empty corpus;
// Save against a store without a write credential is a logged no-op.
type Corpus struct {
	store       driven.KnowledgeStore
	loadTimeout time.Duration
}

// NewCorpus wraps a knowledge store. A non-positive timeout uses DefaultLoadTimeout.
func NewCorpus(store driven.KnowledgeStore, loadTimeout time.Duration) *Corpus {
	if loadTimeout <= 0 {
		loadTimeout = DefaultLoadTimeout
	}
	return &Corpus{store: store, loadTimeout: loadTimeout}
}

// Load fetches the corpus, returning an empty slice on any failure.
func (c *Corpus) Load(ctx context.Context) []domain.KnowledgeRecord {
	records, err := c.LoadStrict(ctx)
	if err != nil {
		logger.Warn("Corpus load failed, continuing with empty corpus: %v", err)
		return []domain.KnowledgeRecord{}
	}
	return records
}

// LoadStrict fetches the corpus and reports failures. Write paths use it so
// a store outage is never mistaken for an empty corpus.
func (c *Corpus) LoadStrict(ctx context.Context) ([]domain.KnowledgeRecord, error) {
	if c == nil || c.store == nil {
		return nil, domain.ErrStoreUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, c.loadTimeout)
	defer cancel()

	type loadResult struct {
		records []domain.KnowledgeRecord
		err     error
	}
	done := make(chan loadResult, 1)
	go func() {
		records, err := c.store.Load(ctx)
		done <- loadResult{records: records, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, res.err)
		}
		if res.records == nil {
			res.records = []domain.KnowledgeRecord{}
		}
		logger.Debug("Loaded %d records", len(res.records))
		return res.records, nil
	}
}

// Save replaces the stored corpus. Read-only stores report Persisted=false
// without an error.
func (c *Corpus) Save(ctx context.Context, records []domain.KnowledgeRecord) (domain.SaveResult, error) {
	result := domain.SaveResult{Records: len(records)}
	if c == nil || c.store == nil {
		return result, domain.ErrStoreUnavailable
	}

	if !c.store.Writable() {
		logger.Info("Store is read-only, skipping save of %d records", len(records))
		return result, nil
	}

	if err := c.store.Save(ctx, records); err != nil {
		if errors.Is(err, domain.ErrReadOnly) {
			logger.Info("Store rejected write as read-only, skipping save")
			return result, nil
		}
		return result, fmt.Errorf("save corpus: %w", err)
	}

	result.Persisted = true
	logger.Debug("Saved %d records", len(records))
	return result, nil
}

// Writable reports whether saves will persist.
func (c *Corpus) Writable() bool {
	return c != nil && c.store != nil && c.store.Writable()
}
