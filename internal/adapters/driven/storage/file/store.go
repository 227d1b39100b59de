// Package file stores the knowledge corpus as a JSON document on local disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/rfpkb/internal/adapters/driven/storage/corpus"
	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
	"github.com/custodia-labs/rfpkb/internal/logger"
)

// Ensure KnowledgeStore implements the interface.
var _ driven.KnowledgeStore = (*KnowledgeStore)(nil)

// DefaultFileName is used when no path is configured.
const DefaultFileName = "corpus.json"

// KnowledgeStore reads and writes the corpus file.
// Writes go to a temp file in the same directory and are renamed into
// place, so a reader never sees a half-written document.
type KnowledgeStore struct {
	path string
}

// NewKnowledgeStore creates a store for path. An empty path uses
// ~/.rfpkb/corpus.json.
func NewKnowledgeStore(path string) (*KnowledgeStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".rfpkb", DefaultFileName)
	}
	return &KnowledgeStore{path: path}, nil
}

// Path returns the corpus file path.
func (s *KnowledgeStore) Path() string {
	return s.path
}

// Load reads the corpus. A missing file is an empty corpus.
func (s *KnowledgeStore) Load(ctx context.Context) ([]domain.KnowledgeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.KnowledgeRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}

	records, err := corpus.Decode(data)
	if errors.Is(err, corpus.ErrNotArray) {
		logger.Warn("file: %s does not hold a record array, treating corpus as empty", s.path)
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decoding corpus file: %w", err)
	}
	return records, nil
}

// Save replaces the corpus file.
func (s *KnowledgeStore) Save(ctx context.Context, records []domain.KnowledgeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := corpus.Encode(records)
	if err != nil {
		return fmt.Errorf("encoding corpus: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating corpus directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".corpus-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing corpus file: %w", err)
	}
	return nil
}

// Writable is always true; permission problems surface from Save.
func (s *KnowledgeStore) Writable() bool {
	return true
}
