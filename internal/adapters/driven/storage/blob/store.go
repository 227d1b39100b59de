// Package blob stores the knowledge corpus as a JSON document behind an
// HTTP URL, such as a hosted blob store or a static bucket endpoint.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/custodia-labs/rfpkb/internal/adapters/driven/storage/corpus"
	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
	"github.com/custodia-labs/rfpkb/internal/logger"
)

// Ensure KnowledgeStore implements the interface.
var _ driven.KnowledgeStore = (*KnowledgeStore)(nil)

// DefaultTimeout bounds each HTTP request.
const DefaultTimeout = 30 * time.Second

// cacheBustParam is appended to GET requests so intermediaries cannot
// serve a stale document.
const cacheBustParam = "_rfpkb"

// Config holds configuration for the blob store.
type Config struct {
	// URL is the document location (required).
	URL string

	// WriteToken is sent as a bearer token on PUT. Empty means read-only.
	WriteToken string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration
}

// KnowledgeStore reads the corpus with GET and replaces it with PUT.
type KnowledgeStore struct {
	client *http.Client
	url    *url.URL
	token  string
	now    func() time.Time
}

// NewKnowledgeStore creates a blob store.
func NewKnowledgeStore(cfg Config) (*KnowledgeStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: blob store URL is required", domain.ErrInvalidInput)
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid blob store URL %q", domain.ErrInvalidInput, cfg.URL)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &KnowledgeStore{
		client: &http.Client{Timeout: cfg.Timeout},
		url:    u,
		token:  cfg.WriteToken,
		now:    time.Now,
	}, nil
}

// Load fetches the current document. 404 is an empty corpus.
func (s *KnowledgeStore) Load(ctx context.Context) ([]domain.KnowledgeRecord, error) {
	u := *s.url
	q := u.Query()
	q.Set(cacheBustParam, strconv.FormatInt(s.now().UnixNano(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return []domain.KnowledgeRecord{}, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: blob GET returned status %d", domain.ErrStoreUnavailable, resp.StatusCode)
	}

	records, err := corpus.Decode(body)
	if errors.Is(err, corpus.ErrNotArray) {
		logger.Warn("blob: document at %s is not a record array, treating corpus as empty", s.url.Redacted())
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decoding blob document: %w", err)
	}
	return records, nil
}

// Save replaces the document. Returns domain.ErrReadOnly without a token.
func (s *KnowledgeStore) Save(ctx context.Context, records []domain.KnowledgeRecord) error {
	if !s.Writable() {
		return domain.ErrReadOnly
	}

	data, err := corpus.Encode(records)
	if err != nil {
		return fmt.Errorf("encoding corpus: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.url.String(), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("blob PUT returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Writable reports whether a write token is configured.
func (s *KnowledgeStore) Writable() bool {
	return s.token != ""
}
