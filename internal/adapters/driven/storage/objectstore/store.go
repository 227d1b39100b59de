// Package objectstore stores the knowledge corpus as a single object in an
// S3-compatible bucket (AWS S3, MinIO, R2 and similar).
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/custodia-labs/rfpkb/internal/adapters/driven/storage/corpus"
	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
	"github.com/custodia-labs/rfpkb/internal/logger"
)

// Ensure KnowledgeStore implements the interface.
var _ driven.KnowledgeStore = (*KnowledgeStore)(nil)

// Defaults.
const (
	DefaultObject = "corpus.json"
	DefaultRegion = "us-east-1"
)

// errNoObject marks a missing corpus object.
var errNoObject = errors.New("object does not exist")

// Config holds S3 connection settings.
type Config struct {
	Endpoint  string
	Bucket    string
	Object    string
	Region    string
	AccessKey string
	// SecretKey authorises writes. Anonymous reads are used when empty.
	SecretKey string
	UseSSL    bool
}

// objectClient is the slice of the S3 API the store needs.
type objectClient interface {
	get(ctx context.Context, bucket, name string) ([]byte, error)
	put(ctx context.Context, bucket, name string, data []byte) error
}

// KnowledgeStore reads and replaces one corpus object.
type KnowledgeStore struct {
	client   objectClient
	bucket   string
	object   string
	writable bool
}

// NewKnowledgeStore creates a store backed by minio-go.
func NewKnowledgeStore(cfg Config) (*KnowledgeStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 endpoint and bucket are required", domain.ErrInvalidInput)
	}
	if cfg.Object == "" {
		cfg.Object = DefaultObject
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	opts := &minio.Options{
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.SecretKey != "" {
		opts.Creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	} else {
		opts.Creds = credentials.NewStatic("", "", "", credentials.SignatureAnonymous)
	}

	mc, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	return &KnowledgeStore{
		client:   &minioClient{mc: mc},
		bucket:   cfg.Bucket,
		object:   cfg.Object,
		writable: cfg.SecretKey != "",
	}, nil
}

// Load downloads and decodes the corpus object. A missing object is an
// empty corpus.
func (s *KnowledgeStore) Load(ctx context.Context) ([]domain.KnowledgeRecord, error) {
	data, err := s.client.get(ctx, s.bucket, s.object)
	if errors.Is(err, errNoObject) {
		return []domain.KnowledgeRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	records, err := corpus.Decode(data)
	if errors.Is(err, corpus.ErrNotArray) {
		logger.Warn("objectstore: %s/%s is not a record array, treating corpus as empty", s.bucket, s.object)
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s/%s: %w", s.bucket, s.object, err)
	}
	return records, nil
}

// Save uploads the encoded corpus, replacing the object.
func (s *KnowledgeStore) Save(ctx context.Context, records []domain.KnowledgeRecord) error {
	if !s.writable {
		return domain.ErrReadOnly
	}

	data, err := corpus.Encode(records)
	if err != nil {
		return fmt.Errorf("encoding corpus: %w", err)
	}
	if err := s.client.put(ctx, s.bucket, s.object, data); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	logger.Debug("objectstore: uploaded %s/%s (%d records, %d bytes)", s.bucket, s.object, len(records), len(data))
	return nil
}

// Writable reports whether a secret key is configured.
func (s *KnowledgeStore) Writable() bool {
	return s.writable
}

// minioClient adapts *minio.Client to objectClient.
type minioClient struct {
	mc *minio.Client
}

func (c *minioClient) get(ctx context.Context, bucket, name string) ([]byte, error) {
	obj, err := c.mc.GetObject(ctx, bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify(bucket, name, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classify(bucket, name, err)
	}
	return data, nil
}

func (c *minioClient) put(ctx context.Context, bucket, name string, data []byte) error {
	_, err := c.mc.PutObject(ctx, bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", bucket, name, err)
	}
	return nil
}

// classify maps a missing key to errNoObject. A missing bucket stays an
// error: that is a configuration problem, not an empty corpus.
func classify(bucket, name string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return errNoObject
	}
	return fmt.Errorf("get %s/%s: %w", bucket, name, err)
}
