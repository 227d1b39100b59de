package objectstore

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
)

// fakeClient keeps objects in a map.
type fakeClient struct {
	objects map[string][]byte
	getErr  error
	putErr  error
	puts    int
}

func (f *fakeClient) get(_ context.Context, bucket, name string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[bucket+"/"+name]
	if !ok {
		return nil, errNoObject
	}
	return data, nil
}

func (f *fakeClient) put(_ context.Context, bucket, name string, data []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[bucket+"/"+name] = data
	f.puts++
	return nil
}

func newTestStore(client *fakeClient, writable bool) *KnowledgeStore {
	return &KnowledgeStore{client: client, bucket: "kb", object: DefaultObject, writable: writable}
}

func TestNewKnowledgeStore(t *testing.T) {
	t.Run("requires endpoint and bucket", func(t *testing.T) {
		_, err := NewKnowledgeStore(Config{Bucket: "kb"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = NewKnowledgeStore(Config{Endpoint: "localhost:9000"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("secret key enables writes", func(t *testing.T) {
		store, err := NewKnowledgeStore(Config{
			Endpoint:  "localhost:9000",
			Bucket:    "kb",
			AccessKey: "minio",
			SecretKey: "minio123",
		})
		require.NoError(t, err)
		assert.True(t, store.Writable())
		assert.Equal(t, DefaultObject, store.object)
	})

	t.Run("no secret key is read-only", func(t *testing.T) {
		store, err := NewKnowledgeStore(Config{Endpoint: "localhost:9000", Bucket: "kb", Object: "rfp/kb.json"})
		require.NoError(t, err)
		assert.False(t, store.Writable())
		assert.Equal(t, "rfp/kb.json", store.object)
	})
}

func TestKnowledgeStore_LoadMissingObject(t *testing.T) {
	store := newTestStore(&fakeClient{}, true)

	records, err := store.Load(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestKnowledgeStore_LoadFailure(t *testing.T) {
	store := newTestStore(&fakeClient{getErr: errors.New("connection refused")}, true)

	_, err := store.Load(context.Background())

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestKnowledgeStore_SaveAndLoad(t *testing.T) {
	client := &fakeClient{}
	store := newTestStore(client, true)
	ctx := context.Background()
	records := []domain.KnowledgeRecord{domain.NewQARecord("Q", "An answer")}

	require.NoError(t, store.Save(ctx, records))
	loaded, err := store.Load(ctx)

	require.NoError(t, err)
	assert.Equal(t, records, loaded)
	assert.Contains(t, client.objects, "kb/"+DefaultObject)
}

func TestKnowledgeStore_SaveReadOnly(t *testing.T) {
	client := &fakeClient{}
	store := newTestStore(client, false)

	err := store.Save(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrReadOnly)
	assert.Zero(t, client.puts)
}

func TestKnowledgeStore_SaveFailure(t *testing.T) {
	store := newTestStore(&fakeClient{putErr: errors.New("access denied")}, true)

	err := store.Save(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestKnowledgeStore_NonArrayObject(t *testing.T) {
	client := &fakeClient{objects: map[string][]byte{"kb/" + DefaultObject: []byte(`{"version": 2}`)}}
	store := newTestStore(client, false)

	records, err := store.Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClassify(t *testing.T) {
	err := classify("kb", "corpus.json", minio.ErrorResponse{Code: "NoSuchKey"})
	assert.ErrorIs(t, err, errNoObject)

	err = classify("kb", "corpus.json", minio.ErrorResponse{Code: "NoSuchBucket"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, errNoObject)
	assert.Contains(t, err.Error(), "kb/corpus.json")
}
