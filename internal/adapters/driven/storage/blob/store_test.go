package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
)

// fakeBlob is an in-memory document server.
type fakeBlob struct {
	mu       sync.Mutex
	document []byte
	status   int
	lastReq  *http.Request
	puts     int
	token    string
}

func (f *fakeBlob) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReq = r

	switch r.Method {
	case http.MethodGet:
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		if f.document == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(f.document)
	case http.MethodPut:
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.document = body
		f.puts++
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T, fake *fakeBlob, token string) *KnowledgeStore {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	store, err := NewKnowledgeStore(Config{URL: server.URL + "/kb.json?v=1", WriteToken: token})
	require.NoError(t, err)
	return store
}

func TestNewKnowledgeStore_Validation(t *testing.T) {
	_, err := NewKnowledgeStore(Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewKnowledgeStore(Config{URL: "not a url"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestKnowledgeStore_LoadMissingDocument(t *testing.T) {
	store := newTestStore(t, &fakeBlob{}, "")

	records, err := store.Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestKnowledgeStore_LoadBypassesCaches(t *testing.T) {
	fake := &fakeBlob{document: []byte(`[{"question":"Q","answer":"A"}]`)}
	store := newTestStore(t, fake, "")
	store.now = func() time.Time { return time.Unix(0, 42) }

	records, err := store.Load(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "no-cache", fake.lastReq.Header.Get("Cache-Control"))
	assert.Equal(t, "42", fake.lastReq.URL.Query().Get(cacheBustParam))
	assert.Equal(t, "1", fake.lastReq.URL.Query().Get("v"), "existing query parameters are kept")
}

func TestKnowledgeStore_LoadServerError(t *testing.T) {
	store := newTestStore(t, &fakeBlob{status: http.StatusBadGateway}, "")

	_, err := store.Load(context.Background())

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestKnowledgeStore_ReadOnlyWithoutToken(t *testing.T) {
	fake := &fakeBlob{}
	store := newTestStore(t, fake, "")

	err := store.Save(context.Background(), []domain.KnowledgeRecord{domain.NewQARecord("Q", "A")})

	assert.ErrorIs(t, err, domain.ErrReadOnly)
	assert.False(t, store.Writable())
	assert.Zero(t, fake.puts)
}

func TestKnowledgeStore_SaveAndLoad(t *testing.T) {
	fake := &fakeBlob{token: "secret"}
	store := newTestStore(t, fake, "secret")
	ctx := context.Background()
	records := []domain.KnowledgeRecord{
		domain.NewQARecord("Do you offer SSO?", "Yes, via SAML 2.0 and OIDC."),
		domain.NewContextRecord("Security overview"),
	}

	require.NoError(t, store.Save(ctx, records))
	loaded, err := store.Load(ctx)

	require.NoError(t, err)
	assert.Equal(t, records, loaded)
	assert.Equal(t, 1, fake.puts)
}

func TestKnowledgeStore_SaveRejected(t *testing.T) {
	fake := &fakeBlob{token: "right"}
	store := newTestStore(t, fake, "wrong")

	err := store.Save(context.Background(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
