package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rfpkb/internal/core/domain"
	"github.com/custodia-labs/rfpkb/internal/core/ports/driven"
)

const messageResponse = `{
	"id": "msg_01",
	"type": "message",
	"role": "assistant",
	"model": "claude-3-5-haiku-latest",
	"content": [{"type": "text", "text": "[true, false]"}],
	"stop_reason": "end_turn",
	"usage": {"input_tokens": 10, "output_tokens": 4}
}`

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewLLMService(Config{APIKey: "test-key", BaseURL: server.URL, MaxRetries: 0})
	require.NoError(t, err)
	return svc
}

func TestNewLLMService(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.Error(t, err)

	svc, err := NewLLMService(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.NoError(t, svc.Close())
}

func TestLLMService_Generate(t *testing.T) {
	var body map[string]any
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageResponse))
	})

	out, err := svc.Generate(context.Background(), "classify these", driven.GenerateOptions{
		System:    "You are a strict reviewer.",
		MaxTokens: 64,
	})

	require.NoError(t, err)
	assert.Equal(t, "[true, false]", out)
	assert.EqualValues(t, 64, body["max_tokens"])
	assert.NotContains(t, body, "temperature")
	system, ok := body["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
	assert.Equal(t, "You are a strict reviewer.", system[0].(map[string]any)["text"])
}

func TestLLMService_ChatLiftsSystemMessages(t *testing.T) {
	var body map[string]any
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageResponse))
	})

	_, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "user", Content: "again"},
	}, driven.ChatOptions{Temperature: 0.2})

	require.NoError(t, err)
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 3)
	assert.Equal(t, "assistant", messages[1].(map[string]any)["role"])
	assert.InDelta(t, 0.2, body["temperature"], 1e-9)
	assert.EqualValues(t, DefaultMaxTokens, body["max_tokens"])
}

func TestLLMService_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
		})

		_, err := svc.Generate(context.Background(), "x", driven.GenerateOptions{})
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})

	t.Run("no messages", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
			t.Error("no request expected")
		})

		_, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: "system", Content: "s"}}, driven.ChatOptions{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestLLMService_Ping(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[],"has_more":false}`))
	})

	assert.NoError(t, svc.Ping(context.Background()))
}
