package real

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-intake-agent/internal/config"
	"github.com/fairyhunter13/ai-intake-agent/internal/domain"
)

func newServerClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.Config{
		GroqAPIKey:  "test-key",
		GroqBaseURL: srv.URL,
		GroqTimeout: 2 * time.Second,
	})
}

func TestChat_Success(t *testing.T) {
	t.Parallel()
	c := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3-70b-8192", req["model"])
		msgs, ok := req["messages"].([]any)
		require.True(t, ok)
		require.Len(t, msgs, 2)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Hello! Let's get started."}},
			},
			"usage": map[string]any{"total_tokens": 57},
		})
	})

	res, err := c.Chat(context.Background(), domain.ChatRequest{
		Model:        "llama3-70b-8192",
		SystemPrompt: "You are a hiring assistant.",
		UserPrompt:   "Hi",
		Temperature:  0.7,
		MaxTokens:    300,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello! Let's get started.", res.Text)
	assert.Equal(t, 57, res.TotalTokens)
}

func TestChat_RateLimited(t *testing.T) {
	t.Parallel()
	c := newServerClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Chat(context.Background(), domain.ChatRequest{Model: "m", UserPrompt: "q"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamRateLimit))
}

func TestChat_ServerError(t *testing.T) {
	t.Parallel()
	c := newServerClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	})

	_, err := c.Chat(context.Background(), domain.ChatRequest{Model: "m", UserPrompt: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestChat_EmptyCompletion(t *testing.T) {
	t.Parallel()
	c := newServerClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "   "}},
			},
		})
	})

	_, err := c.Chat(context.Background(), domain.ChatRequest{Model: "m", UserPrompt: "q"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmptyCompletion))
}

func TestChat_NoSystemPrompt(t *testing.T) {
	t.Parallel()
	c := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		msgs, ok := req["messages"].([]any)
		require.True(t, ok)
		require.Len(t, msgs, 1)
		first, ok := msgs[0].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "user", first["role"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "reply text"}},
			},
		})
	})

	res, err := c.Chat(context.Background(), domain.ChatRequest{Model: "m", UserPrompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "reply text", res.Text)
}
