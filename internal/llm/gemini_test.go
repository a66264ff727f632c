package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Veraticus/local-guide/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-test:generateContent"), r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "Try the kari dosa."}]}, "finishReason": "STOP"}]
		}`))
	}))
	defer server.Close()

	client, err := newGeminiClient(context.Background(), Config{APIKey: "k", Model: "gemini-test", BaseURL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, "gemini:gemini-test", client.Name())

	completion, err := client.Complete(context.Background(),
		Prompt{System: "system text", User: "What should I eat?"},
		Options{Temperature: 0.1, MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "Try the kari dosa.", completion.Text)
	assert.Equal(t, "gemini-test", completion.Model)
}

func TestGeminiComplete_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"code": 503, "message": "overloaded", "status": "UNAVAILABLE"}}`))
	}))
	defer server.Close()

	client, err := newGeminiClient(context.Background(), Config{APIKey: "k", Model: "gemini-test", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Prompt{User: "q"}, Options{MaxTokens: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCompletionUnavailable)
	assert.True(t, common.IsRetryable(err))
}

func TestNewGeminiClient_MissingKey(t *testing.T) {
	_, err := newGeminiClient(context.Background(), Config{})
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
