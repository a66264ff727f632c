package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Veraticus/local-guide/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnthropicClient(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "valid config", config: Config{APIKey: "test-key"}},
		{name: "missing API key", config: Config{}, wantErr: true},
		{name: "custom model", config: Config{APIKey: "test-key", Model: "claude-3-opus-20240229"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newAnthropicClient(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestAnthropicComplete(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
			"content": [{"type": "text", "text": "Jigarthanda is "}, {"type": "text", "text": "a cold drink."}]
		}`))
	}))
	defer server.Close()

	client, err := newAnthropicClient(Config{APIKey: "test-key", Model: "claude-test", BaseURL: server.URL})
	require.NoError(t, err)

	completion, err := client.Complete(context.Background(),
		Prompt{System: "only the context", User: "What is Jigarthanda?"},
		Options{Temperature: 0.1, MaxTokens: 256})
	require.NoError(t, err)

	assert.Equal(t, "Jigarthanda is a cold drink.", completion.Text)
	assert.Equal(t, "claude-test", completion.Model)
	assert.Equal(t, "only the context", got["system"])
	assert.InDelta(t, 0.1, got["temperature"], 1e-9)
	assert.InDelta(t, 256, got["max_tokens"], 1e-9)
}

func TestAnthropicComplete_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   error
		retryable bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, wantErr: common.ErrRateLimit, retryable: true},
		{name: "server error", status: http.StatusServiceUnavailable, wantErr: common.ErrCompletionUnavailable, retryable: true},
		{name: "bad key", status: http.StatusUnauthorized, wantErr: common.ErrCompletionUnavailable, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"type":"error"}`))
			}))
			defer server.Close()

			client, err := newAnthropicClient(Config{APIKey: "k", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = client.Complete(context.Background(), Prompt{User: "q"}, Options{MaxTokens: 10})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.retryable, common.IsRetryable(err))
		})
	}
}

func TestAnthropicComplete_Deadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, err := newAnthropicClient(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.Complete(ctx, Prompt{User: "q"}, Options{MaxTokens: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
