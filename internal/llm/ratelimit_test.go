package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCompleter struct {
	calls int
	mu    sync.Mutex
}

func (c *countingCompleter) Name() string { return "counting" }

func (c *countingCompleter) Complete(context.Context, Prompt, Options) (Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return Completion{Text: "ok"}, nil
}

func TestWithRateLimit_Disabled(t *testing.T) {
	next := &countingCompleter{}
	assert.Same(t, Completer(next), WithRateLimit(next, 0, 1))
}

func TestWithRateLimit_Throttles(t *testing.T) {
	next := &countingCompleter{}
	limited := WithRateLimit(next, 20, 1)
	assert.Equal(t, "counting", limited.Name())

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := limited.Complete(context.Background(), Prompt{}, Options{})
		require.NoError(t, err)
	}

	// burst of one at 20/s: the second and third calls each wait ~50ms
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.Equal(t, 3, next.calls)
}

func TestWithRateLimit_Canceled(t *testing.T) {
	next := &countingCompleter{}
	limited := WithRateLimit(next, 0.001, 1)

	_, err := limited.Complete(context.Background(), Prompt{}, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.Complete(ctx, Prompt{}, Options{})
	require.Error(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestNewCompleter(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantName string
		wantErr  bool
	}{
		{name: "openai", cfg: Config{Provider: "openai", APIKey: "k", Model: "m"}, wantName: "openai:m"},
		{name: "anthropic", cfg: Config{Provider: "Anthropic", APIKey: "k", Model: "m"}, wantName: "anthropic:m"},
		{name: "gemini", cfg: Config{Provider: "gemini", APIKey: "k", Model: "m"}, wantName: "gemini:m"},
		{name: "rate limited keeps name", cfg: Config{Provider: "openai", APIKey: "k", Model: "m", RateLimit: 5}, wantName: "openai:m"},
		{name: "missing key", cfg: Config{Provider: "openai"}, wantErr: true},
		{name: "unknown provider", cfg: Config{Provider: "carrier-pigeon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCompleter(context.Background(), tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, c.Name())
		})
	}
}
