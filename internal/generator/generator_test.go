package generator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/local-guide/internal/common"
	"github.com/Veraticus/local-guide/internal/llm"
	"github.com/Veraticus/local-guide/internal/model"
	"github.com/Veraticus/local-guide/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boundContext(t *testing.T, city model.City, text string) model.Context {
	t.Helper()
	return model.Context{City: city, Text: text, Fingerprint: model.Fingerprint(text), BoundAt: time.Now()}
}

func testQuery(text string) model.Query {
	return model.Query{
		Text:           text,
		City:           "madurai",
		SubmittedAt:    time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC),
		Classification: model.ClassificationAccepted,
		Topic:          model.TopicFood,
	}
}

func TestGenerate_Success(t *testing.T) {
	completer := &testutil.StaticCompleter{Text: "  Jigarthanda is a cold drink.  "}
	g, err := New(completer, llm.Options{Temperature: 0.1, MaxTokens: 100, Timeout: time.Second}, common.DiscardLogger())
	require.NoError(t, err)

	c := boundContext(t, "madurai", testutil.MaduraiKnowledge)
	candidate, err := g.Generate(context.Background(), testQuery("What is Jigarthanda?"), c)
	require.NoError(t, err)

	assert.Equal(t, "Jigarthanda is a cold drink.", candidate.Text)
	assert.Equal(t, c, candidate.Context)
	assert.Equal(t, "static", candidate.Model)
	require.Equal(t, 1, completer.Calls())
	assert.Contains(t, completer.Prompts()[0].System, "Jigarthanda is a cold drink made with milk")
}

func TestGenerate_Failures(t *testing.T) {
	c := boundContext(t, "madurai", testutil.MaduraiKnowledge)

	tests := []struct {
		completer  llm.Completer
		name       string
		wantReason FailureReason
		retryable  bool
	}{
		{
			name:       "empty output",
			completer:  &testutil.StaticCompleter{Text: "   \n"},
			wantReason: FailureEmptyOutput,
		},
		{
			name: "transient provider error",
			completer: &testutil.StaticCompleter{Err: &common.RetryableError{
				Err: common.ErrCompletionUnavailable, Retryable: true,
			}},
			wantReason: FailureUnavailable,
			retryable:  true,
		},
		{
			name: "permanent provider error",
			completer: &testutil.StaticCompleter{Err: &common.RetryableError{
				Err: common.ErrCompletionUnavailable, Retryable: false,
			}},
			wantReason: FailureUnavailable,
		},
		{
			name: "timeout",
			completer: testutil.CompleterFunc(func(ctx context.Context, _ llm.Prompt, _ llm.Options) (llm.Completion, error) {
				<-ctx.Done()
				return llm.Completion{}, ctx.Err()
			}),
			wantReason: FailureTimeout,
			retryable:  true,
		},
		{
			name: "timeout ignored by provider",
			completer: testutil.CompleterFunc(func(ctx context.Context, _ llm.Prompt, _ llm.Options) (llm.Completion, error) {
				<-ctx.Done()
				return llm.Completion{}, errors.New("connection reset")
			}),
			wantReason: FailureTimeout,
			retryable:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.completer, llm.Options{MaxTokens: 10, Timeout: 30 * time.Millisecond}, common.DiscardLogger())
			require.NoError(t, err)

			candidate, err := g.Generate(context.Background(), testQuery("What is Jigarthanda?"), c)
			require.Error(t, err)
			assert.Empty(t, candidate.Text)

			genErr, ok := AsGenerationError(err)
			require.True(t, ok, "expected *GenerationError, got %T", err)
			assert.Equal(t, tt.wantReason, genErr.Reason)
			assert.Equal(t, tt.retryable, genErr.Retryable())
			assert.Equal(t, tt.retryable, common.IsRetryable(err))
		})
	}
}

func TestGenerationError_DecidesRetry(t *testing.T) {
	empty := fmt.Errorf("attempt 1: %w", &GenerationError{Reason: FailureEmptyOutput, Err: common.ErrCompletionUnavailable})
	assert.False(t, common.IsRetryable(empty))

	timeout := &GenerationError{Reason: FailureTimeout, Err: errors.New("connection reset")}
	assert.True(t, common.IsRetryable(timeout))
}

func TestGenerate_CallerCanceled(t *testing.T) {
	started := make(chan struct{})
	completer := testutil.CompleterFunc(func(ctx context.Context, _ llm.Prompt, _ llm.Options) (llm.Completion, error) {
		close(started)
		<-ctx.Done()
		return llm.Completion{}, ctx.Err()
	})
	g, err := New(completer, llm.Options{MaxTokens: 10, Timeout: time.Minute}, common.DiscardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err = g.Generate(ctx, testQuery("What is Jigarthanda?"), boundContext(t, "madurai", testutil.MaduraiKnowledge))
	require.ErrorIs(t, err, context.Canceled)
	_, isGenErr := AsGenerationError(err)
	assert.False(t, isGenErr)
}

func TestGenerate_AlreadyCanceled(t *testing.T) {
	completer := &testutil.StaticCompleter{Text: "x"}
	g, err := New(completer, llm.Options{}, common.DiscardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = g.Generate(ctx, testQuery("food"), boundContext(t, "madurai", testutil.MaduraiKnowledge))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, completer.Calls())
}

func TestNew(t *testing.T) {
	_, err := New(nil, llm.Options{}, nil)
	require.ErrorIs(t, err, common.ErrMissingConfig)

	g, err := New(&testutil.StaticCompleter{}, llm.Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions().MaxTokens, g.Options().MaxTokens)
	assert.Equal(t, DefaultOptions().Timeout, g.Options().Timeout)
	assert.Equal(t, "static", g.Name())
}
