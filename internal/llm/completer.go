package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Veraticus/local-guide/internal/common"
)

// Prompt is a rendered system/user prompt pair.
type Prompt struct {
	System string
	User   string
}

// Options are per-call completion parameters.
type Options struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Completion is a provider's raw text output.
type Completion struct {
	Text  string
	Model string
}

// Completer produces text for a prompt. Implementations must honor ctx
// cancellation and deadlines and must be safe for concurrent use.
type Completer interface {
	Complete(ctx context.Context, prompt Prompt, opts Options) (Completion, error)
	Name() string
}

// Config selects and configures a provider.
type Config struct {
	Provider       string
	APIKey         string
	Model          string
	BaseURL        string
	ClaudeCodePath string
	RateLimit      float64
	Burst          int
}

// statusError converts a non-200 provider response into an error the
// retry layer understands: 429 and 5xx are transient, everything else is
// permanent.
func statusError(provider string, status int, body string) error {
	base := fmt.Errorf("%s API error (status %d): %s", provider, status, truncate(body, 512))
	switch {
	case status == http.StatusTooManyRequests:
		return &common.RetryableError{Err: fmt.Errorf("%w: %w", common.ErrRateLimit, base), Retryable: true}
	case status >= 500:
		return &common.RetryableError{Err: fmt.Errorf("%w: %w", common.ErrCompletionUnavailable, base), Retryable: true}
	default:
		return &common.RetryableError{Err: fmt.Errorf("%w: %w", common.ErrCompletionUnavailable, base), Retryable: false}
	}
}

// transportError marks network failures as transient unless the caller's
// context ended them.
func transportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s request failed: %w", provider, err)
	}
	return &common.RetryableError{
		Err:       fmt.Errorf("%w: %s request failed: %w", common.ErrCompletionUnavailable, provider, err),
		Retryable: true,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
