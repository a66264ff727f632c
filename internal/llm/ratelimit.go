package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// rateLimited wraps a Completer with a token bucket.
type rateLimited struct {
	next    Completer
	limiter *rate.Limiter
}

// WithRateLimit returns a Completer that admits at most rps calls per second
// with the given burst. rps <= 0 returns next unchanged.
func WithRateLimit(next Completer, rps float64, burst int) Completer {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *rateLimited) Name() string {
	return r.next.Name()
}

// Complete waits for a token and delegates.
func (r *rateLimited) Complete(ctx context.Context, prompt Prompt, opts Options) (Completion, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Completion{}, fmt.Errorf("rate limiter canceled: %w", ctxErr)
		}
		return Completion{}, fmt.Errorf("rate limiter: %w", err)
	}
	return r.next.Complete(ctx, prompt, opts)
}
