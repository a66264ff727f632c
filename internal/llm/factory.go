package llm

import (
	"context"
	"fmt"
	"strings"
)

// NewCompleter creates the configured provider, wrapped with a rate limiter
// when cfg.RateLimit is positive.
func NewCompleter(ctx context.Context, cfg Config) (Completer, error) {
	var (
		c   Completer
		err error
	)

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		c, err = newOpenAIClient(cfg)
	case "anthropic":
		c, err = newAnthropicClient(cfg)
	case "gemini":
		c, err = newGeminiClient(ctx, cfg)
	case "claudecode":
		c, err = newClaudeCodeClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return WithRateLimit(c, cfg.RateLimit, cfg.Burst), nil
}
