// Package generator produces candidate answers from a bound city context.
// It never retries and never turns a failure into an answer: every failure
// surfaces as a *GenerationError.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/local-guide/internal/common"
	"github.com/Veraticus/local-guide/internal/llm"
	"github.com/Veraticus/local-guide/internal/model"
)

// FailureReason classifies a generation failure.
type FailureReason string

// Failure reasons.
const (
	FailureUnavailable FailureReason = "unavailable"
	FailureTimeout     FailureReason = "timeout"
	FailureEmptyOutput FailureReason = "empty_output"
)

// GenerationError reports why no candidate was produced.
type GenerationError struct {
	Err    error
	Reason FailureReason
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("generation failed (%s)", e.Reason)
	}
	return fmt.Sprintf("generation failed (%s): %v", e.Reason, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could succeed.
func (e *GenerationError) Retryable() bool {
	switch e.Reason {
	case FailureTimeout:
		return true
	case FailureUnavailable:
		return common.IsRetryable(e.Err)
	default:
		return false
	}
}

// AsGenerationError extracts a *GenerationError from err's chain.
func AsGenerationError(err error) (*GenerationError, bool) {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr, true
	}
	return nil, false
}

// Generator turns an accepted query plus its context into a candidate.
type Generator struct {
	completer llm.Completer
	builder   *PromptBuilder
	logger    *slog.Logger
	opts      llm.Options
}

// DefaultOptions are the completion parameters used when none are given.
func DefaultOptions() llm.Options {
	return llm.Options{
		Temperature: 0.1,
		MaxTokens:   2048,
		Timeout:     30 * time.Second,
	}
}

// New creates a generator. Zero fields in opts fall back to DefaultOptions.
func New(completer llm.Completer, opts llm.Options, logger *slog.Logger) (*Generator, error) {
	if completer == nil {
		return nil, fmt.Errorf("%w: completer is required", common.ErrMissingConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	builder, err := NewPromptBuilder()
	if err != nil {
		return nil, err
	}

	defaults := DefaultOptions()
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaults.MaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}

	return &Generator{
		completer: completer,
		builder:   builder,
		logger:    logger,
		opts:      opts,
	}, nil
}

// Name identifies the underlying completion provider.
func (g *Generator) Name() string {
	return g.completer.Name()
}

// Options returns the per-call completion parameters.
func (g *Generator) Options() llm.Options {
	return g.opts
}

// Generate makes exactly one completion attempt bounded by the configured
// timeout. Cancellation of ctx by the caller is returned as ctx's error, not
// as a GenerationError.
func (g *Generator) Generate(ctx context.Context, q model.Query, c model.Context) (model.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return model.Candidate{}, err
	}

	prompt, err := g.builder.Build(c, q)
	if err != nil {
		return model.Candidate{}, &GenerationError{Reason: FailureUnavailable, Err: err}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	start := time.Now()
	completion, err := g.completer.Complete(attemptCtx, prompt, g.opts)
	elapsed := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.Candidate{}, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			g.logger.Debug("completion timed out", "city", c.City, "timeout", g.opts.Timeout)
			return model.Candidate{}, &GenerationError{
				Reason: FailureTimeout,
				Err:    fmt.Errorf("no completion within %s: %w", g.opts.Timeout, context.DeadlineExceeded),
			}
		}
		g.logger.Debug("completion failed", "city", c.City, "error", err)
		return model.Candidate{}, &GenerationError{Reason: FailureUnavailable, Err: err}
	}

	text := strings.TrimSpace(completion.Text)
	if text == "" {
		return model.Candidate{}, &GenerationError{Reason: FailureEmptyOutput, Err: common.ErrEmptyCompletion}
	}

	g.logger.Debug("candidate generated",
		"city", c.City,
		"provider", g.completer.Name(),
		"duration", elapsed,
		"chars", len(text))

	return model.Candidate{
		Context: c,
		Text:    text,
		Model:   completion.Model,
	}, nil
}
