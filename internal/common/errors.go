// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Knowledge errors.
	ErrUnknownCity       = errors.New("unknown city")
	ErrEmptyKnowledge    = errors.New("knowledge text is empty or too short")
	ErrKnowledgeNotFound = errors.New("knowledge source not found")

	// Session errors.
	ErrNoCityBound     = errors.New("no city selected")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")

	// Completion errors.
	ErrCompletionUnavailable = errors.New("completion capability unavailable")
	ErrEmptyCompletion       = errors.New("completion returned empty output")

	// Storage errors.
	ErrNotFound = errors.New("not found")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsSetupError reports whether err means the selected city itself is unusable.
func IsSetupError(err error) bool {
	return errors.Is(err, ErrUnknownCity) ||
		errors.Is(err, ErrEmptyKnowledge) ||
		errors.Is(err, ErrKnowledgeNotFound)
}

// IsRetryable determines if an error should trigger a retry.
// Caller cancellation is never retryable; a per-attempt deadline is. Errors
// with a Retryable method decide for themselves.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var retrier interface{ Retryable() bool }
	if errors.As(err, &retrier) {
		return retrier.Retryable()
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrCompletionUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}
