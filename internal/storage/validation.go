package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/local-guide/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrInvalidInteraction = errors.New("invalid interaction")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateInteraction checks the fields the schema requires.
func validateInteraction(in model.Interaction) error {
	if in.Seq < 1 {
		return fmt.Errorf("%w: seq must be positive, got %d", ErrInvalidInteraction, in.Seq)
	}
	if in.Query.SubmittedAt.IsZero() {
		return fmt.Errorf("%w: submission time is required", ErrInvalidInteraction)
	}
	if in.Response.Text == "" {
		return fmt.Errorf("%w: response text is required", ErrInvalidInteraction)
	}
	if in.Response.Status != model.StatusSuccess && in.Response.Status != model.StatusError {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInteraction, in.Response.Status)
	}
	if in.Response.IsRefusal && !model.IsRefusalPhrase(in.Response.Text) {
		return fmt.Errorf("%w: refusal text is not a refusal phrase", ErrInvalidInteraction)
	}
	return nil
}
