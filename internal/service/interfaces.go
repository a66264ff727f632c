// Package service defines the interfaces for the collaborators the pipeline depends on.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/local-guide/internal/model"
)

// KnowledgeSource supplies the raw knowledge text for a city.
// Implementations return common.ErrKnowledgeNotFound when a city has no document.
type KnowledgeSource interface {
	Load(ctx context.Context, city model.City) (string, error)
}

// KnowledgeInvalidator is implemented by sources that cache; the pipeline
// calls it on every city switch.
type KnowledgeInvalidator interface {
	Invalidate(city model.City)
}

// SessionRecord describes a persisted session.
type SessionRecord struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	ID        string
	City      model.City
}

// HistoryStore persists the minimal durable record of a session: the bound
// city and the ordered (Query, Response) pairs.
type HistoryStore interface {
	SaveSession(ctx context.Context, sessionID string, city model.City) error
	AppendInteraction(ctx context.Context, sessionID string, interaction model.Interaction) error
	ClearInteractions(ctx context.Context, sessionID string) error
	ListInteractions(ctx context.Context, sessionID string) ([]model.Interaction, error)
	ListSessions(ctx context.Context) ([]SessionRecord, error)
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
