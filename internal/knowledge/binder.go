package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Veraticus/local-guide/internal/common"
	"github.com/Veraticus/local-guide/internal/model"
	"github.com/Veraticus/local-guide/internal/service"
)

// DefaultMinLength is the shortest knowledge text (in runes) accepted.
const DefaultMinLength = 200

// Binder turns a city and its raw knowledge text into a bound Context.
type Binder struct {
	registry  *Registry
	logger    *slog.Logger
	now       func() time.Time
	minLength int
}

// Option configures a Binder.
type Option func(*Binder)

// WithMinLength overrides DefaultMinLength.
func WithMinLength(n int) Option {
	return func(b *Binder) {
		if n > 0 {
			b.minLength = n
		}
	}
}

// WithLogger sets the logger used for isolation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Binder) {
		b.now = now
	}
}

// NewBinder creates a binder over the given registry.
func NewBinder(registry *Registry, opts ...Option) *Binder {
	b := &Binder{
		registry:  registry,
		logger:    slog.Default(),
		now:       time.Now,
		minLength: DefaultMinLength,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Registry exposes the registry the binder validates against.
func (b *Binder) Registry() *Registry {
	return b.registry
}

// Bind validates raw and returns an immutable Context for city.
// The same text always yields the same fingerprint.
func (b *Binder) Bind(city model.City, raw string) (model.Context, error) {
	city = model.NormalizeCity(string(city))
	if !b.registry.Contains(city) {
		return model.Context{}, fmt.Errorf("%w: %q (available: %s)", common.ErrUnknownCity, city, b.registry.Names())
	}

	if !utf8.ValidString(raw) {
		return model.Context{}, fmt.Errorf("%w: knowledge for %s is not valid UTF-8", common.ErrEmptyKnowledge, city)
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return model.Context{}, fmt.Errorf("%w: knowledge for %s is blank", common.ErrEmptyKnowledge, city)
	}
	if n := utf8.RuneCountInString(trimmed); n < b.minLength {
		return model.Context{}, fmt.Errorf("%w: knowledge for %s has %d characters, need at least %d",
			common.ErrEmptyKnowledge, city, n, b.minLength)
	}

	bound := model.Context{
		City:        city,
		Text:        trimmed,
		Fingerprint: model.Fingerprint(trimmed),
		BoundAt:     b.now(),
	}

	for _, w := range CheckIsolation(bound, b.registry) {
		b.logger.Warn("knowledge isolation warning", "city", city, "warning", w)
	}

	b.logger.Debug("bound knowledge",
		"city", city,
		"fingerprint", bound.ShortFingerprint(),
		"chars", utf8.RuneCountInString(trimmed))

	return bound, nil
}

// Load fetches the city's text from source and binds it.
func (b *Binder) Load(ctx context.Context, source service.KnowledgeSource, city model.City) (model.Context, error) {
	city = model.NormalizeCity(string(city))
	if !b.registry.Contains(city) {
		return model.Context{}, fmt.Errorf("%w: %q (available: %s)", common.ErrUnknownCity, city, b.registry.Names())
	}

	raw, err := source.Load(ctx, city)
	if err != nil {
		return model.Context{}, fmt.Errorf("failed to load knowledge for %s: %w", city, err)
	}
	return b.Bind(city, raw)
}
