// Package pipeline wires the knowledge binder, scope classifier, answer
// generator and hallucination guard into per-session query processing.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Veraticus/local-guide/internal/common"
	"github.com/Veraticus/local-guide/internal/config"
	"github.com/Veraticus/local-guide/internal/generator"
	"github.com/Veraticus/local-guide/internal/guard"
	"github.com/Veraticus/local-guide/internal/knowledge"
	"github.com/Veraticus/local-guide/internal/model"
	"github.com/Veraticus/local-guide/internal/scope"
	"github.com/Veraticus/local-guide/internal/service"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Components are the collaborators an Engine drives. Store is optional.
type Components struct {
	Binder     *knowledge.Binder
	Source     service.KnowledgeSource
	Classifier scope.Classifier
	Generator  Generator
	Guard      guard.Guard
	Store      service.HistoryStore
}

// Config holds the engine's policy settings.
type Config struct {
	Refusals config.RefusalPhrases
	Retry    service.RetryOptions
}

// DefaultConfig returns the stock refusal mapping and retry policy.
func DefaultConfig() Config {
	return Config{
		Refusals: config.DefaultRefusalPhrases(),
		Retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2,
		},
	}
}

// Engine owns the components and the open sessions.
type Engine struct {
	components Components
	refusals   RefusalPolicy
	logger     *slog.Logger
	now        func() time.Time
	sessions   *cache.Cache
	retry      service.RetryOptions
}

// New creates an engine. Every component except Store is required.
func New(components Components, cfg Config, logger *slog.Logger) (*Engine, error) {
	switch {
	case components.Binder == nil:
		return nil, fmt.Errorf("%w: knowledge binder is required", common.ErrMissingConfig)
	case components.Source == nil:
		return nil, fmt.Errorf("%w: knowledge source is required", common.ErrMissingConfig)
	case components.Classifier == nil:
		return nil, fmt.Errorf("%w: scope classifier is required", common.ErrMissingConfig)
	case components.Generator == nil:
		return nil, fmt.Errorf("%w: generator is required", common.ErrMissingConfig)
	case components.Guard == nil:
		return nil, fmt.Errorf("%w: guard is required", common.ErrMissingConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Refusals == (config.RefusalPhrases{}) {
		cfg.Refusals = config.DefaultRefusalPhrases()
	}

	e := &Engine{
		components: components,
		refusals:   NewRefusalPolicy(cfg.Refusals),
		retry:      cfg.Retry,
		logger:     logger,
		now:        time.Now,
		sessions:   cache.New(cache.NoExpiration, 0),
	}
	e.sessions.OnEvicted(e.evicted)
	return e, nil
}

// SetClock replaces time.Now, for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Cities lists the registered cities.
func (e *Engine) Cities() []model.City {
	return e.components.Binder.Registry().Cities()
}

// NewSession opens a session with no city bound. It stays open until it is
// closed explicitly.
func (e *Engine) NewSession() *Session {
	return e.openSession(cache.NoExpiration)
}

// NewExpiringSession opens a session that is closed once it has not been
// looked up for ttl. A ttl of zero or less never expires.
func (e *Engine) NewExpiringSession(ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return e.openSession(ttl)
}

func (e *Engine) openSession(ttl time.Duration) *Session {
	e.sessions.DeleteExpired()

	s := newSession(e, uuid.NewString())
	s.idleTTL = ttl
	e.sessions.Set(s.id, s, ttl)
	activeSessions.Inc()

	e.logger.Debug("session opened", "session", s.id, "idle_ttl", ttl)
	return s
}

// Session returns an open session by ID and restarts its idle timer.
func (e *Engine) Session(id string) (*Session, error) {
	v, ok := e.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrSessionNotFound, id)
	}
	s, ok := v.(*Session)
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrSessionNotFound, id)
	}
	if err := e.sessions.Replace(id, s, s.idleTTL); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrSessionNotFound, id)
	}
	return s, nil
}

// SessionIDs lists the open sessions in sorted order.
func (e *Engine) SessionIDs() []string {
	items := e.sessions.Items()
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CloseSession closes and forgets a session.
func (e *Engine) CloseSession(id string) error {
	if _, ok := e.sessions.Get(id); !ok {
		return fmt.Errorf("%w: %s", common.ErrSessionNotFound, id)
	}
	e.sessions.Delete(id)
	return nil
}

// SweepSessions closes every session whose idle time has run out.
func (e *Engine) SweepSessions() {
	e.sessions.DeleteExpired()
}

// Close closes every session, expired or not.
func (e *Engine) Close() {
	e.sessions.DeleteExpired()
	for id := range e.sessions.Items() {
		e.sessions.Delete(id)
	}
}

// evicted runs whenever a session leaves the registry.
func (e *Engine) evicted(id string, v any) {
	s, ok := v.(*Session)
	if !ok || !s.close() {
		return
	}
	activeSessions.Dec()
	e.logger.Debug("session closed", "session", id)
}

// Ask answers one stateless request: it binds city, runs the pipeline and
// records nothing. Setup errors are returned as errors, not refusals.
func (e *Engine) Ask(ctx context.Context, city model.City, text string) (model.Response, error) {
	submitted := e.now()
	if model.NormalizeCity(string(city)) == "" {
		return e.refuse(model.Context{}, model.ReasonNoCityBound, "no city given"), nil
	}
	c, err := e.bind(ctx, city)
	if err != nil {
		return model.Response{}, err
	}
	resp, _, err := e.run(ctx, c, text, submitted)
	return resp, err
}

func (e *Engine) bind(ctx context.Context, city model.City) (model.Context, error) {
	start := time.Now()
	c, err := e.components.Binder.Load(ctx, e.components.Source, city)
	stageDuration.WithLabelValues("bind").Observe(time.Since(start).Seconds())
	return c, err
}

func (e *Engine) invalidate(cities ...model.City) {
	inv, ok := e.components.Source.(service.KnowledgeInvalidator)
	if !ok {
		return
	}
	for _, c := range cities {
		if c != "" {
			inv.Invalidate(c)
		}
	}
}

// run executes classify, generate and guard against the snapshot c. The only
// error it returns is the caller's context error. A panic in any stage
// resolves to the internal-error refusal.
func (e *Engine) run(ctx context.Context, c model.Context, text string, submitted time.Time) (resp model.Response, q model.Query, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("pipeline stage panicked", "city", c.City, "panic", r)
			resp = e.refuse(c, model.ReasonInternalError, fmt.Sprintf("stage panicked: %v", r))
			err = nil
		}
	}()

	q = model.Query{
		SubmittedAt: submitted,
		Text:        text,
		City:        c.City,
	}

	start := time.Now()
	verdict := e.components.Classifier.Classify(text)
	stageDuration.WithLabelValues("classify").Observe(time.Since(start).Seconds())

	q.Classification = verdict.Classification
	q.ClassificationReason = verdict.Reason
	q.Topic = verdict.Topic

	if !verdict.Accepted() {
		e.logger.Debug("query rejected by scope", "city", c.City, "reason", verdict.Reason)
		return e.refuse(c, model.ReasonOutOfScope, string(verdict.Reason)), q, nil
	}
	e.logger.Debug("query accepted", "city", c.City, "topic", verdict.Topic)

	if !c.Intact() {
		return e.refuse(c, model.ReasonInternalError, "context fingerprint mismatch"), q, nil
	}

	candidate, err := e.generate(ctx, q, c)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.Response{}, q, ctxErr
		}
		detail := string(generator.FailureUnavailable)
		if genErr, ok := generator.AsGenerationError(err); ok {
			detail = string(genErr.Reason)
		}
		e.logger.Debug("generation failed", "city", c.City, "error", err)
		return e.refuse(c, model.ReasonGenerationFailed, detail), q, nil
	}

	if candidate.Context.Fingerprint != c.Fingerprint || candidate.Context.City != c.City {
		return e.refuse(c, model.ReasonInternalError, "candidate context does not match query context"), q, nil
	}

	start = time.Now()
	gv := e.verify(candidate.Text, c)
	stageDuration.WithLabelValues("guard").Observe(time.Since(start).Seconds())

	switch {
	case !gv.Approved && gv.Reason == guard.ReasonProcessingError:
		return e.refuse(c, model.ReasonInternalError, string(gv.Reason)), q, nil
	case !gv.Approved:
		return e.refuse(c, model.ReasonGuardRejected, string(gv.Reason)), q, nil
	case gv.Refusal:
		return e.refuse(c, model.ReasonGeneratorDeclined, candidate.Text), q, nil
	}

	queriesTotal.WithLabelValues(string(c.City), "answer").Inc()
	e.logger.Debug("answer approved", "city", c.City, "overlap", gv.Overlap, "model", candidate.Model)
	return model.Response{
		Text:                     candidate.Text,
		City:                     c.City,
		Status:                   model.StatusSuccess,
		SourceContextFingerprint: c.Fingerprint,
		GuardApproved:            true,
	}, q, nil
}

// generate retries transient generation failures. Only the final candidate is
// returned.
func (e *Engine) generate(ctx context.Context, q model.Query, c model.Context) (model.Candidate, error) {
	var candidate model.Candidate
	start := time.Now()
	defer func() {
		stageDuration.WithLabelValues("generate").Observe(time.Since(start).Seconds())
	}()

	err := common.WithRetry(ctx, func() error {
		var genErr error
		candidate, genErr = e.components.Generator.Generate(ctx, q, c)
		if genErr != nil {
			generationAttempts.WithLabelValues("error").Inc()
			return genErr
		}
		generationAttempts.WithLabelValues("ok").Inc()
		return nil
	}, e.retry)
	if err != nil {
		return model.Candidate{}, err
	}
	return candidate, nil
}

// verify runs the guard, rejecting if it panics.
func (e *Engine) verify(candidate string, c model.Context) (verdict guard.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("guard panicked", "city", c.City, "panic", r)
			verdict = guard.Verdict{Reason: guard.ReasonProcessingError}
		}
	}()
	return e.components.Guard.Verify(candidate, c)
}

func (e *Engine) refuse(c model.Context, reason model.RefusalReason, detail string) model.Response {
	resp := e.refusals.Refuse(c, reason, detail)
	city := string(c.City)
	if city == "" {
		city = "none"
	}
	queriesTotal.WithLabelValues(city, "refusal").Inc()
	refusalsTotal.WithLabelValues(string(reason)).Inc()
	e.logger.Info("query refused", "city", c.City, "reason", reason, "detail", detail)
	return resp
}
