package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Veraticus/local-guide/internal/common"
	"github.com/Veraticus/local-guide/internal/model"
)

// Session is one conversation: a bound city, its history and its counters.
// Queries may be submitted concurrently; their interactions are committed in
// submission order.
type Session struct {
	createdAt  time.Time
	engine     *Engine
	idleTTL    time.Duration
	cond       *sync.Cond
	id         string
	bound      model.Context
	history    []model.Interaction
	stats      model.Stats
	epoch      uint64
	nextTicket uint64
	nextCommit uint64
	mu         sync.Mutex
	closed     bool
}

func newSession(e *Engine, id string) *Session {
	s := &Session{
		engine:    e,
		id:        id,
		createdAt: e.now(),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns when the session was opened.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Context returns the currently bound context, or the zero Context.
func (s *Session) Context() model.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

// City returns the bound city, or "".
func (s *Session) City() model.City {
	return s.Context().City
}

// SelectCity binds city to the session. On success the history and counters
// start over for the new city; on failure the previous binding is kept and
// the setup error is returned.
func (s *Session) SelectCity(ctx context.Context, city model.City) (model.Context, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.Context{}, fmt.Errorf("%w: %s", common.ErrSessionClosed, s.id)
	}
	previous := s.bound.City
	s.mu.Unlock()

	city = model.NormalizeCity(string(city))
	s.engine.invalidate(previous, city)

	c, err := s.engine.bind(ctx, city)
	if err != nil {
		s.engine.logger.Warn("city selection failed", "session", s.id, "city", city, "error", err)
		return model.Context{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Context{}, fmt.Errorf("%w: %s", common.ErrSessionClosed, s.id)
	}

	s.bound = c
	s.epoch++
	s.history = nil
	s.stats = model.Stats{City: c.City}

	if store := s.engine.components.Store; store != nil {
		if err := store.SaveSession(ctx, s.id, c.City); err != nil {
			s.engine.logger.Warn("failed to persist session", "session", s.id, "error", err)
		} else if err := store.ClearInteractions(ctx, s.id); err != nil {
			s.engine.logger.Warn("failed to clear persisted history", "session", s.id, "error", err)
		}
	}

	s.engine.logger.Info("city selected",
		"session", s.id,
		"city", c.City,
		"previous", previous,
		"fingerprint", c.ShortFingerprint())
	return c, nil
}

// Ask runs text through the pipeline against the context bound at
// submission. With no city bound it returns the out-of-scope phrase with
// status error and records nothing. If ctx is cancelled it returns ctx's
// error and records nothing. A response that completes after a city switch
// is returned but not recorded.
func (s *Session) Ask(ctx context.Context, text string) (model.Response, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.Response{}, fmt.Errorf("%w: %s", common.ErrSessionClosed, s.id)
	}
	bound := s.bound
	epoch := s.epoch
	ticket := s.nextTicket
	s.nextTicket++
	submitted := s.engine.now()
	s.mu.Unlock()

	if bound.IsZero() {
		s.commit(ctx, ticket, epoch, nil)
		return s.engine.refuse(bound, model.ReasonNoCityBound, "no city selected"), nil
	}

	resp, q, err := s.engine.run(ctx, bound, text, submitted)
	if err != nil {
		s.commit(ctx, ticket, epoch, nil)
		return model.Response{}, err
	}

	s.commit(ctx, ticket, epoch, &model.Interaction{Query: q, Response: resp})
	return resp, nil
}

// commit waits for ticket's turn, then records in if it still belongs to the
// current epoch. A nil interaction only advances the sequence.
func (s *Session) commit(ctx context.Context, ticket, epoch uint64, in *model.Interaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.nextCommit != ticket {
		s.cond.Wait()
	}
	defer func() {
		s.nextCommit++
		s.cond.Broadcast()
	}()

	if in == nil || s.closed {
		return
	}
	if epoch != s.epoch {
		s.engine.logger.Debug("dropping response from previous city",
			"session", s.id,
			"city", in.Response.City)
		return
	}

	in.Seq = len(s.history) + 1
	s.history = append(s.history, *in)
	s.stats.Record(*in)

	if store := s.engine.components.Store; store != nil {
		if err := store.AppendInteraction(context.WithoutCancel(ctx), s.id, *in); err != nil {
			s.engine.logger.Warn("failed to persist interaction", "session", s.id, "seq", in.Seq, "error", err)
		}
	}
}

// History returns a copy of the recorded interactions in submission order.
func (s *Session) History() []model.Interaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Interaction, len(s.history))
	copy(out, s.history)
	return out
}

// Stats returns the session counters.
func (s *Session) Stats() model.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := s.stats
	stats.City = s.bound.City
	return stats
}

// close marks the session closed. It reports false if it already was.
func (s *Session) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	return true
}
