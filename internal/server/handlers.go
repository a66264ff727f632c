package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Veraticus/local-guide/internal/common"
	"github.com/Veraticus/local-guide/internal/model"
	"github.com/Veraticus/local-guide/internal/pipeline"
	"github.com/gin-gonic/gin"
)

// AskRequest is the body of POST /v1/ask. An empty prompt is answered with a
// refusal, not rejected.
type AskRequest struct {
	City   string `json:"city"`
	Prompt string `json:"prompt"`
}

// PromptRequest is the body of POST /v1/sessions/:id/ask.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// CityRequest selects a city.
type CityRequest struct {
	City string `json:"city" binding:"required"`
}

// SessionResponse describes a session.
type SessionResponse struct {
	SessionID   string `json:"session_id"`
	City        string `json:"city,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// StatsResponse is the JSON form of model.Stats.
type StatsResponse struct {
	FirstQueryAt *time.Time `json:"first_query_at,omitempty"`
	LastQueryAt  *time.Time `json:"last_query_at,omitempty"`
	City         string     `json:"city"`
	Total        int        `json:"total"`
	Accepted     int        `json:"accepted"`
	Answered     int        `json:"answered"`
	Refused      int        `json:"refused"`
	RefusalRate  float64    `json:"refusal_rate"`
}

// HistoryEntry is one recorded interaction.
type HistoryEntry struct {
	SubmittedAt   time.Time      `json:"submitted_at"`
	Prompt        string         `json:"prompt"`
	Topic         string         `json:"topic,omitempty"`
	RefusalReason string         `json:"refusal_reason,omitempty"`
	Envelope      model.Envelope `json:"envelope"`
	Seq           int            `json:"seq"`
}

// ErrorResponse carries a failure that is not a pipeline response.
type ErrorResponse struct {
	Error  string       `json:"error"`
	Status model.Status `json:"status"`
}

func (s *Server) health(c *gin.Context) {
	h := s.engine.Health(c.Request.Context())
	code := http.StatusOK
	if h.Status == pipeline.HealthError {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, h)
}

func (s *Server) listCities(c *gin.Context) {
	cities := s.engine.Cities()
	names := make([]string, len(cities))
	for i, city := range cities {
		names[i] = city.Title()
	}
	c.JSON(http.StatusOK, gin.H{"cities": names})
}

func (s *Server) ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	resp, err := s.engine.Ask(c.Request.Context(), model.NormalizeCity(req.City), req.Prompt)
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, resp.Envelope())
}

func (s *Server) createSession(c *gin.Context) {
	var req struct {
		City string `json:"city"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, http.StatusBadRequest, err)
			return
		}
	}

	session := s.engine.NewExpiringSession(s.cfg.SessionTTL)
	out := SessionResponse{SessionID: session.ID()}

	if req.City != "" {
		bound, err := session.SelectCity(c.Request.Context(), model.NormalizeCity(req.City))
		if err != nil {
			_ = s.engine.CloseSession(session.ID())
			s.fail(c, statusFor(err), err)
			return
		}
		out.City = bound.City.Title()
		out.Fingerprint = bound.ShortFingerprint()
	}

	c.JSON(http.StatusCreated, out)
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.engine.CloseSession(c.Param("id")); err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) selectCity(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}

	var req CityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	bound, err := session.SelectCity(c.Request.Context(), model.NormalizeCity(req.City))
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{
		SessionID:   session.ID(),
		City:        bound.City.Title(),
		Fingerprint: bound.ShortFingerprint(),
	})
}

func (s *Server) askSession(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}

	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}

	resp, err := session.Ask(c.Request.Context(), req.Prompt)
	if err != nil {
		s.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, resp.Envelope())
}

func (s *Server) sessionStats(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}

	stats := session.Stats()
	out := StatsResponse{
		City:        stats.City.Title(),
		Total:       stats.Total,
		Accepted:    stats.Accepted,
		Answered:    stats.Answered,
		Refused:     stats.Refused,
		RefusalRate: stats.RefusalRate(),
	}
	if !stats.FirstQueryAt.IsZero() {
		out.FirstQueryAt = &stats.FirstQueryAt
		out.LastQueryAt = &stats.LastQueryAt
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) sessionHistory(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}

	history := session.History()
	out := make([]HistoryEntry, len(history))
	for i, in := range history {
		out[i] = HistoryEntry{
			Seq:           in.Seq,
			SubmittedAt:   in.Query.SubmittedAt,
			Prompt:        in.Query.Text,
			Topic:         string(in.Query.Topic),
			RefusalReason: string(in.Response.RefusalReason),
			Envelope:      in.Response.Envelope(),
		}
	}
	c.JSON(http.StatusOK, gin.H{"session_id": session.ID(), "history": out})
}

func (s *Server) session(c *gin.Context) (*pipeline.Session, bool) {
	session, err := s.engine.Session(c.Param("id"))
	if err != nil {
		s.fail(c, http.StatusNotFound, err)
		return nil, false
	}
	return session, true
}

func (s *Server) fail(c *gin.Context, code int, err error) {
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	} else {
		s.logger.Debug("request rejected", "path", c.FullPath(), "status", code, "error", err)
	}
	c.JSON(code, ErrorResponse{Error: err.Error(), Status: model.StatusError})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, common.ErrUnknownCity):
		return http.StatusBadRequest
	case common.IsSetupError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
