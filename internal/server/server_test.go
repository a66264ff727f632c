package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Veraticus/local-guide/internal/common"
	"github.com/Veraticus/local-guide/internal/config"
	"github.com/Veraticus/local-guide/internal/generator"
	"github.com/Veraticus/local-guide/internal/guard"
	"github.com/Veraticus/local-guide/internal/knowledge"
	"github.com/Veraticus/local-guide/internal/llm"
	"github.com/Veraticus/local-guide/internal/model"
	"github.com/Veraticus/local-guide/internal/pipeline"
	"github.com/Veraticus/local-guide/internal/scope"
	"github.com/Veraticus/local-guide/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestServerWithConfig(t, config.ServerConfig{Addr: "127.0.0.1:0"})
}

func newTestServerWithConfig(t *testing.T, cfg config.ServerConfig) *Server {
	t.Helper()

	registry := knowledge.NewRegistry("madurai", "dindigul")
	binder := knowledge.NewBinder(registry, knowledge.WithLogger(common.DiscardLogger()))
	classifier, err := scope.NewKeywordClassifier(scope.WithCities(registry.Cities()))
	require.NoError(t, err)
	gen, err := generator.New(&testutil.ExtractiveCompleter{}, llm.Options{Timeout: time.Second}, common.DiscardLogger())
	require.NoError(t, err)

	engine, err := pipeline.New(pipeline.Components{
		Binder:     binder,
		Source:     knowledge.NewMapSource(testutil.Knowledge()),
		Classifier: classifier,
		Generator:  gen,
		Guard:      guard.NewRuleGuard(guard.DefaultConfig(), common.DiscardLogger()),
	}, pipeline.DefaultConfig(), common.DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return New(engine, cfg, common.DiscardLogger())
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestAsk(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		req        AskRequest
		want       model.Envelope
		wantStatus int
	}{
		{
			name:       "answer",
			req:        AskRequest{City: "Madurai", Prompt: "What is Jigarthanda?"},
			wantStatus: http.StatusOK,
			want: model.Envelope{
				Response: "Jigarthanda is a cold drink made with milk, almond gum, sarsaparilla syrup and ice cream.",
				City:     "Madurai",
				Status:   model.StatusSuccess,
			},
		},
		{
			name:       "other city",
			req:        AskRequest{City: "madurai", Prompt: "What's the weather in New York?"},
			wantStatus: http.StatusOK,
			want: model.Envelope{
				Response:  string(model.RefusalNotCovered),
				City:      "Madurai",
				Status:    model.StatusSuccess,
				IsRefusal: true,
			},
		},
		{
			name:       "empty prompt",
			req:        AskRequest{City: "madurai"},
			wantStatus: http.StatusOK,
			want: model.Envelope{
				Response:  string(model.RefusalNotCovered),
				City:      "Madurai",
				Status:    model.StatusSuccess,
				IsRefusal: true,
			},
		},
		{
			name:       "no city",
			req:        AskRequest{Prompt: "What is Jigarthanda?"},
			wantStatus: http.StatusOK,
			want: model.Envelope{
				Response:  string(model.RefusalNotCovered),
				Status:    model.StatusError,
				IsRefusal: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/v1/ask", tt.req)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.want, decode[model.Envelope](t, w))
		})
	}
}

func TestAsk_Errors(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/ask", AskRequest{City: "Chennai", Prompt: "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errResp := decode[ErrorResponse](t, w)
	assert.Equal(t, model.StatusError, errResp.Status)
	assert.Contains(t, errResp.Error, "unknown city")

	req := httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionFlow(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/sessions", map[string]string{"city": "madurai"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[SessionResponse](t, w)
	require.NotEmpty(t, created.SessionID)
	assert.Equal(t, "Madurai", created.City)
	base := "/v1/sessions/" + created.SessionID

	w = do(t, s, http.MethodPost, base+"/ask", PromptRequest{Prompt: "What is Jigarthanda?"})
	require.Equal(t, http.StatusOK, w.Code)
	env := decode[model.Envelope](t, w)
	assert.False(t, env.IsRefusal)

	w = do(t, s, http.MethodPost, base+"/city", CityRequest{City: "Dindigul"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Dindigul", decode[SessionResponse](t, w).City)

	w = do(t, s, http.MethodPost, base+"/ask", PromptRequest{Prompt: "What is Jigarthanda?"})
	require.Equal(t, http.StatusOK, w.Code)
	env = decode[model.Envelope](t, w)
	assert.True(t, env.IsRefusal)
	assert.Equal(t, "Dindigul", env.City)

	w = do(t, s, http.MethodGet, base+"/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[StatsResponse](t, w)
	assert.Equal(t, "Dindigul", stats.City)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Refused)
	assert.InDelta(t, 1.0, stats.RefusalRate, 1e-9)

	w = do(t, s, http.MethodGet, base+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[struct {
		SessionID string         `json:"session_id"`
		History   []HistoryEntry `json:"history"`
	}](t, w)
	require.Len(t, history.History, 1)
	assert.Equal(t, "What is Jigarthanda?", history.History[0].Prompt)
	assert.Equal(t, string(model.ReasonGeneratorDeclined), history.History[0].RefusalReason)

	w = do(t, s, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, s, http.MethodPost, base+"/ask", PromptRequest{Prompt: "What is Jigarthanda?"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSession_NoCity(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[SessionResponse](t, w).SessionID

	w = do(t, s, http.MethodPost, "/v1/sessions/"+id+"/ask", PromptRequest{Prompt: "What is Jigarthanda?"})
	require.Equal(t, http.StatusOK, w.Code)
	env := decode[model.Envelope](t, w)
	assert.Equal(t, model.StatusError, env.Status)
	assert.Equal(t, string(model.RefusalNotCovered), env.Response)

	w = do(t, s, http.MethodPost, "/v1/sessions/"+id+"/city", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/v1/sessions", map[string]string{"city": "ooty"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSession_IdleExpiry(t *testing.T) {
	s := newTestServerWithConfig(t, config.ServerConfig{Addr: "127.0.0.1:0", SessionTTL: 50 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	w := do(t, s, http.MethodPost, "/v1/sessions", map[string]string{"city": "madurai"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[SessionResponse](t, w).SessionID

	session, err := s.engine.Session(id)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := session.Ask(context.Background(), "What is Jigarthanda?")
		return errors.Is(err, common.ErrSessionClosed)
	}, 2*time.Second, 20*time.Millisecond)

	w = do(t, s, http.MethodGet, "/v1/sessions/"+id+"/stats", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, s.engine.SessionIDs())
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	h := decode[pipeline.Health](t, w)
	assert.Equal(t, pipeline.HealthHealthy, h.Status)
	assert.Len(t, h.Components, 4)

	w = do(t, s, http.MethodGet, "/v1/cities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, []string{"Madurai", "Dindigul"}, decode[map[string][]string](t, w)["cities"])

	do(t, s, http.MethodPost, "/v1/ask", AskRequest{City: "madurai", Prompt: "What is Jigarthanda?"})
	w = do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "localguide_queries_total")
	assert.Contains(t, w.Body.String(), "localguide_stage_duration_seconds")
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
