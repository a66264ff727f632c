package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/local-guide/internal/common"
	"github.com/Veraticus/local-guide/internal/config"
	"github.com/Veraticus/local-guide/internal/model"
	"github.com/Veraticus/local-guide/internal/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, set map[string]any) config.Config {
	t.Helper()
	v := viper.New()
	v.Set("knowledge.dir", testutil.WriteKnowledgeDir(t, testutil.Knowledge()))
	v.Set("database.path", filepath.Join(t.TempDir(), "history.db"))
	v.Set("llm.retry_delay", "1ms")
	for k, val := range set {
		v.Set(k, val)
	}
	cfg, err := config.Load(v)
	require.NoError(t, err)
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config) *app {
	t.Helper()
	a, err := newApp(context.Background(), cfg, &testutil.ExtractiveCompleter{}, common.DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNewApp_AnswersAndRecords(t *testing.T) {
	a := newTestApp(t, testConfig(t, nil))
	ctx := context.Background()

	session := a.engine.NewSession()
	_, err := session.SelectCity(ctx, "madurai")
	require.NoError(t, err)

	resp, err := session.Ask(ctx, "What is Jigarthanda?")
	require.NoError(t, err)
	assert.False(t, resp.IsRefusal)
	assert.Contains(t, resp.Text, "Jigarthanda")

	resp, err = session.Ask(ctx, "What's the weather in New York?")
	require.NoError(t, err)
	assert.True(t, resp.IsRefusal)
	assert.Equal(t, string(model.RefusalNotCovered), resp.Text)

	store, err := a.requireStore()
	require.NoError(t, err)
	history, err := store.ListInteractions(ctx, session.ID())
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "What is Jigarthanda?", history[0].Query.Text)
}

func TestNewApp_RefusalMapping(t *testing.T) {
	a := newTestApp(t, testConfig(t, map[string]any{
		"pipeline.refusals.scope_rejected":    3,
		"pipeline.refusals.generation_failed": 1,
		"pipeline.refusals.guard_rejected":    2,
	}))

	resp, err := a.engine.Ask(context.Background(), "madurai", "What's the weather in New York?")
	require.NoError(t, err)
	assert.Equal(t, string(model.RefusalLimitedToContext), resp.Text)
}

func TestNewApp_HistoryDisabled(t *testing.T) {
	a := newTestApp(t, testConfig(t, map[string]any{"database.enabled": false}))

	assert.Nil(t, a.store)
	_, err := a.requireStore()
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestRunPlainChat(t *testing.T) {
	a := newTestApp(t, testConfig(t, nil))
	session := a.engine.NewSession()

	in := strings.NewReader(strings.Join([]string{
		"What is Jigarthanda?",
		"/city Madurai",
		"What is Jigarthanda?",
		"/city",
		"/stats",
		"/weather",
		"/quit",
		"never asked",
	}, "\n") + "\n")
	var out bytes.Buffer

	require.NoError(t, runPlainChat(context.Background(), a, session, in, &out, true))

	output := out.String()
	assert.Contains(t, output, string(model.RefusalNotCovered))
	assert.Contains(t, output, "no_city_bound")
	assert.Contains(t, output, "Now answering questions about Madurai.")
	assert.Contains(t, output, "Jigarthanda is a cold drink")
	assert.Contains(t, output, "Cities: Madurai, Dindigul")
	assert.Contains(t, output, "Session stats")
	assert.Contains(t, output, "unknown command /weather")
	assert.Equal(t, 1, session.Stats().Total)
}

func TestRunPlainChat_EOF(t *testing.T) {
	a := newTestApp(t, testConfig(t, nil))
	var out bytes.Buffer

	err := runPlainChat(context.Background(), a, a.engine.NewSession(), strings.NewReader(""), &out, false)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Local Guide")
}

func TestCityLine(t *testing.T) {
	assert.Contains(t, cityLine("madurai", "/ctx/madurai_context.md", true), "Madurai")
	assert.Contains(t, cityLine("dindigul", "/ctx/dindigul_context.md", false), "(missing)")
}

func TestVersionCmd(t *testing.T) {
	cmd := versionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "localguide dev\n", out.String())
}
