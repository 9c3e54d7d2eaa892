package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counterpoint/internal/config"
	"counterpoint/internal/core"
	"counterpoint/internal/llm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockLLM struct {
	Queue []string
	Err   error
}

func (m *mockLLM) next() (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Queue) == 0 {
		return "", nil
	}
	resp := m.Queue[0]
	m.Queue = m.Queue[1:]
	return resp, nil
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	return m.next()
}

func (m *mockLLM) GenerateStructured(ctx context.Context, prompt string, schema *llm.Schema, opts llm.Options) (string, error) {
	return m.next()
}

const videosJSON = `{"videos": [{"title": "Ep 1", "summary": "Claims A."}]}`

const graphJSON = `{
	"nodes": [
		{"id": "theme-a", "group": 1, "description": "a", "relevance": 9, "popularity": 8},
		{"id": "theme-b", "group": 2, "description": "b", "relevance": 5, "popularity": 4}
	],
	"links": [{"source": "theme-a", "target": "theme-b", "weight": 4}]
}`

const deckJSON = `{
	"title": "A Response",
	"slides": [{
		"title": "Slide One",
		"bullets": [
			{"label": "Claim", "text": "a"},
			{"label": "Reality", "text": "b"},
			{"label": "Why", "text": "c"}
		],
		"rebuttal": "r",
		"speaker_notes": "n",
		"image_prompt": ""
	}]
}`

func newTestServer(mock *mockLLM) *Server {
	cfg := config.Default()
	cfg.Dedupe.Enabled = false
	clients := &llm.Clients{Text: mock, Structured: mock}
	srv := NewServer(core.NewStudio(cfg, clients, nil))
	srv.AnimateInterval = time.Millisecond
	return srv
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func startAnalysis(t *testing.T, srv *Server, r *gin.Engine) string {
	t.Helper()
	w := do(r, http.MethodPost, "/api/analyses", `{"channel_url": "https://example.com/@chan"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	id := decode(t, w)["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func waitForState(t *testing.T, srv *Server, id string, state JobState) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		j, ok := srv.Jobs.Get(id)
		job = j
		return ok && j.State == state
	}, 2*time.Second, 5*time.Millisecond, "job never reached state %s", state)
	return job
}

func waitForFailure(t *testing.T, srv *Server, id string) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		j, ok := srv.Jobs.Get(id)
		job = j
		return ok && j.Error != ""
	}, 2*time.Second, 5*time.Millisecond, "job never recorded a failure")
	return job
}

func TestAnalysisLifecycle(t *testing.T) {
	mock := &mockLLM{Queue: []string{"discovery", "deep", videosJSON, graphJSON}}
	srv := newTestServer(mock)
	r := srv.SetupRouter()

	id := startAnalysis(t, srv, r)
	waitForState(t, srv, id, StateReady)

	w := do(r, http.MethodGet, "/api/analyses/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)

	assert.Equal(t, "ready", resp["state"])
	assert.EqualValues(t, 100, resp["progress"])

	payload := resp["analysis"].(map[string]interface{})
	nodes := payload["nodes"].([]interface{})
	require.Len(t, nodes, 2)
	first := nodes[0].(map[string]interface{})
	assert.EqualValues(t, 17, first["radius"]) // relevance 9 + popularity 8

	links := payload["links"].([]interface{})
	require.Len(t, links, 1)
	assert.EqualValues(t, 50, links[0].(map[string]interface{})["distance"]) // 200 / weight 4

	clusters := payload["clusters"].([]interface{})
	require.Len(t, clusters, 1)
}

type gatedLLM struct {
	mockLLM
	gate chan struct{}
}

func (g *gatedLLM) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	<-g.gate
	return g.mockLLM.Generate(ctx, prompt, opts)
}

func TestCreateAnalysisEntersAnalyzingImmediately(t *testing.T) {
	gate := make(chan struct{})
	mock := &gatedLLM{
		mockLLM: mockLLM{Queue: []string{"discovery", "deep", videosJSON, graphJSON}},
		gate:    gate,
	}
	cfg := config.Default()
	cfg.Dedupe.Enabled = false
	clients := &llm.Clients{Text: mock, Structured: &mock.mockLLM}
	srv := NewServer(core.NewStudio(cfg, clients, nil))
	srv.AnimateInterval = time.Millisecond
	r := srv.SetupRouter()

	id := startAnalysis(t, srv, r)

	// The state machine transitions before the worker goroutine starts, so
	// the first poll already shows analyzing.
	job, ok := srv.Jobs.Get(id)
	require.True(t, ok)
	assert.Equal(t, StateAnalyzing, job.State)
	assert.Empty(t, job.Error)

	close(gate)
	waitForState(t, srv, id, StateReady)
}

func TestAnalysisParseFailureRevertsToIdle(t *testing.T) {
	mock := &mockLLM{Queue: []string{"discovery", "deep", "I cannot answer that.", graphJSON}}
	srv := newTestServer(mock)
	r := srv.SetupRouter()

	id := startAnalysis(t, srv, r)
	job := waitForFailure(t, srv, id)

	assert.Equal(t, StateIdle, job.State)
	assert.Contains(t, job.Error, "could not be parsed")
	assert.Zero(t, job.Progress)
}

func TestAnalysisGenericFailure(t *testing.T) {
	mock := &mockLLM{Err: assert.AnError}
	srv := newTestServer(mock)
	r := srv.SetupRouter()

	id := startAnalysis(t, srv, r)
	job := waitForFailure(t, srv, id)

	assert.Equal(t, StateIdle, job.State)
	assert.NotContains(t, job.Error, "could not be parsed")
}

func TestDeckLifecycle(t *testing.T) {
	mock := &mockLLM{Queue: []string{"discovery", "deep", videosJSON, graphJSON, deckJSON}}
	srv := newTestServer(mock)
	r := srv.SetupRouter()

	id := startAnalysis(t, srv, r)
	waitForState(t, srv, id, StateReady)

	w := do(r, http.MethodPost, "/api/analyses/"+id+"/deck", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	waitForState(t, srv, id, StateComplete)

	w = do(r, http.MethodGet, "/api/analyses/"+id+"/deck", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "A Response", resp["title"])
}

func TestDeckRequiresReadyState(t *testing.T) {
	// A failed analysis leaves the job idle with no result to build from.
	mock := &mockLLM{Err: assert.AnError}
	srv := newTestServer(mock)
	r := srv.SetupRouter()

	id := startAnalysis(t, srv, r)
	waitForState(t, srv, id, StateIdle)

	w := do(r, http.MethodPost, "/api/analyses/"+id+"/deck", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeckFailureRevertsToReady(t *testing.T) {
	mock := &mockLLM{Queue: []string{"discovery", "deep", videosJSON, graphJSON, "not a deck"}}
	srv := newTestServer(mock)
	r := srv.SetupRouter()

	id := startAnalysis(t, srv, r)
	waitForState(t, srv, id, StateReady)

	w := do(r, http.MethodPost, "/api/analyses/"+id+"/deck", "")
	require.Equal(t, http.StatusAccepted, w.Code)

	job := waitForState(t, srv, id, StateReady)
	assert.Contains(t, job.Error, "could not be parsed")
	assert.NotNil(t, job.Analysis)
}

func TestUnknownJob(t *testing.T) {
	srv := newTestServer(&mockLLM{})
	r := srv.SetupRouter()

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/analyses/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/analyses/nope/deck", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/analyses/nope/export", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/api/analyses/nope/deck", "").Code)
}

func TestCreateAnalysisValidation(t *testing.T) {
	srv := newTestServer(&mockLLM{})
	r := srv.SetupRouter()

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/analyses", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/analyses", `not json`).Code)
}

func TestImportThenExportRoundTrip(t *testing.T) {
	srv := newTestServer(&mockLLM{})
	r := srv.SetupRouter()

	studioFile := `
[channel]
url = "https://example.com/@chan"

[[node]]
id = "theme-a"
group = 1
description = "a"
relevance = 9
popularity = 8
`
	w := do(r, http.MethodPost, "/api/import", studioFile)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	job, ok := srv.Jobs.Get(id)
	require.True(t, ok)
	assert.Equal(t, StateReady, job.State)

	w = do(r, http.MethodGet, "/api/analyses/"+id+"/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/toml")
	assert.True(t, bytes.Contains(w.Body.Bytes(), []byte("https://example.com/@chan")))
}

func TestImportRejectsGarbage(t *testing.T) {
	srv := newTestServer(&mockLLM{})
	r := srv.SetupRouter()

	w := do(r, http.MethodPost, "/api/import", "{definitely not toml")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
