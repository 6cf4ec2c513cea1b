package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/lessonforge/internal/analytics"
	"github.com/abhisek/lessonforge/internal/lessons"
	"github.com/abhisek/lessonforge/internal/llm"
	"github.com/abhisek/lessonforge/internal/plan"
	"github.com/abhisek/lessonforge/internal/session"
)

const tidesPlan = `{"objectives":["Tides"],"workflow":["Moon","Sun"],` +
	`"assessment":[{"question":"What pulls the sea?","answer":"The moon"}],` +
	`"practice_quiz":[{"question":"How many tides a day?","hint":"Two"}]}`

// stubGenerator answers plan requests with tidesPlan and tutor requests
// with reply.
type stubGenerator struct {
	mu    sync.Mutex
	reply string
}

func (g *stubGenerator) setReply(s string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reply = s
}

func (g *stubGenerator) Generate(ctx context.Context, _ llm.Request) llm.Result {
	if llm.PurposeFrom(ctx) == llm.PurposeTutor {
		g.mu.Lock()
		defer g.mu.Unlock()
		return llm.Result{Text: g.reply}
	}
	return llm.Result{Text: tidesPlan}
}

type testServer struct {
	*httptest.Server
	gen *stubGenerator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gen := &stubGenerator{reply: "Let's look at the moon."}

	registry := lessons.NewRegistry(lessons.NewMemoryStore(), plan.NewPlanner(gen, plan.DefaultConfig(), nil), nil)
	manager := session.NewManager(session.NewMemoryStore(), registry, gen, nil, session.DefaultConfig(), nil)
	h := NewHandler(registry, manager, analytics.NewService(registry), nil)

	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, gen: gen}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, map[string]string{"foo": "bar"})

	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "bar", got["foo"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{lessons.ErrInvalidToken, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", lessons.ErrDraftNotFound), http.StatusNotFound},
		{session.ErrNotFound, http.StatusNotFound},
		{lessons.ErrInvalidInput, http.StatusBadRequest},
		{plan.ErrInvalidInput, http.StatusBadRequest},
		{session.ErrSessionClosed, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDraftLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp, draft := srv.do(t, http.MethodPost, "/api/drafts", map[string]string{"topic": "Tides"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := draft["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, false, draft["fell_back"])

	resp, got := srv.do(t, http.MethodGet, "/api/drafts/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Tides", got["topic"])

	resp, fb := srv.do(t, http.MethodPost, "/api/drafts/"+id+"/feedback", map[string]string{"feedback": "add a step on the sun"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, fb["revised"])
	assert.Equal(t, false, fb["finalized"])

	resp, fin := srv.do(t, http.MethodPost, "/api/drafts/"+id+"/feedback", map[string]string{"feedback": " Finalize "})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := fin["token"].(string)
	require.NotEmpty(t, token)

	resp, _ = srv.do(t, http.MethodPost, "/api/drafts/"+id+"/finalize", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "a finalized draft is gone")

	resp, lesson := srv.do(t, http.MethodGet, "/api/lessons/"+token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Tides", lesson["topic"])
	assert.Empty(t, lesson["sessions"])
}

func TestCreateDraft_Errors(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.do(t, http.MethodPost, "/api/drafts", map[string]string{"topic": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/drafts", strings.NewReader("{not json"))
	require.NoError(t, err)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/api/drafts/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func finalizedToken(t *testing.T, srv *testServer) string {
	t.Helper()
	_, draft := srv.do(t, http.MethodPost, "/api/drafts", map[string]string{"topic": "Tides"})
	_, fin := srv.do(t, http.MethodPost, "/api/drafts/"+draft["id"].(string)+"/finalize", nil)
	return fin["token"].(string)
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := finalizedToken(t, srv)

	resp, sess := srv.do(t, http.MethodPost, "/api/sessions", map[string]string{"token": token})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := sess["id"].(string)
	assert.Equal(t, string(session.StateAwaitingStart), sess["state"])

	resp, turn := srv.do(t, http.MethodPost, "/api/sessions/"+id+"/turns", map[string]string{"message": "I'm ready"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Let's look at the moon.", turn["reply"])
	assert.Equal(t, string(session.StateInDialogue), turn["state"])
	assert.Equal(t, false, turn["degraded"])

	srv.gen.setReply("Great work! Here's a practice quiz.")
	resp, turn = srv.do(t, http.MethodPost, "/api/sessions/"+id+"/turns", map[string]string{"message": "next"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(session.StateQuizPhase), turn["state"])
	assert.EqualValues(t, session.QuizStep, turn["step"])

	resp, _ = srv.do(t, http.MethodPut, "/api/sessions/"+id+"/step", map[string]int{"step": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPut, "/api/sessions/"+id+"/step", map[string]int{"step": 9})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/sessions/"+id+"/score", map[string]float64{"score": 80})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/sessions/"+id+"/score", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, summary := srv.do(t, http.MethodPost, "/api/sessions/"+id+"/complete", map[string]int{"rating": 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 5, summary["rating"])
	assert.EqualValues(t, 80, summary["score"])

	resp, got := srv.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(session.StateClosed), got["state"])

	resp, _ = srv.do(t, http.MethodPost, "/api/sessions/"+id+"/turns", map[string]string{"message": "hello?"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, report := srv.do(t, http.MethodGet, "/api/lessons/"+token+"/analytics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, report["total_sessions"])
	assert.EqualValues(t, 5, report["avg_rating"])
}

func TestSession_Errors(t *testing.T) {
	srv := newTestServer(t)
	token := finalizedToken(t, srv)

	resp, _ := srv.do(t, http.MethodPost, "/api/sessions", map[string]string{"token": "nope"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/api/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, sess := srv.do(t, http.MethodPost, "/api/sessions", map[string]string{"token": token})
	id := sess["id"].(string)

	resp, _ = srv.do(t, http.MethodPost, "/api/sessions/"+id+"/turns", map[string]string{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/sessions/"+id+"/complete", map[string]int{"rating": 7})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodPost, "/api/sessions/"+id+"/complete", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "missing rating")

	resp, _ = srv.do(t, http.MethodPost, "/api/sessions/"+id+"/complete", map[string]any{"rating": nil})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "null rating")

	resp, open := srv.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, string(session.StateClosed), open["state"])

	resp, summary := srv.do(t, http.MethodPost, "/api/sessions/"+id+"/complete", map[string]string{"rating": "not rated"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, lessons.NotRatedLabel, summary["rating"])

	resp, _ = srv.do(t, http.MethodPost, "/api/sessions/"+id+"/complete", map[string]int{"rating": 3})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/api/lessons/nope/analytics", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
