package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-intake-agent/internal/config"
	"github.com/fairyhunter13/ai-intake-agent/internal/domain"
	"github.com/fairyhunter13/ai-intake-agent/internal/usecase"
)

type staticGenerator struct{ text string }

func (g staticGenerator) Generate(_ domain.Context, _ domain.GenerateRequest) domain.Generation {
	return domain.Generation{Text: g.text}
}

func newTestRouter(t *testing.T) (*chi.Mux, *Server) {
	t.Helper()
	cfg := config.Config{
		AppEnv:               "test",
		ContextMaxTurns:      10,
		ContextMessageMaxLen: 200,
		MaxReplyLength:       800,
		MaxQuestionsPerSkill: 2,
		MaxTotalQuestions:    5,
	}
	gen := staticGenerator{text: "A considered reply from the screening assistant."}
	srv := NewServer(cfg,
		usecase.NewSessionStore(),
		usecase.NewConversation(cfg, gen),
		usecase.NewAssessor(cfg, gen),
	)

	r := chi.NewRouter()
	r.Post("/v1/sessions", srv.CreateSessionHandler())
	r.Post("/v1/sessions/{id}/messages", srv.MessageHandler())
	r.Get("/v1/sessions/{id}", srv.GetSessionHandler())
	r.Post("/v1/questions", srv.QuestionsHandler())
	r.Get("/healthz", srv.HealthHandler())
	return r, srv
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, r http.Handler) string {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestCreateSession(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/sessions", "")

	require.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(domain.StateInitial), body["state"])
	assert.Contains(t, body["reply"], "full name")
}

func TestMessage_FieldCollectionFlow(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)
	id := createSession(t, r)

	rec := doJSON(t, r, http.MethodPost, "/v1/sessions/"+id+"/messages", `{"message":"Ada Lovelace"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp messageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Reply, "email")
	assert.Equal(t, domain.StateDataCollection, resp.State)
	assert.False(t, resp.Complete)
}

func TestMessage_UnknownSession(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/sessions/nope/messages", `{"message":"hello there"}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestMessage_EmptyBodyRejected(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)
	id := createSession(t, r)

	rec := doJSON(t, r, http.MethodPost, "/v1/sessions/"+id+"/messages", `{"message":""}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_ARGUMENT")
}

func TestMessage_InvalidJSONRejected(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)
	id := createSession(t, r)

	rec := doJSON(t, r, http.MethodPost, "/v1/sessions/"+id+"/messages", `not json`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSession_IncludesTranscript(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)
	id := createSession(t, r)
	doJSON(t, r, http.MethodPost, "/v1/sessions/"+id+"/messages", `{"message":"Ada Lovelace"}`)

	rec := doJSON(t, r, http.MethodGet, "/v1/sessions/"+id, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.ID)
	assert.Equal(t, "Ada Lovelace", resp.Record.Name)
	// greeting + user turn + assistant reply
	require.Len(t, resp.Transcript, 3)
}

func TestQuestions(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/questions",
		`{"skills":"python, sql","experience":"4","position":"Backend Engineer"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Questions   string                   `json:"questions"`
		Evaluations []domain.SkillEvaluation `json:"evaluations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Questions, "## Technical Interview Questions")
	require.Len(t, resp.Evaluations, 2)
	for _, ev := range resp.Evaluations {
		assert.GreaterOrEqual(t, ev.Score, 0)
		assert.LessOrEqual(t, ev.Score, 100)
	}
}

func TestQuestions_MissingSkills(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/questions", `{"experience":"4"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestSafeTurn_AbsorbsPanics(t *testing.T) {
	t.Parallel()
	_, srv := newTestRouter(t)
	sess := &domain.Session{ID: "s", State: domain.StateDataCollection}
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	// A nil Conv forces a panic inside the turn.
	srv.Conv = nil
	reply := srv.safeTurn(req, sess, "hello there")
	assert.Contains(t, reply, "apologize")
	assert.Equal(t, 1, sess.SoftErrors)

	srv.safeTurn(req, sess, "hello again")
	reply = srv.safeTurn(req, sess, "third time")
	assert.Equal(t, 3, sess.SoftErrors)
	assert.Contains(t, reply, "new session")
}
