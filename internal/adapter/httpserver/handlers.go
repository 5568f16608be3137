package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-intake-agent/internal/config"
	"github.com/fairyhunter13/ai-intake-agent/internal/domain"
	"github.com/fairyhunter13/ai-intake-agent/internal/usecase"
)

// softErrorThreshold is the number of consecutive failed turns after which
// the apology suggests starting a fresh session.
const softErrorThreshold = 3

// Server aggregates handler dependencies.
type Server struct {
	Cfg      config.Config
	Sessions *usecase.SessionStore
	Conv     *usecase.Conversation
	Assessor *usecase.Assessor
}

// NewServer constructs an HTTP server with all handlers wired.
func NewServer(cfg config.Config, sessions *usecase.SessionStore, conv *usecase.Conversation, assessor *usecase.Assessor) *Server {
	return &Server{Cfg: cfg, Sessions: sessions, Conv: conv, Assessor: assessor}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

type sessionResponse struct {
	ID         string                 `json:"id"`
	State      domain.State           `json:"state"`
	Record     domain.CandidateRecord `json:"record"`
	Transcript []domain.Message       `json:"transcript"`
	Complete   bool                   `json:"collection_complete"`
}

func toSessionResponse(sess domain.Session) sessionResponse {
	return sessionResponse{
		ID:         sess.ID,
		State:      sess.State,
		Record:     sess.Record,
		Transcript: sess.Transcript,
		Complete:   sess.Record.CollectionComplete(),
	}
}

// CreateSessionHandler starts a new screening session and returns the
// opening prompt.
func (s *Server) CreateSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.Sessions.Create()
		greeting := s.Conv.Greeting()
		_ = s.Sessions.Do(sess.ID, func(live *domain.Session) error {
			live.Append(domain.RoleAssistant, greeting)
			return nil
		})
		LoggerFrom(r).Info("session created", "session_id", sess.ID)
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":    sess.ID,
			"state": sess.State,
			"reply": greeting,
		})
	}
}

type messageRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

type messageResponse struct {
	Reply    string       `json:"reply"`
	State    domain.State `json:"state"`
	Complete bool         `json:"collection_complete"`
}

// MessageHandler processes one user turn. Turn failures never surface as
// HTTP errors: the reply degrades to an apology and the session stays
// usable.
func (s *Server) MessageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req messageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json body", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}

		var resp messageResponse
		err := s.Sessions.Do(id, func(sess *domain.Session) error {
			resp.Reply = s.safeTurn(r, sess, req.Message)
			resp.State = sess.State
			resp.Complete = sess.Record.CollectionComplete()
			return nil
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// safeTurn runs one conversation turn and absorbs panics. Consecutive
// failures are counted on the session; successes reset the count.
func (s *Server) safeTurn(r *http.Request, sess *domain.Session, message string) (reply string) {
	defer func() {
		if rec := recover(); rec != nil {
			sess.SoftErrors++
			LoggerFrom(r).Error("turn failed",
				"session_id", sess.ID,
				"soft_errors", sess.SoftErrors,
				"recover", rec)
			reply = "I apologize, but I'm having trouble processing your message. Could you please try again?"
			if sess.SoftErrors >= softErrorThreshold {
				reply = "I apologize, but I'm having persistent trouble on my end. Please start a new session to continue your application."
			}
		}
	}()
	reply = s.Conv.HandleUserMessage(r.Context(), sess, message)
	sess.SoftErrors = 0
	return reply
}

// GetSessionHandler returns the full session snapshot.
func (s *Server) GetSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sess, err := s.Sessions.Get(id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toSessionResponse(sess))
	}
}

type questionsRequest struct {
	Skills     string `json:"skills" validate:"required,max=2000"`
	Experience string `json:"experience" validate:"max=100"`
	Position   string `json:"position" validate:"max=200"`
}

// QuestionsHandler generates a technical question set for an arbitrary
// candidate profile, independent of any session.
func (s *Server) QuestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req questionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json body", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}

		questions := s.Assessor.GenerateTechnicalQuestions(r.Context(), req.Skills, req.Experience, req.Position)

		evaluations := make([]domain.SkillEvaluation, 0, 4)
		for _, skill := range usecase.ParseSkills(req.Skills) {
			evaluations = append(evaluations, s.Assessor.EvaluateSkill(skill.Name, req.Experience, req.Position))
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"questions":   questions,
			"evaluations": evaluations,
		})
	}
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
