package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrEmptyCompletion   = errors.New("empty completion")
	ErrInternal          = errors.New("internal error")
)

// Field identifies one candidate-record field collected during screening.
type Field string

// Canonical candidate fields. FieldOrder below determines which field is
// "current" during data collection.
const (
	FieldName       Field = "name"
	FieldEmail      Field = "email"
	FieldPhone      Field = "phone"
	FieldExperience Field = "experience"
	FieldPosition   Field = "position"
	FieldLocation   Field = "location"
	FieldTechStack  Field = "tech_stack"
)

// FieldOrder is the canonical collection order. A field is "collected" iff
// its value is non-empty; the first empty field in this order is the one the
// conversation is currently asking for.
var FieldOrder = []Field{
	FieldName,
	FieldEmail,
	FieldPhone,
	FieldExperience,
	FieldPosition,
	FieldLocation,
	FieldTechStack,
}

// CandidateRecord holds the structured data gathered from a candidate.
// Fields are set one at a time as each answer validates; they are never
// deleted within a session.
type CandidateRecord struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Experience string `json:"experience"`
	Position   string `json:"position"`
	Location   string `json:"location"`
	TechStack  string `json:"tech_stack"`
}

// Get returns the value stored for a field.
func (r *CandidateRecord) Get(f Field) string {
	switch f {
	case FieldName:
		return r.Name
	case FieldEmail:
		return r.Email
	case FieldPhone:
		return r.Phone
	case FieldExperience:
		return r.Experience
	case FieldPosition:
		return r.Position
	case FieldLocation:
		return r.Location
	case FieldTechStack:
		return r.TechStack
	}
	return ""
}

// Set stores a validated value for a field.
func (r *CandidateRecord) Set(f Field, v string) {
	switch f {
	case FieldName:
		r.Name = v
	case FieldEmail:
		r.Email = v
	case FieldPhone:
		r.Phone = v
	case FieldExperience:
		r.Experience = v
	case FieldPosition:
		r.Position = v
	case FieldLocation:
		r.Location = v
	case FieldTechStack:
		r.TechStack = v
	}
}

// FirstMissing returns the first field in canonical order that has no value
// yet, and false when every field is collected.
func (r *CandidateRecord) FirstMissing() (Field, bool) {
	for _, f := range FieldOrder {
		if r.Get(f) == "" {
			return f, true
		}
	}
	return "", false
}

// CollectionComplete reports whether all canonical fields hold non-empty
// validated values.
func (r *CandidateRecord) CollectionComplete() bool {
	_, missing := r.FirstMissing()
	return !missing
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one transcript entry. Insertion order is significant: it is
// both the render order and the LLM context order.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// State tags the active conversation phase. Exactly one state is active per
// session; transitions are deterministic functions of (state, record
// completeness, detected intent, input).
type State string

const (
	StateInitial             State = "initial"
	StateDataCollection      State = "data_collection"
	StateTechnicalAssessment State = "technical_assessment"
	StateFeedback            State = "feedback"
	StateCompletion          State = "completion"
	StateFollowUp            State = "follow_up"
	StateGeneralChat         State = "general_chat"
)

// Intent classifies a user message before any state handling.
type Intent string

const (
	IntentGreeting  Intent = "greeting"
	IntentGoodbye   Intent = "goodbye"
	IntentHelp      Intent = "help"
	IntentRestart   Intent = "restart"
	IntentGibberish Intent = "gibberish"
	IntentUnknown   Intent = "unknown"
)

// TaskType is the closed enumeration of LLM request categories. Each task
// maps to a default model, a system prompt, and a fallback response.
type TaskType string

const (
	TaskScreening          TaskType = "screening"
	TaskTechnicalQuestions TaskType = "technical_questions"
	TaskSkillAssessment    TaskType = "skill_assessment"
	TaskConversation       TaskType = "conversation"
	TaskSummarization      TaskType = "summarization"
	TaskQuickResponse      TaskType = "quick_response"
)

// Session is the explicit per-conversation state passed into every core
// call. The core never reaches into ambient storage.
type Session struct {
	ID         string          `json:"id"`
	State      State           `json:"state"`
	Record     CandidateRecord `json:"record"`
	Transcript []Message       `json:"transcript"`
	// SoftErrors counts consecutive unclassified failures at the
	// presentation boundary; reset on any successful turn.
	SoftErrors int       `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// Append adds one entry to the transcript. The transcript is append-only;
// bounded slicing for prompts copies, never mutates.
func (s *Session) Append(role, content string) {
	s.Transcript = append(s.Transcript, Message{Role: role, Content: content})
}

// SkillEvaluation is derived on demand from the candidate record and the
// skill-relationship graph; it is never persisted.
type SkillEvaluation struct {
	Skill           string `json:"skill"`
	Relevance       string `json:"relevance"`
	Score           int    `json:"score"`
	ExperienceLevel string `json:"experience_level"`
	Recommendation  string `json:"recommendation"`
}

// GenerateRequest describes one LLM generation.
type GenerateRequest struct {
	Prompt       string
	Task         TaskType
	SystemPrompt string  // optional; resolved per task when empty
	Model        string  // optional; resolved per task when empty
	Temperature  float64 // <=0 means default (0.7)
	MaxTokens    int     // <=0 means default (300)
	NoCache      bool
}

// Generation is the result of a generation. Text is always non-empty:
// provider failure degrades to a per-task fallback with Err set rather than
// an error return.
type Generation struct {
	Text       string
	Model      string
	TokensUsed int
	CacheHit   bool
	Fallback   bool
	Err        string
}

// Generator is the LLM client port consumed by the conversation manager and
// skill assessor.
type Generator interface {
	Generate(ctx Context, req GenerateRequest) Generation
}

// ChatRequest is one raw call to the external completion endpoint.
type ChatRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// ChatResult carries the completion text and reported token usage (0 when
// the provider omits usage).
type ChatResult struct {
	Text        string
	TotalTokens int
}

// CompletionClient is the transport port hiding the external service. A nil
// client means the deployment has no credentials; callers degrade to
// fallback text.
type CompletionClient interface {
	Chat(ctx Context, req ChatRequest) (ChatResult, error)
}

// ResponseCache is the content-addressed response store. Both methods are
// silent: I/O failure degrades to a miss and a dropped write.
type ResponseCache interface {
	Get(ctx Context, prompt, model string, temperature float64) (string, bool)
	Put(ctx Context, prompt, model string, temperature float64, text string)
}

// Context aliases context.Context so usecases and adapters share one
// signature shape without the domain importing adapter concerns.
type Context = context.Context
