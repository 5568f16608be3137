package usecase

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/fairyhunter13/ai-intake-agent/internal/adapter/observability"
	"github.com/fairyhunter13/ai-intake-agent/internal/config"
	"github.com/fairyhunter13/ai-intake-agent/internal/domain"
	"github.com/fairyhunter13/ai-intake-agent/pkg/textx"
)

// intentRule binds compiled patterns to an intent. Rules are evaluated in
// order; the first match wins.
type intentRule struct {
	intent   domain.Intent
	patterns []*regexp.Regexp
}

var intentRules = []intentRule{
	{domain.IntentGreeting, compileAll(
		`(?i)^(hi|hello|hey|greetings|howdy)[\s.,!]*$`,
		`(?i)^good\s(morning|afternoon|evening|day)[\s.,!]*$`,
	)},
	{domain.IntentGoodbye, compileAll(
		`(?i)^(bye|goodbye|see\syou|farewell)[\s.,!]*$`,
		`(?i)^(end|finish|complete)\s(chat|conversation|interview)[\s.,!]*$`,
	)},
	{domain.IntentHelp, compileAll(
		`(?i)^(help|assist|guidance|support)[\s.,?!]*$`,
		`(?i)^what\scan\syou\sdo[\s.,?!]*$`,
		`(?i)^how\s(does\sthis|do\syou)\swork[\s.,?!]*$`,
	)},
	{domain.IntentRestart, compileAll(
		`(?i)^(restart|start\sover|reset|begin\sagain)[\s.,!]*$`,
	)},
	{domain.IntentGibberish, compileAll(
		`^[a-zA-Z]{1,2}$`,
		`^[a-zA-Z]{20,}$`,
		`^[\W_]+$`,
	)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// DetectIntent classifies a sanitized message against the intent rules.
// Gibberish is the last rule, so the repeated-character check runs after
// the pattern rules and keeps the same precedence.
func DetectIntent(input string) domain.Intent {
	for _, rule := range intentRules {
		for _, re := range rule.patterns {
			if re.MatchString(input) {
				return rule.intent
			}
		}
	}
	if hasRepeatedRun(input, 5) {
		return domain.IntentGibberish
	}
	return domain.IntentUnknown
}

// hasRepeatedRun reports whether s contains n or more consecutive identical
// characters. RE2 has no backreferences, so this is a plain rune loop.
func hasRepeatedRun(s string, n int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run >= n {
			return true
		}
	}
	return false
}

const welcomePrompt = "Welcome! I'm your hiring assistant, here to help with the initial screening process. To get started, could you please tell me your full name?"

// fieldPrompts ask for the next missing candidate field. The email prompt is
// personalized once the name is known.
var fieldPrompts = map[domain.Field]string{
	domain.FieldName:       welcomePrompt,
	domain.FieldEmail:      "Thank you, %s! Could you please provide your email address?",
	domain.FieldPhone:      "Great! Now, what's your phone number?",
	domain.FieldExperience: "How many years of experience do you have in your field?",
	domain.FieldPosition:   "What position are you applying for?",
	domain.FieldLocation:   "What is your current location?",
	domain.FieldTechStack:  "Please list your tech stack (programming languages, frameworks, databases, tools you're proficient in):",
}

// fieldDescriptions name each field in re-prompt fallbacks.
var fieldDescriptions = map[domain.Field]string{
	domain.FieldName:       "full name",
	domain.FieldEmail:      "email address (example: name@company.com)",
	domain.FieldPhone:      "phone number",
	domain.FieldExperience: "years of experience in your field",
	domain.FieldPosition:   "position you're applying for",
	domain.FieldLocation:   "current location or city",
	domain.FieldTechStack:  "technical skills and technologies you're proficient in",
}

// Conversation drives the screening dialogue: scripted field collection with
// validation, intent shortcuts, and model-backed replies everywhere else.
type Conversation struct {
	cfg config.Config
	gen domain.Generator
}

func NewConversation(cfg config.Config, gen domain.Generator) *Conversation {
	return &Conversation{cfg: cfg, gen: gen}
}

// Greeting returns the opening prompt for a new session.
func (c *Conversation) Greeting() string { return welcomePrompt }

// HandleUserMessage processes one user turn against the session and returns
// the assistant reply. Both sides of the exchange are appended to the
// session transcript and session state is advanced in place.
func (c *Conversation) HandleUserMessage(ctx domain.Context, sess *domain.Session, raw string) string {
	sanitized := textx.Sanitize(raw)
	intent := DetectIntent(sanitized)

	slog.Debug("handling user message",
		slog.String("session_id", sess.ID),
		slog.String("state", string(sess.State)),
		slog.String("intent", string(intent)))

	reply := c.respond(ctx, sess, sanitized, intent)
	reply = textx.Truncate(reply, c.cfg.MaxReplyLength)

	sess.Append(domain.RoleUser, sanitized)
	sess.Append(domain.RoleAssistant, reply)
	observability.ConversationTurnsTotal.WithLabelValues(string(sess.State)).Inc()
	return reply
}

func (c *Conversation) respond(ctx domain.Context, sess *domain.Session, input string, intent domain.Intent) string {
	switch intent {
	case domain.IntentGibberish:
		return c.fallbackResponse(sess)

	case domain.IntentRestart:
		// Restart discards everything collected so far.
		sess.Record = domain.CandidateRecord{}
		sess.State = domain.StateDataCollection
		return "I've reset our conversation. Let's start again. Could you please tell me your full name?"

	case domain.IntentGoodbye:
		if sess.State != domain.StateCompletion {
			sess.State = domain.StateCompletion
		}
		return "Thank you for your time today. Your application has been recorded. Our hiring team will review your information and contact you within 5-7 business days."

	case domain.IntentHelp:
		// Help phrasing collides with plausible open-text answers
		// ("Support" as the position), so those fields capture the
		// input instead of short-circuiting.
		if field, collecting := awaitingField(sess); !collecting || !helpCollides(field) {
			return "I'm your hiring assistant. I'll guide you through the screening process by asking about your background, experience, and skills. Just answer each question as it comes up. If you need to correct any information, just let me know."
		}

	case domain.IntentGreeting:
		if field, collecting := awaitingField(sess); !collecting || field != domain.FieldName {
			return "Hello again! Let's continue with the screening process."
		}
		// A bare greeting at the very start just re-asks for the name.
		sess.State = domain.StateDataCollection
		return welcomePrompt
	}

	if sess.State == domain.StateInitial {
		sess.State = domain.StateDataCollection
	}
	if sess.State == domain.StateDataCollection {
		return c.collectField(sess, input)
	}
	return c.advance(ctx, sess, input)
}

// awaitingField returns the candidate field currently being collected, when
// the session is still in the collection phase.
func awaitingField(sess *domain.Session) (domain.Field, bool) {
	if sess.State != domain.StateInitial && sess.State != domain.StateDataCollection {
		return "", false
	}
	return sess.Record.FirstMissing()
}

// helpCollides reports whether the field accepts free text that a
// help-looking message could legitimately answer. The name field is
// excluded: the opening prompt asks for a full name, and a bare "help"
// there is a request for guidance, not a name.
func helpCollides(field domain.Field) bool {
	switch field {
	case domain.FieldPosition, domain.FieldLocation, domain.FieldTechStack:
		return true
	}
	return false
}

// advance walks the wrap-up states after data collection: the technical
// assessment and feedback turns acknowledge and move on, then the session
// settles into model-backed follow-up chat.
func (c *Conversation) advance(ctx domain.Context, sess *domain.Session, input string) string {
	switch sess.State {
	case domain.StateTechnicalAssessment:
		sess.State = domain.StateFeedback
		return "Thank you for your responses to the technical questions. Your answers will help us evaluate your fit for this role."
	case domain.StateFeedback:
		sess.State = domain.StateCompletion
		return "Thank you for completing this screening. Our team will review your application and contact you soon."
	case domain.StateCompletion:
		sess.State = domain.StateFollowUp
	}
	return c.modelReply(ctx, sess, input)
}

// collectField validates the input against the first missing candidate field,
// stores it, and returns the next prompt or the confirmation summary.
func (c *Conversation) collectField(sess *domain.Session, input string) string {
	field, missing := sess.Record.FirstMissing()
	if !missing {
		sess.State = domain.StateTechnicalAssessment
		return c.confirmationSummary(sess.Record)
	}

	value, ok := ValidateField(field, input)
	if !ok {
		// value carries the correction message.
		return value
	}
	sess.Record.Set(field, value)

	next, stillMissing := sess.Record.FirstMissing()
	if !stillMissing {
		sess.State = domain.StateTechnicalAssessment
		return c.confirmationSummary(sess.Record)
	}
	return c.promptFor(next, sess.Record)
}

func (c *Conversation) promptFor(field domain.Field, record domain.CandidateRecord) string {
	prompt := fieldPrompts[field]
	if field == domain.FieldEmail {
		return fmt.Sprintf(prompt, record.Name)
	}
	return prompt
}

func (c *Conversation) confirmationSummary(r domain.CandidateRecord) string {
	return fmt.Sprintf(
		"Thank you for your information. I have: Name: %s, Email: %s, Phone: %s, Experience: %s years, Position: %s, Location: %s, Tech Stack: %s. Now I'll ask a few technical questions.",
		r.Name, r.Email, r.Phone, r.Experience, r.Position, r.Location, r.TechStack)
}

// fallbackResponse steers an unintelligible message back to the current
// phase of the dialogue.
func (c *Conversation) fallbackResponse(sess *domain.Session) string {
	name := sess.Record.Name
	if name == "" {
		name = "there"
	}

	switch sess.State {
	case domain.StateInitial:
		return fmt.Sprintf("Hi %s, I didn't quite understand that. I'm your hiring assistant. To get started with the screening process, could you please tell me your full name?", name)
	case domain.StateDataCollection:
		if field, missing := sess.Record.FirstMissing(); missing {
			return fmt.Sprintf("I need to collect some information for your application. Could you please provide your %s?", fieldDescriptions[field])
		}
	case domain.StateTechnicalAssessment:
		return fmt.Sprintf("I didn't quite understand your response, %s. We're currently in the technical assessment phase. Could you please elaborate on your experience with the technologies you mentioned?", name)
	}
	return fmt.Sprintf("I didn't quite understand that, %s. Could you please rephrase or provide more details? I'm here to help with your job application.", name)
}

// modelReply answers free-form messages with the model, feeding it the
// candidate profile and a bounded window of recent conversation.
func (c *Conversation) modelReply(ctx domain.Context, sess *domain.Session, input string) string {
	prompt := fmt.Sprintf(`Current conversation state: %s
Candidate: %s
Position: %s
Experience: %s years
Tech stack: %s

Recent conversation:
%s
Latest message: %q

Respond as a professional hiring assistant. Keep your response concise (under 75 words), focused on screening for the position, and maintain a professional tone.`,
		sess.State,
		orDefault(sess.Record.Name, "Unnamed candidate"),
		orDefault(sess.Record.Position, "Unspecified position"),
		orDefault(sess.Record.Experience, "Unknown"),
		orDefault(sess.Record.TechStack, "Not specified"),
		c.formatHistory(sess.Transcript),
		input)

	gen := c.gen.Generate(ctx, domain.GenerateRequest{Prompt: prompt, Task: domain.TaskScreening})
	return gen.Text
}

// formatHistory renders the most recent transcript turns, truncating long
// messages so the context window stays bounded.
func (c *Conversation) formatHistory(transcript []domain.Message) string {
	start := 0
	if len(transcript) > c.cfg.ContextMaxTurns {
		start = len(transcript) - c.cfg.ContextMaxTurns
	}
	var b strings.Builder
	for _, msg := range transcript[start:] {
		speaker := "Assistant"
		if msg.Role == domain.RoleUser {
			speaker = "User"
		}
		content := textx.Truncate(msg.Content, c.cfg.ContextMessageMaxLen)
		fmt.Fprintf(&b, "%s: %s\n\n", speaker, content)
	}
	return b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
