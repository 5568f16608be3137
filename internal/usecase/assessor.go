package usecase

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/ai-intake-agent/internal/config"
	"github.com/fairyhunter13/ai-intake-agent/internal/domain"
)

// Experience levels derived from years of experience.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// skillRelationships maps a skill category to skills commonly found
// alongside it. Used for categorizing free-text skill lists and for scoring
// complementary skills against a role.
var skillRelationships = map[string][]string{
	"javascript":       {"typescript", "react", "vue", "angular", "node.js", "express", "frontend"},
	"python":           {"django", "flask", "fastapi", "data science", "machine learning", "backend"},
	"java":             {"spring", "spring boot", "hibernate", "backend", "enterprise"},
	"c#":               {".net", "asp.net", "xamarin", "unity", "backend"},
	"react":            {"javascript", "typescript", "redux", "frontend", "react native"},
	"angular":          {"typescript", "javascript", "rxjs", "frontend"},
	"vue":              {"javascript", "vuex", "frontend"},
	"node.js":          {"javascript", "express", "backend", "api"},
	"php":              {"laravel", "symfony", "wordpress", "backend"},
	"sql":              {"postgresql", "mysql", "oracle", "database", "data"},
	"nosql":            {"mongodb", "couchdb", "cassandra", "database", "data"},
	"aws":              {"cloud", "devops", "serverless", "infrastructure"},
	"azure":            {"cloud", "devops", "microsoft", "infrastructure"},
	"devops":           {"ci/cd", "jenkins", "docker", "kubernetes", "infrastructure"},
	"machine learning": {"python", "tensorflow", "pytorch", "data science", "ai"},
	"data science":     {"python", "r", "statistics", "machine learning", "data"},
	"mobile":           {"android", "ios", "react native", "flutter", "frontend"},
	"blockchain":       {"smart contracts", "ethereum", "solidity", "web3"},
	"frontend":         {"html", "css", "javascript", "ui/ux", "responsive design"},
	"backend":          {"api", "database", "server", "authentication", "authorization"},
	"fullstack":        {"frontend", "backend", "javascript", "python", "java"},
}

// categoryOrder fixes the priority when a skill appears under several
// categories; earlier entries win.
var categoryOrder = []string{
	"javascript", "python", "java", "c#", "react", "angular", "vue", "node.js",
	"php", "sql", "nosql", "aws", "azure", "devops", "machine learning",
	"data science", "mobile", "blockchain", "frontend", "backend", "fullstack",
}

// roleSkills maps a role family to the skills considered core for it. A
// position title is matched against the family name and its skill keywords to
// pick the closest family.
var roleSkills = map[string][]string{
	"frontend":         {"javascript", "typescript", "react", "vue", "angular", "html", "css", "responsive", "ui/ux"},
	"backend":          {"java", "python", "c#", "node.js", "php", "go", "rust", "sql", "nosql", "api"},
	"fullstack":        {"javascript", "python", "java", "node.js", "react", "angular", "vue", "sql", "nosql"},
	"devops":           {"docker", "kubernetes", "jenkins", "github actions", "aws", "azure", "gcp", "linux", "ci/cd"},
	"data":             {"python", "r", "sql", "nosql", "pandas", "hadoop", "spark", "etl", "tableau", "power bi"},
	"mobile":           {"android", "ios", "swift", "kotlin", "react native", "flutter"},
	"machine learning": {"python", "tensorflow", "pytorch", "scikit-learn", "nlp", "computer vision"},
}

// roleOrder fixes tie-breaking between role families; earlier entries win.
var roleOrder = []string{
	"frontend", "backend", "fullstack", "devops", "data", "mobile", "machine learning",
}

var (
	skillSplitRe = regexp.MustCompile(`[,;/\s]+`)
	numberingRe  = regexp.MustCompile(`^\d+[.)]\s*`)
)

// ParsedSkill is one normalized entry from a free-text skill list.
type ParsedSkill struct {
	Name     string
	Category string
}

// questionBank maps skill (or category) to experience level to questions.
type questionBank map[string]map[string][]string

// defaultQuestionBank ships with the binary; a YAML file configured via
// QUESTION_BANK_PATH overlays or extends it.
var defaultQuestionBank = questionBank{
	"javascript": {
		LevelBeginner: {
			"What is the difference between var, let, and const?",
			"How does the event loop handle asynchronous callbacks?",
		},
		LevelIntermediate: {
			"Explain closures and give a practical example of where you used one.",
			"How do promises differ from async/await, and when would you prefer each?",
		},
		LevelAdvanced: {
			"How would you diagnose and fix a memory leak in a long-running Node.js service?",
			"Describe how you have structured a large JavaScript codebase for maintainability.",
		},
	},
	"python": {
		LevelBeginner: {
			"What is the difference between a list and a tuple?",
			"How do you handle exceptions in Python?",
		},
		LevelIntermediate: {
			"Explain how decorators work and describe one you have written.",
			"How does Python's GIL affect multi-threaded programs?",
		},
		LevelAdvanced: {
			"How have you profiled and optimized a slow Python service?",
			"Describe your approach to packaging and dependency management across environments.",
		},
	},
	"sql": {
		LevelBeginner: {
			"What is the difference between an INNER JOIN and a LEFT JOIN?",
			"When would you add an index to a table?",
		},
		LevelIntermediate: {
			"How would you find and fix a slow query in production?",
			"Explain transaction isolation levels and a problem each one prevents.",
		},
		LevelAdvanced: {
			"Describe a schema migration you performed on a large live table.",
			"How do you design for both transactional and analytical workloads?",
		},
	},
	"react": {
		LevelBeginner: {
			"What problem do React hooks solve compared to class components?",
			"How does React decide when to re-render a component?",
		},
		LevelIntermediate: {
			"How do you manage shared state across distant components?",
			"Describe how you would optimize a list of thousands of rows.",
		},
		LevelAdvanced: {
			"How have you structured a large React application and its data layer?",
			"Explain your approach to server-side rendering and its trade-offs.",
		},
	},
	"devops": {
		LevelBeginner: {
			"What does a CI pipeline do, and what stages have you set up?",
			"Explain the difference between a container and a virtual machine.",
		},
		LevelIntermediate: {
			"How do you roll back a bad deployment with minimal downtime?",
			"Describe how you monitor a production service and what you alert on.",
		},
		LevelAdvanced: {
			"Walk through an incident you led and what changed afterwards.",
			"How have you designed infrastructure for multi-region failover?",
		},
	},
}

// fallbackQuestionTemplates produce generic per-skill questions when neither
// the bank nor the model yields anything. %s is the skill name.
var fallbackQuestionTemplates = map[string][]string{
	LevelBeginner: {
		"Describe your experience with %s and what you've built with it so far.",
		"What are the fundamental concepts of %s that you're familiar with?",
		"How have you approached learning %s and what resources have you found most helpful?",
	},
	LevelIntermediate: {
		"What challenges have you overcome while working with %s in a professional context?",
		"How do you stay updated with best practices and new developments in %s?",
		"Describe a complex problem you solved using %s and your approach to it.",
	},
	LevelAdvanced: {
		"How have you optimized or improved %s implementations in previous roles?",
		"Describe your approach to mentoring junior developers in %s.",
		"What architectural decisions have you made around %s and what were the trade-offs?",
	},
}

// Assessor scores candidate skills against a position and builds tailored
// technical interview questions.
type Assessor struct {
	cfg  config.Config
	gen  domain.Generator
	bank questionBank

	mu  sync.Mutex
	rng *rand.Rand
}

// NewAssessor builds the assessor. gen may be nil; question generation then
// relies on the bank and templates only.
func NewAssessor(cfg config.Config, gen domain.Generator) *Assessor {
	a := &Assessor{
		cfg:  cfg,
		gen:  gen,
		bank: loadQuestionBank(cfg.QuestionBankPath),
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	return a
}

// loadQuestionBank overlays an optional YAML file onto the embedded bank.
// A missing or unreadable file is not an error.
func loadQuestionBank(path string) questionBank {
	bank := make(questionBank, len(defaultQuestionBank))
	for skill, levels := range defaultQuestionBank {
		bank[skill] = levels
	}
	if path == "" {
		return bank
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("question bank file not readable; using defaults",
			slog.String("path", path), slog.Any("error", err))
		return bank
	}
	var overlay questionBank
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		slog.Warn("question bank file not valid yaml; using defaults",
			slog.String("path", path), slog.Any("error", err))
		return bank
	}
	for skill, levels := range overlay {
		bank[strings.ToLower(skill)] = levels
	}
	slog.Info("question bank loaded", slog.String("path", path), slog.Int("skills", len(bank)))
	return bank
}

// ParseSkills splits a free-text skill list into normalized, categorized,
// deduplicated entries. Tokens shorter than two characters are dropped.
func ParseSkills(text string) []ParsedSkill {
	tokens := skillSplitRe.Split(strings.ToLower(text), -1)
	seen := make(map[string]bool, len(tokens))
	skills := make([]ParsedSkill, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if len(tok) < 2 || seen[tok] {
			continue
		}
		seen[tok] = true
		skills = append(skills, ParsedSkill{Name: tok, Category: categorize(tok)})
	}
	return skills
}

func categorize(skill string) string {
	for _, cat := range categoryOrder {
		if skill == cat || contains(skillRelationships[cat], skill) {
			return cat
		}
	}
	return "unknown"
}

// ExperienceLevel buckets years of experience. Unparsable input defaults to
// intermediate.
func ExperienceLevel(years string) string {
	cleaned := strings.TrimSpace(strings.NewReplacer("years", "", "year", "").Replace(years))
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return LevelIntermediate
	}
	switch {
	case v < 2:
		return LevelBeginner
	case v < 5:
		return LevelIntermediate
	default:
		return LevelAdvanced
	}
}

// EvaluateSkill scores one skill for relevance to a position. Scores within a
// relevance band are drawn from the assessor's RNG so repeated evaluations of
// similar profiles vary, then adjusted for experience level.
func (a *Assessor) EvaluateSkill(skill, experience, position string) domain.SkillEvaluation {
	eval := domain.SkillEvaluation{
		Skill:           skill,
		Relevance:       "moderate",
		Score:           50,
		ExperienceLevel: ExperienceLevel(experience),
		Recommendation:  "Consider exploring this skill further in the interview.",
	}
	if position == "" {
		return eval
	}

	role := matchRole(position)
	if role == "" {
		eval.Recommendation = fmt.Sprintf("Explore how %s has been applied in previous roles.", skill)
		return eval
	}

	skillLower := strings.ToLower(skill)
	switch {
	case contains(roleSkills[role], skillLower):
		eval.Relevance = "high"
		eval.Score = a.randBetween(80, 100)
		eval.Recommendation = fmt.Sprintf("%s is a core skill for this %s role. Explore depth of expertise.", skill, role)
	case relatedToRole(skillLower, role):
		eval.Relevance = "medium-high"
		eval.Score = a.randBetween(65, 80)
		eval.Recommendation = fmt.Sprintf("%s is a complementary skill for this %s role. Assess how it enhances their primary expertise.", skill, role)
	case len(skillRelationships[skillLower]) > 0:
		eval.Relevance = "medium-low"
		eval.Score = a.randBetween(40, 65)
		eval.Recommendation = fmt.Sprintf("While %s is not directly related to the %s role, it may provide valuable perspective.", skill, role)
	default:
		eval.Relevance = "low"
		eval.Score = a.randBetween(20, 40)
		eval.Recommendation = fmt.Sprintf("%s appears to be outside the core requirements for this %s role, but may indicate breadth of knowledge.", skill, role)
	}

	multiplier := map[string]float64{
		LevelBeginner:     0.8,
		LevelIntermediate: 1.0,
		LevelAdvanced:     1.2,
	}[eval.ExperienceLevel]
	eval.Score = clampScore(int(float64(eval.Score) * multiplier))
	return eval
}

// matchRole picks the role family whose core skills appear most often in the
// position title. Empty when nothing matches.
func matchRole(position string) string {
	lower := strings.ToLower(position)
	best, bestCount := "", 0
	for _, role := range roleOrder {
		count := 0
		if strings.Contains(lower, role) {
			count++
		}
		for _, kw := range roleSkills[role] {
			if strings.Contains(lower, kw) {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = role, count
		}
	}
	return best
}

func relatedToRole(skill, role string) bool {
	for _, r := range skillRelationships[skill] {
		if contains(roleSkills[role], r) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// randBetween returns an int in [lo, hi].
func (a *Assessor) randBetween(lo, hi int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return lo + a.rng.Intn(hi-lo+1)
}

func (a *Assessor) sample(list []string, n int) []string {
	if len(list) <= n {
		return list
	}
	a.mu.Lock()
	idx := a.rng.Perm(len(list))
	a.mu.Unlock()
	out := make([]string, 0, n)
	for _, i := range idx[:n] {
		out = append(out, list[i])
	}
	return out
}

// GenerateTechnicalQuestions builds a markdown question set for a candidate
// profile. Questions come from the bank when available, then from the model,
// then from generic level templates. Per-skill and total caps come from
// config.
func (a *Assessor) GenerateTechnicalQuestions(ctx domain.Context, skills, experience, position string) string {
	if strings.TrimSpace(skills) == "" {
		return "Could not generate questions without skill information."
	}
	parsed := ParseSkills(skills)
	if len(parsed) == 0 {
		return "Could not identify specific skills to generate questions. Please provide more details about your technical expertise."
	}

	level := ExperienceLevel(experience)

	// Most relevant skills first so the cap trims from the tail.
	if position != "" {
		scores := make(map[string]int, len(parsed))
		for _, s := range parsed {
			scores[s.Name] = a.EvaluateSkill(s.Name, experience, position).Score
		}
		sort.SliceStable(parsed, func(i, j int) bool {
			return scores[parsed[i].Name] > scores[parsed[j].Name]
		})
	}

	type skillQuestion struct {
		skill    string
		question string
	}
	var all []skillQuestion
	for _, s := range parsed {
		if len(all) >= a.cfg.MaxTotalQuestions {
			break
		}
		questions := a.questionsForSkill(ctx, s, position, level)
		if len(questions) > a.cfg.MaxQuestionsPerSkill {
			questions = questions[:a.cfg.MaxQuestionsPerSkill]
		}
		for _, q := range questions {
			if len(all) >= a.cfg.MaxTotalQuestions {
				break
			}
			all = append(all, skillQuestion{skill: s.Name, question: q})
		}
	}
	if len(all) == 0 {
		return "Could not generate appropriate technical questions. Please review the candidate's skills and experience."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Technical Interview Questions\n\nBased on the candidate's profile (%s level, %s), here are customized technical questions:\n\n", level, position)
	for i, q := range all {
		fmt.Fprintf(&b, "### %d. %s Question\n%s\n\n", i+1, capitalize(q.skill), q.question)
	}
	b.WriteString("### Interviewer Notes\n")
	fmt.Fprintf(&b, "- Candidate has indicated %s years of experience, placing them at an %s level.\n", experience, level)
	top := parsed
	if len(top) > 3 {
		top = top[:3]
	}
	names := make([]string, len(top))
	for i, s := range top {
		names[i] = s.Name
	}
	fmt.Fprintf(&b, "- Focus on depth of knowledge in their primary skills: %s\n", strings.Join(names, ", "))
	b.WriteString("- These questions are designed to reveal both theoretical understanding and practical application.\n")
	return b.String()
}

// questionsForSkill resolves questions from the bank (skill, then category),
// falling back to model generation and finally to generic templates.
func (a *Assessor) questionsForSkill(ctx domain.Context, skill ParsedSkill, position, level string) []string {
	if qs := a.bank[skill.Name][level]; len(qs) > 0 {
		return a.sample(qs, a.cfg.MaxQuestionsPerSkill)
	}
	if qs := a.bank[skill.Category][level]; len(qs) > 0 {
		return a.sample(qs, a.cfg.MaxQuestionsPerSkill)
	}
	if qs := a.questionsFromModel(ctx, skill.Name, position, level); len(qs) > 0 {
		return qs
	}
	return a.templateQuestions(skill.Name, level)
}

func (a *Assessor) questionsFromModel(ctx domain.Context, skill, position, level string) []string {
	if a.gen == nil {
		return nil
	}
	years := map[string]string{
		LevelBeginner:     "1-2",
		LevelIntermediate: "3-5",
		LevelAdvanced:     "5+",
	}[level]
	positionContext := ""
	if position != "" {
		positionContext = fmt.Sprintf(" for a %s role", position)
	}
	prompt := fmt.Sprintf(`Generate %d technical interview questions about %s that would be appropriate for a candidate with %s years of experience%s.

The questions should:
1. Be specific to %s and appropriate for %s level (no basic questions for advanced candidates)
2. Assess both theoretical knowledge and practical application
3. Reveal the depth of the candidate's expertise
4. Be concise and clearly worded

Format your response as a numbered list with only the questions, nothing else.
`, a.cfg.MaxQuestionsPerSkill, skill, years, positionContext, skill, level)

	gen := a.gen.Generate(ctx, domain.GenerateRequest{
		Prompt:      prompt,
		Task:        domain.TaskTechnicalQuestions,
		Temperature: 0.7,
		MaxTokens:   300,
	})
	if gen.Fallback {
		return nil
	}
	var questions []string
	for _, line := range strings.Split(gen.Text, "\n") {
		line = numberingRe.ReplaceAllString(strings.TrimSpace(line), "")
		if len(line) > 10 {
			questions = append(questions, line)
		}
	}
	if len(questions) > a.cfg.MaxQuestionsPerSkill {
		questions = questions[:a.cfg.MaxQuestionsPerSkill]
	}
	return questions
}

func (a *Assessor) templateQuestions(skill, level string) []string {
	templates, ok := fallbackQuestionTemplates[level]
	if !ok {
		templates = fallbackQuestionTemplates[LevelIntermediate]
	}
	picked := a.sample(templates, a.cfg.MaxQuestionsPerSkill)
	out := make([]string, len(picked))
	for i, tpl := range picked {
		out[i] = fmt.Sprintf(tpl, skill)
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
