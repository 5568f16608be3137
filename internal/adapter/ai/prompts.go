// Package ai implements the LLM client: task-based model and prompt
// selection, rate limiting, retries with model/temperature adjustment,
// response-quality gating, caching, and fallback text.
package ai

import "github.com/fairyhunter13/ai-intake-agent/internal/domain"

// Model identifiers on the Groq OpenAI-compatible endpoint.
const (
	// ModelLlama3 is the strongest general-purpose model; retries escalate
	// to it.
	ModelLlama3 = "llama3-70b-8192"
	// ModelMixtral has the largest context window; long prompts are routed
	// here.
	ModelMixtral = "mixtral-8x7b-32768"
	// ModelGemma is the fast small model for quick responses.
	ModelGemma = "gemma-7b-it"
)

// taskProfile binds one TaskType to its model, system prompt and degraded
// fallback. The table is exhaustive over domain task constants; unknown
// tasks resolve to the screening profile.
type taskProfile struct {
	model        string
	systemPrompt string
	fallback     string
}

var taskProfiles = map[domain.TaskType]taskProfile{
	domain.TaskScreening: {
		model: ModelLlama3,
		systemPrompt: `You are TalentScout, a professional hiring assistant.
Your goal is to help screen candidates by gathering information and assessing fit.
Keep your responses concise, professional, and focused on the candidate's qualifications.
Be friendly but maintain a professional tone suitable for a hiring context.
If you don't know something, acknowledge it rather than making up information.`,
		fallback: "Thank you for your response. I've noted your information and will continue with the screening process. Could you please provide more details about your experience and skills?",
	},
	domain.TaskTechnicalQuestions: {
		model: ModelLlama3,
		systemPrompt: `You are TalentScout, an expert technical interviewer.
Generate insightful, targeted technical questions that assess both theoretical knowledge and practical experience.
Tailor questions to the candidate's experience level: avoid basic questions for senior candidates and advanced questions for juniors.
For coding questions, focus on problem-solving approach rather than specific syntax.`,
		fallback: "Based on your experience, I'd like to ask about your approach to problem-solving in your technical work. Could you describe a challenging technical problem you've solved recently and how you approached it?",
	},
	domain.TaskSkillAssessment: {
		model: ModelLlama3,
		systemPrompt: `You are TalentScout, a technical skill assessor.
Analyze technical skills and provide constructive evaluation based on industry standards.
Consider both the core skill mentioned and its relation to adjacent technologies.
Be honest but constructive when identifying skill gaps.`,
		fallback: "Your technical background is valuable. To better understand your expertise, could you elaborate on which aspects of these technologies you've used most extensively in your work?",
	},
	domain.TaskConversation: {
		model: ModelMixtral,
		systemPrompt: `You are TalentScout, a conversational hiring assistant.
Maintain the flow of conversation while extracting relevant information for the hiring process.
Keep track of what has been discussed and avoid repeating questions.
Be concise, engaging, and clear in your communication.`,
		fallback: "I appreciate you sharing that information. Let's continue our conversation about your qualifications and how they align with this position.",
	},
	domain.TaskSummarization: {
		model: ModelLlama3,
		systemPrompt: `You are TalentScout, a hiring data analyst.
Summarize candidate information objectively, highlighting key qualifications and potential fit.
Present both strengths and areas for development in a balanced way.
Avoid including personal opinions or biases in your summary.`,
		fallback: "Based on our conversation, I've gathered some key information about your background and skills. We'll take this into consideration for the next steps of the hiring process.",
	},
	domain.TaskQuickResponse: {
		model: ModelGemma,
		systemPrompt: `You are TalentScout, a responsive hiring assistant.
Provide clear, direct responses to immediate questions or clarifications.
Be brief but helpful, focusing on the most relevant information.`,
		fallback: "Thank you for your question. I'll make a note of it and ensure it's addressed appropriately.",
	},
}

// profileFor resolves the task table entry, defaulting to screening.
func profileFor(task domain.TaskType) taskProfile {
	if p, ok := taskProfiles[task]; ok {
		return p
	}
	return taskProfiles[domain.TaskScreening]
}

// FallbackText returns the static degraded-mode response for a task.
func FallbackText(task domain.TaskType) string {
	return profileFor(task).fallback
}
