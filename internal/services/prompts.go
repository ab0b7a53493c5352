package services

import (
	"fmt"
	"strings"

	"github.com/bcllcc/MockMate/internal/models"
)

const (
	LangEnglish = "en"
	LangChinese = "zh"
)

const (
	tempQuestions = 0.6
	tempOpening   = 0.7
	tempFollowUp  = 0.4
	tempFeedback  = 0.5
	tempResume    = 0.35
)

func inLanguage(system, language, instruction string) string {
	if language == LangChinese {
		return system + " " + instruction
	}
	return system
}

func questionsPrompt(req QuestionRequest) (string, string) {
	system := "You are a senior interviewer preparing a structured mock interview. " +
		"Return a JSON object with a `questions` array. Each item must contain `text` and `topic`."
	system = inLanguage(system, req.Language, "Respond entirely in Simplified Chinese.")

	user := fmt.Sprintf(
		"Resume summary:\n%s\n\nJob description:\n%s\n\nInterviewer style: %s\nNumber of questions: %d\n"+
			"The questions should be concise, with unique topics, and reference the resume or job needs when relevant.",
		req.ResumeSummary, req.JobDescription, req.InterviewerStyle, req.Count,
	)
	return system, user
}

func openingPrompt(req OpeningRequest) (string, string) {
	system := fmt.Sprintf("You are a %s interviewer opening a mock interview. "+
		"Greet the candidate in one short sentence, then ask the given question in a natural spoken tone. "+
		"Reply with the words you would say only: no JSON, no markdown, no stage directions.", req.InterviewerStyle)
	system = inLanguage(system, req.Language, "Respond in Simplified Chinese.")

	user := fmt.Sprintf("Resume summary:\n%s\n\nJob description:\n%s\n\nFirst question: %s",
		req.ResumeSummary, req.JobDescription, req.Question.Text)
	return system, user
}

func followUpPrompt(req FollowUpRequest) (string, string) {
	system := "You review candidate answers and decide whether a follow-up question is needed. " +
		"Return JSON with `follow_up` (string or null) and optional `topic`."
	system = inLanguage(system, req.Language, "Respond in Simplified Chinese.")

	user := fmt.Sprintf("Original question: %s\nTopic: %s\nCandidate answer: %s\n"+
		"If the answer is adequate, respond with {\"follow_up\": null}. If a follow-up is helpful, craft one targeted question.",
		req.Prompt.Text, req.Prompt.Topic, req.Answer)
	return system, user
}

func feedbackPrompt(style, language string, turns []models.InterviewTurn) (string, string) {
	system := "You evaluate mock interviews and provide constructive feedback. " +
		"Return JSON with `overall_score` (0-100 number), `summary`, `strengths`, `weaknesses`, `suggestions`."
	system = inLanguage(system, language, "Write the feedback in Simplified Chinese.")

	lines := make([]string, 0, len(turns))
	for i, t := range turns {
		lines = append(lines, fmt.Sprintf("Q%d: %s\nA%d: %s", i+1, t.Question, i+1, t.Answer))
	}
	transcript := strings.Join(lines, "\n\n")
	if transcript == "" {
		transcript = "No answers were provided."
	}

	user := fmt.Sprintf("Interviewer style: %s\nTranscript:\n%s", style, transcript)
	return system, user
}

const resumeInstructions = `Analyse the resume text and return JSON with the following shape:
{
  "summary": {
    "headline": string or null,
    "overview": short paragraph,
    "insights": array of up to 5 bullet insights (strings),
    "skills_by_category": object mapping category -> array of up to 8 skills,
    "confidence": number between 0 and 1 (optional)
  },
  "sections": [
    {
      "title": section title in sentence case,
      "summary": 1-2 sentence summary,
      "highlights": array of up to 5 concise bullet strings
    }
  ],
  "skills": array of up to 30 core skills ordered by relevance,
  "highlights": array of up to 8 standout accomplishments or metrics
}
Use concise wording. Do not include markdown or explanations outside of the JSON.`

func resumePrompt(text, language string) (string, string) {
	system := "You are an expert career coach and resume analyst. " +
		"Generate structured insights that summarize experience, extract highlights, and group skills. " +
		"Always respond with valid JSON that matches the schema instructions."
	system = inLanguage(system, language, "Respond entirely in Simplified Chinese.")

	user := resumeInstructions + "\n\nResume text (may be truncated):\n```\n" + text + "\n```"
	return system, user
}
