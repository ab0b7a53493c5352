package services

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bcllcc/MockMate/internal/models"
	"github.com/bcllcc/MockMate/internal/providers/llm"
	"github.com/bcllcc/MockMate/internal/utils"
)

type QuestionRequest struct {
	ResumeSummary    string `json:"resume_summary"`
	JobDescription   string `json:"job_description"`
	Language         string `json:"language"`
	InterviewerStyle string `json:"interviewer_style"`
	Count            int    `json:"count"`
}

type OpeningRequest struct {
	ResumeSummary    string
	JobDescription   string
	Language         string
	InterviewerStyle string
	Question         models.Question
}

// FollowUpRequest is the input of a follow-up decision, shared by the
// synchronous and streaming answer paths.
type FollowUpRequest struct {
	Language string
	Prompt   models.Prompt
	Answer   string
}

// Interviewer turns interview state into backend calls and decodes the replies.
type Interviewer interface {
	GenerateQuestions(ctx context.Context, req QuestionRequest) ([]models.Question, error)
	StreamOpening(ctx context.Context, req OpeningRequest) (<-chan string, <-chan error)
	DecideFollowUp(ctx context.Context, req FollowUpRequest) (*models.Prompt, error)
	// StreamFollowUp yields the raw decision reply; decode it with ParseFollowUp.
	StreamFollowUp(ctx context.Context, req FollowUpRequest) (<-chan string, <-chan error)
	GenerateFeedback(ctx context.Context, style, language string, turns []models.InterviewTurn) (*models.Feedback, error)
	AnalyzeResume(ctx context.Context, text, language string) (*models.ResumeInsights, error)
}

type interviewer struct {
	llm *llm.Client
	log *logrus.Logger
}

func NewInterviewer(client *llm.Client, l *logrus.Logger) Interviewer {
	if l == nil {
		l = logrus.New()
	}
	return &interviewer{llm: client, log: l}
}

func (i *interviewer) GenerateQuestions(ctx context.Context, req QuestionRequest) ([]models.Question, error) {
	const op = "Interviewer.GenerateQuestions"

	system, user := questionsPrompt(req)
	doc, err := i.llm.CompleteJSON(ctx, llm.Request{System: system, User: user, Temperature: tempQuestions})
	if err != nil {
		return nil, err
	}

	items, ok := doc["questions"].([]any)
	if !ok {
		return nil, utils.E(utils.CodeBadGateway, op, "LLM did not return a questions list", utils.ErrBackendMalformed)
	}

	questions := make([]models.Question, 0, req.Count)
	for _, item := range items {
		if req.Count > 0 && len(questions) == req.Count {
			break
		}
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		text, ok := llm.String(obj, "text")
		if !ok {
			continue
		}
		topic, ok := llm.String(obj, "topic")
		if !ok {
			topic = "general"
		}
		questions = append(questions, models.Question{
			ID:    uuid.NewString(),
			Text:  text,
			Topic: topic,
			Type:  models.QuestionMain,
			Style: req.InterviewerStyle,
		})
	}

	if len(questions) == 0 {
		return nil, utils.E(utils.CodeBadGateway, op, "LLM did not yield interview questions", utils.ErrPlanGenerationFailed)
	}
	return questions, nil
}

func (i *interviewer) StreamOpening(ctx context.Context, req OpeningRequest) (<-chan string, <-chan error) {
	system, user := openingPrompt(req)
	return i.llm.CompleteStream(ctx, llm.Request{System: system, User: user, Temperature: tempOpening})
}

func (i *interviewer) DecideFollowUp(ctx context.Context, req FollowUpRequest) (*models.Prompt, error) {
	system, user := followUpPrompt(req)
	raw, err := i.llm.Complete(ctx, llm.Request{System: system, User: user, Temperature: tempFollowUp})
	if err != nil {
		return nil, err
	}
	return ParseFollowUp(raw, req.Prompt)
}

func (i *interviewer) StreamFollowUp(ctx context.Context, req FollowUpRequest) (<-chan string, <-chan error) {
	system, user := followUpPrompt(req)
	return i.llm.CompleteStream(ctx, llm.Request{System: system, User: user, Temperature: tempFollowUp})
}

// ParseFollowUp decodes a follow-up decision reply. A null, empty or
// non-string follow_up means no follow-up (nil, nil).
func ParseFollowUp(raw string, asked models.Prompt) (*models.Prompt, error) {
	doc, err := llm.ParseStructured(raw)
	if err != nil {
		return nil, err
	}
	text, ok := llm.String(doc, "follow_up")
	if !ok {
		return nil, nil
	}
	topic, ok := llm.String(doc, "topic")
	if !ok {
		topic = asked.Topic
	}
	return &models.Prompt{
		ID:    uuid.NewString(),
		Text:  text,
		Topic: topic,
		Type:  models.QuestionFollowUp,
	}, nil
}

func (i *interviewer) GenerateFeedback(ctx context.Context, style, language string, turns []models.InterviewTurn) (*models.Feedback, error) {
	const op = "Interviewer.GenerateFeedback"

	system, user := feedbackPrompt(style, language, turns)
	doc, err := i.llm.CompleteJSON(ctx, llm.Request{System: system, User: user, Temperature: tempFeedback})
	if err != nil {
		return nil, err
	}

	score, ok := llm.Number(doc, "overall_score")
	if !ok || math.IsNaN(score) {
		return nil, utils.E(utils.CodeBadGateway, op, "LLM feedback missing score", utils.ErrBackendMalformed)
	}
	summary, ok := doc["summary"].(string)
	if !ok {
		return nil, utils.E(utils.CodeBadGateway, op, "LLM feedback missing summary", utils.ErrBackendMalformed)
	}

	return &models.Feedback{
		OverallScore: math.Max(0, math.Min(100, score)),
		Summary:      strings.TrimSpace(summary),
		Strengths:    llm.StringList(doc, "strengths", 0),
		Weaknesses:   llm.StringList(doc, "weaknesses", 0),
		Suggestions:  llm.StringList(doc, "suggestions", 0),
	}, nil
}

func (i *interviewer) AnalyzeResume(ctx context.Context, text, language string) (*models.ResumeInsights, error) {
	system, user := resumePrompt(text, language)
	doc, err := i.llm.CompleteJSON(ctx, llm.Request{System: system, User: user, Temperature: tempResume})
	if err != nil {
		return nil, err
	}
	return decodeInsights(doc, language), nil
}

func decodeInsights(doc map[string]any, language string) *models.ResumeInsights {
	out := &models.ResumeInsights{
		SkillsByCategory: map[string][]string{},
		Skills:           llm.StringList(doc, "skills", 30),
		Highlights:       llm.StringList(doc, "highlights", 8),
		Sections:         []models.ResumeSection{},
		Language:         language,
	}

	if summary, ok := llm.Object(doc, "summary"); ok {
		out.Headline, _ = llm.String(summary, "headline")
		out.Overview, _ = llm.String(summary, "overview")
		out.Insights = llm.StringList(summary, "insights", 5)
		if conf, ok := llm.Number(summary, "confidence"); ok {
			conf = math.Max(0, math.Min(1, conf))
			out.Confidence = &conf
		}
		if cats, ok := llm.Object(summary, "skills_by_category"); ok {
			for name := range cats {
				if skills := llm.StringList(cats, name, 8); len(skills) > 0 {
					out.SkillsByCategory[strings.TrimSpace(name)] = skills
				}
			}
		}
	} else if s, ok := llm.String(doc, "summary"); ok {
		out.Overview = s
	}
	if out.Insights == nil {
		out.Insights = []string{}
	}

	if sections, ok := doc["sections"].([]any); ok {
		for _, item := range sections {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			title, ok := llm.String(obj, "title")
			if !ok {
				continue
			}
			summary, _ := llm.String(obj, "summary")
			out.Sections = append(out.Sections, models.ResumeSection{
				Title:      title,
				Summary:    summary,
				Highlights: llm.StringList(obj, "highlights", 5),
			})
		}
	}
	return out
}
