package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	QuestionMain     QuestionType = "main"
	QuestionFollowUp QuestionType = "follow_up"
)

// Question is one entry of the plan generated at session start.
type Question struct {
	ID    string       `json:"id"`
	Text  string       `json:"text"`
	Topic string       `json:"topic"`
	Type  QuestionType `json:"type"`
	Style string       `json:"style,omitempty"`
}

// Prompt is the question currently awaiting an answer.
type Prompt struct {
	ID    string       `json:"id"`
	Text  string       `json:"text"`
	Topic string       `json:"topic"`
	Type  QuestionType `json:"type"`
}

func (q Question) Prompt() Prompt {
	typ := q.Type
	if typ == "" {
		typ = QuestionMain
	}
	return Prompt{ID: q.ID, Text: q.Text, Topic: q.Topic, Type: typ}
}

type Feedback struct {
	OverallScore float64  `json:"overall_score"`
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Weaknesses   []string `json:"weaknesses"`
	Suggestions  []string `json:"suggestions"`
}

// InterviewSession is one mock interview. CurrentPrompt is nil iff Completed.
type InterviewSession struct {
	ID               string `gorm:"column:id;type:varchar(64);primaryKey" json:"session_id"`
	OwnerID          string `gorm:"column:owner_id;type:varchar(128);not null;index" json:"user_id"`
	Language         string `gorm:"column:language;type:varchar(8)" json:"language"`
	InterviewerStyle string `gorm:"column:interviewer_style;type:varchar(32)" json:"interviewer_style"`
	ResumeSummary    string `gorm:"column:resume_summary;type:text" json:"resume_summary"`
	JobDescription   string `gorm:"column:job_description;type:text" json:"job_description"`

	QuestionPlan  datatypes.JSONSlice[Question] `gorm:"column:question_plan" json:"question_plan"`
	CurrentPrompt *Prompt                       `gorm:"column:current_prompt;type:text;serializer:json" json:"current_prompt,omitempty"`
	NextPlanIndex int                           `gorm:"column:next_plan_index" json:"next_plan_index"`

	TurnCount      int  `gorm:"column:turn_count" json:"turn_count"`
	FollowUpStreak int  `gorm:"column:follow_up_streak" json:"-"`
	Completed      bool `gorm:"column:completed" json:"completed"`

	Feedback *Feedback `gorm:"column:feedback;type:text;serializer:json" json:"feedback,omitempty"`

	// Version guards every update; see SessionRepository.Update.
	Version int64 `gorm:"column:version;not null;default:1" json:"-"`

	CreatedAt   time.Time  `gorm:"column:created_at;index" json:"created_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	Turns []InterviewTurn `gorm:"foreignKey:SessionID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (InterviewSession) TableName() string { return "interview_sessions" }

// PlanExhausted reports whether every planned question has been asked.
func (s *InterviewSession) PlanExhausted() bool {
	return s.NextPlanIndex >= len(s.QuestionPlan)
}
