package models

import "time"

// HistoryItem is the list projection of a session.
type HistoryItem struct {
	SessionID        string     `json:"session_id"`
	InterviewerStyle string     `json:"interviewer_style"`
	Language         string     `json:"language"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	QuestionCount    int        `json:"question_count"`
	OverallScore     *float64   `json:"overall_score,omitempty"`
	Summary          *string    `json:"summary,omitempty"`
}

func NewHistoryItem(s *InterviewSession) HistoryItem {
	item := HistoryItem{
		SessionID:        s.ID,
		InterviewerStyle: s.InterviewerStyle,
		Language:         s.Language,
		StartedAt:        s.CreatedAt,
		CompletedAt:      s.CompletedAt,
		QuestionCount:    s.TurnCount,
	}
	if s.Feedback != nil {
		score := s.Feedback.OverallScore
		summary := s.Feedback.Summary
		item.OverallScore = &score
		item.Summary = &summary
	}
	return item
}

// SessionDetail is the full record of one session.
type SessionDetail struct {
	Session  *InterviewSession `json:"session"`
	Turns    []InterviewTurn   `json:"turns"`
	Feedback *Feedback         `json:"feedback,omitempty"`
}
