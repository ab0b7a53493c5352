package models

import "time"

// InterviewTurn is one answered question. Rows are append-only.
type InterviewTurn struct {
	ID             int64        `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	SessionID      string       `gorm:"column:session_id;type:varchar(64);not null;uniqueIndex:uniq_turn_session_sequence,priority:1" json:"session_id"`
	Sequence       int          `gorm:"column:sequence;not null;uniqueIndex:uniq_turn_session_sequence,priority:2" json:"sequence"`
	Question       string       `gorm:"column:question;type:text" json:"question"`
	QuestionType   QuestionType `gorm:"column:question_type;type:varchar(16)" json:"question_type"`
	Topic          string       `gorm:"column:topic;type:varchar(64)" json:"topic"`
	Answer         string       `gorm:"column:answer;type:text" json:"answer"`
	AskedAt        time.Time    `gorm:"column:asked_at" json:"asked_at"`
	ElapsedSeconds *float64     `gorm:"column:elapsed_seconds" json:"elapsed_seconds,omitempty"`
}

func (InterviewTurn) TableName() string { return "interview_turns" }
