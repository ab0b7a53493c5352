package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LLMAuditEntry records one backend request, response or failure.
type LLMAuditEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequestID string             `bson:"request_id" json:"request_id"`
	Event     string             `bson:"event" json:"event"` // request|response|error (+ _stream)
	Provider  string             `bson:"provider" json:"provider"`

	SystemPrompt string  `bson:"system_prompt,omitempty" json:"system_prompt,omitempty"`
	UserPrompt   string  `bson:"user_prompt,omitempty" json:"user_prompt,omitempty"`
	Temperature  float32 `bson:"temperature" json:"temperature"`
	RawResponse  string  `bson:"raw_response,omitempty" json:"raw_response,omitempty"`
	Error        string  `bson:"error,omitempty" json:"error,omitempty"`

	DurationMS int64     `bson:"duration_ms,omitempty" json:"duration_ms,omitempty"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`

	ExpiresAt time.Time `bson:"expires_at" json:"-"` // for TTL index
}
