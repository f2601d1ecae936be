package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageType classifies chat records on a consultation. Calls are carried
// as CallSession records, not messages; the two call kinds appear here only
// so history listings can interleave them.
type MessageType string

const (
	MessageTypeText       MessageType = "text"
	MessageTypeAttachment MessageType = "attachment"
)

// Message is a text or attachment exchange inside a consultation, stored in
// Cassandra bucketed by week.
type Message struct {
	ID             uuid.UUID   `json:"id"`
	ConsultationID uuid.UUID   `json:"consultation_id"`
	Bucket         int         `json:"bucket"`
	From           uuid.UUID   `json:"from"`
	To             *uuid.UUID  `json:"to,omitempty"`
	Type           MessageType `json:"type"`
	Text           string      `json:"text,omitempty"`

	// attachment fields
	MimeType string `json:"mime_type,omitempty"`
	FileName string `json:"file_name,omitempty"`
	FilePath string `json:"file_path,omitempty"`

	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// CalculateBucket maps a timestamp to its weekly partition bucket.
func CalculateBucket(t time.Time) int {
	year, week := t.ISOWeek()
	return year*100 + week
}
