package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConsultationArchive is the immutable anonymized summary written when a
// consultation closes. It is a separate entity with its own lifecycle and
// retention policy; the live consultation record can be expired without
// losing the archive.
type ConsultationArchive struct {
	ID             uuid.UUID  `json:"id"`
	ConsultationID uuid.UUID  `json:"consultation_id"`
	Queue          *uuid.UUID `json:"queue,omitempty"`
	Owner          uuid.UUID  `json:"owner"`
	AcceptedBy     *uuid.UUID `json:"accepted_by,omitempty"`
	Doctor         *uuid.UUID `json:"doctor,omitempty"`

	ConsultationCreatedAt time.Time  `json:"consultation_created_at"`
	AcceptedAt            *time.Time `json:"accepted_at,omitempty"`
	ClosedAt              time.Time  `json:"closed_at"`
	FirstCallAt           *time.Time `json:"first_call_at,omitempty"`

	DoctorTextMessages  int `json:"doctor_text_messages"`
	PatientTextMessages int `json:"patient_text_messages"`
	SuccessfulCalls     int `json:"successful_calls"`
	MissedCalls         int `json:"missed_calls"`
	// AverageCallDuration is the mean duration of answered calls, in minutes.
	AverageCallDuration float64 `json:"average_call_duration"`

	PlannedParticipants   int `json:"planned_participants"`
	EffectiveParticipants int `json:"effective_participants"`

	PatientRating  string `json:"patient_rating,omitempty"`
	PatientComment string `json:"patient_comment,omitempty"`
	DoctorRating   string `json:"doctor_rating,omitempty"`
	DoctorComment  string `json:"doctor_comment,omitempty"`
}

// CallArchive is the anonymized copy of a call session kept for statistics
// after its consultation closes.
type CallArchive struct {
	ID             uuid.UUID  `json:"id"`
	ConsultationID uuid.UUID  `json:"consultation_id"`
	Kind           CallKind   `json:"kind"`
	IsConference   bool       `json:"is_conference"`
	Participants   int        `json:"participants"`
	EndReason      EndReason  `json:"end_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	AcceptedAt     *time.Time `json:"accepted_at,omitempty"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
}
