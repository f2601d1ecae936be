package domain

import (
	"time"

	"github.com/google/uuid"
)

// CallKind distinguishes audio from video calls.
type CallKind string

const (
	CallKindAudio CallKind = "audioCall"
	CallKindVideo CallKind = "videoCall"
)

// ParseCallKind converts a wire-level call kind into a CallKind.
func ParseCallKind(s string) (CallKind, bool) {
	switch CallKind(s) {
	case CallKindAudio, CallKindVideo:
		return CallKind(s), true
	}
	return "", false
}

// CallStatus is the state of a call session.
// Transitions are ringing -> ongoing -> ended; ended is terminal.
type CallStatus string

const (
	CallRinging CallStatus = "ringing"
	CallOngoing CallStatus = "ongoing"
	CallEnded   CallStatus = "ended"
)

// EndReason records why a call was terminated. endCall is the single
// termination path, so every ended call carries exactly one of these.
type EndReason string

const (
	EndReasonMembersLeft        EndReason = "MEMBERS_LEFT"
	EndReasonDoctorLeft         EndReason = "DOCTOR_LEFT"
	EndReasonRingingTimeout     EndReason = "RINGING_TIMEOUT"
	EndReasonDurationTimeout    EndReason = "DURATION_TIMEOUT"
	EndReasonConsultationClosed EndReason = "CONSULTATION_CLOSED"
)

// CallSession is one ringing/ongoing/ended call nested inside a consultation.
//
// Participants accumulates everyone who ever joined; CurrentParticipants only
// tracks who is present right now and is maintained for conference calls.
// CurrentParticipants is always a subset of Participants.
type CallSession struct {
	ID             uuid.UUID  `json:"id"`
	ConsultationID uuid.UUID  `json:"consultation_id"`
	Kind           CallKind   `json:"kind"`
	Status         CallStatus `json:"status"`
	From           uuid.UUID  `json:"from"`
	To             *uuid.UUID `json:"to,omitempty"`

	IsConferenceCall    bool        `json:"is_conference_call"`
	Participants        []uuid.UUID `json:"participants"`
	CurrentParticipants []uuid.UUID `json:"current_participants"`

	RelayURL string `json:"relay_url,omitempty"`

	EndReason  EndReason  `json:"end_reason,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}

// IsLive reports whether the call still occupies its consultation's single
// live-call slot.
func (c *CallSession) IsLive() bool {
	return c.Status == CallRinging || c.Status == CallOngoing
}

// HasCurrentParticipant reports whether id is currently in the call.
func (c *CallSession) HasCurrentParticipant(id uuid.UUID) bool {
	for _, p := range c.CurrentParticipants {
		if p == id {
			return true
		}
	}
	return false
}

// HasParticipant reports whether id ever joined the call.
func (c *CallSession) HasParticipant(id uuid.UUID) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}
