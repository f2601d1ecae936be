package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConsultationStatus is the lifecycle state of a consultation.
// Transitions are monotonic: pending -> active -> closed. A pending
// consultation may be closed directly (cancellation); closed is terminal.
type ConsultationStatus string

const (
	ConsultationPending ConsultationStatus = "pending"
	ConsultationActive  ConsultationStatus = "active"
	ConsultationClosed  ConsultationStatus = "closed"
)

// Consultation links a requester with a responder, optionally joined by a
// translator, a guest and experts, and carries the per-role presence flags.
//
// Doctor and AcceptedBy may differ: Doctor is the responder the consultation
// was originally addressed to, AcceptedBy is whoever actually accepted it.
type Consultation struct {
	ID     uuid.UUID          `json:"id"`
	Status ConsultationStatus `json:"status"`

	Owner      uuid.UUID   `json:"owner"`
	Queue      *uuid.UUID  `json:"queue,omitempty"`
	Doctor     *uuid.UUID  `json:"doctor,omitempty"`
	AcceptedBy *uuid.UUID  `json:"accepted_by,omitempty"`
	Translator *uuid.UUID  `json:"translator,omitempty"`
	Guest      *uuid.UUID  `json:"guest,omitempty"`
	Experts    []uuid.UUID `json:"experts,omitempty"`

	InvitationToken string `json:"-"`

	// Presence flags, one per role. Each "notified" flag suppresses duplicate
	// offline notifications and is cleared whenever presence flips to online.
	FlagPatientOnline      bool               `json:"flag_patient_online"`
	FlagPatientNotified    bool               `json:"flag_patient_notified"`
	FlagDoctorOnline       bool               `json:"flag_doctor_online"`
	FlagDoctorNotified     bool               `json:"flag_doctor_notified"`
	FlagGuestOnline        bool               `json:"flag_guest_online"`
	FlagGuestNotified      bool               `json:"flag_guest_notified"`
	FlagTranslatorOnline   bool               `json:"flag_translator_online"`
	FlagTranslatorNotified bool               `json:"flag_translator_notified"`
	FlagExpertsOnline      map[uuid.UUID]bool `json:"flag_experts_online,omitempty"`
	FlagExpertsNotified    map[uuid.UUID]bool `json:"flag_experts_notified,omitempty"`

	PatientRating  string `json:"patient_rating,omitempty"`
	PatientComment string `json:"patient_comment,omitempty"`
	DoctorRating   string `json:"doctor_rating,omitempty"`
	DoctorComment  string `json:"doctor_comment,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	FirstCallAt *time.Time `json:"first_call_at,omitempty"`
}

// HasConferenceParties reports whether a call created on this consultation
// is a conference call: anyone beyond the two principals is attached.
func (c *Consultation) HasConferenceParties() bool {
	return c.Translator != nil || c.Guest != nil || len(c.Experts) > 0
}

// PresenceSnapshot is the flag subset broadcast on onlineStatusChange.
type PresenceSnapshot struct {
	FlagPatientOnline    bool               `json:"flag_patient_online"`
	FlagDoctorOnline     bool               `json:"flag_doctor_online"`
	FlagGuestOnline      bool               `json:"flag_guest_online"`
	FlagTranslatorOnline bool               `json:"flag_translator_online"`
	FlagExpertsOnline    map[uuid.UUID]bool `json:"flag_experts_online,omitempty"`
	Translator           *uuid.UUID         `json:"translator,omitempty"`
	Guest                *uuid.UUID         `json:"guest,omitempty"`
}

// Presence returns the snapshot used in onlineStatusChange payloads.
func (c *Consultation) Presence() PresenceSnapshot {
	return PresenceSnapshot{
		FlagPatientOnline:    c.FlagPatientOnline,
		FlagDoctorOnline:     c.FlagDoctorOnline,
		FlagGuestOnline:      c.FlagGuestOnline,
		FlagTranslatorOnline: c.FlagTranslatorOnline,
		FlagExpertsOnline:    c.FlagExpertsOnline,
		Translator:           c.Translator,
		Guest:                c.Guest,
	}
}
