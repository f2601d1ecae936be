package realtime

import (
	"github.com/google/uuid"
)

// EventName identifies a realtime event pushed to connected clients.
type EventName string

const (
	EventNewConsultation      EventName = "newConsultation"
	EventConsultationAccepted EventName = "consultationAccepted"
	EventConsultationClosed   EventName = "consultationClosed"
	EventOnlineStatusChange   EventName = "onlineStatusChange"
	EventNewCall              EventName = "newCall"
	EventAcceptCall           EventName = "acceptCall"
	EventRejectCall           EventName = "rejectCall"
	EventEndCall              EventName = "endCall"
	EventNewMessage           EventName = "newMessage"
)

// Event is one realtime notification addressed to a set of identities.
// An identity is a user id or a queue id; each identity maps to one
// broadcast channel.
type Event struct {
	Name    EventName `json:"event"`
	Payload any       `json:"payload"`
}

// Audience is the set of identities an event is delivered to.
// Duplicates are allowed; delivery dedupes.
type Audience []uuid.UUID

// Without returns the audience minus the given identity. Used to keep
// the actor from receiving an echo of their own action.
func (a Audience) Without(id uuid.UUID) Audience {
	out := make(Audience, 0, len(a))
	for _, v := range a {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
