package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Role identifies the capacity in which an identity takes part in a
// consultation. The set is closed; unknown role strings are rejected at the
// boundary instead of silently falling through.
type Role string

const (
	RoleRequester  Role = "requester" // patient or nurse who opened the consultation
	RoleResponder  Role = "responder" // doctor side
	RoleTranslator Role = "translator"
	RoleGuest      Role = "guest"
	RoleExpert     Role = "expert"
)

// ParseRole converts a wire-level role string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleRequester, RoleResponder, RoleTranslator, RoleGuest, RoleExpert:
		return Role(s), nil
	// aliases still sent by older clients
	case "patient", "nurse":
		return RoleRequester, nil
	case "doctor":
		return RoleResponder, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User carries the identity attributes the lifecycle engine needs: the role
// and the queue privileges used by the membership filter. Profile data lives
// in the directory service and is not duplicated here.
type User struct {
	ID            uuid.UUID   `json:"id"`
	Role          Role        `json:"role"`
	FirstName     string      `json:"first_name"`
	LastName      string      `json:"last_name"`
	Email         string      `json:"email,omitempty"`
	PhoneNumber   string      `json:"phone_number,omitempty"`
	ViewAllQueues bool        `json:"view_all_queues"`
	AllowedQueues []uuid.UUID `json:"allowed_queues,omitempty"`
}

// Queue is a named pool of responders. A pending consultation parked on a
// queue is visible to every responder subscribed to it; the queue id doubles
// as a broadcast channel token.
type Queue struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"is_default"`
}
