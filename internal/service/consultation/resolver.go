package consultation

import (
	"github.com/google/uuid"

	"teleconsult-backend/internal/domain"
	"teleconsult-backend/internal/realtime"
)

// Resolve computes the identities a lifecycle event about c must reach.
// The result may contain duplicates; delivery dedupes. A pending
// consultation parked on a queue includes the queue id, which fans out
// to every responder subscribed to it.
//
// Resolution never depends on status beyond the queue rule, so a
// consultation stays resolvable after it closes.
func Resolve(c *domain.Consultation) realtime.Audience {
	audience := realtime.Audience{c.Owner}
	if c.Translator != nil {
		audience = append(audience, *c.Translator)
	}
	if c.AcceptedBy != nil {
		audience = append(audience, *c.AcceptedBy)
	}
	if c.Guest != nil {
		audience = append(audience, *c.Guest)
	}
	if c.Status == domain.ConsultationPending && c.Queue != nil {
		audience = append(audience, *c.Queue)
	}
	if c.Doctor != nil && (c.AcceptedBy == nil || *c.Doctor != *c.AcceptedBy) {
		audience = append(audience, *c.Doctor)
	}
	audience = append(audience, c.Experts...)
	return audience
}

// RoleOf determines the capacity userID holds on c. The requester and
// responder principals win over auxiliary roles when ids collide.
func RoleOf(c *domain.Consultation, userID uuid.UUID) (domain.Role, bool) {
	switch {
	case c.Owner == userID:
		return domain.RoleRequester, true
	case c.AcceptedBy != nil && *c.AcceptedBy == userID:
		return domain.RoleResponder, true
	case c.Doctor != nil && *c.Doctor == userID:
		return domain.RoleResponder, true
	case c.Translator != nil && *c.Translator == userID:
		return domain.RoleTranslator, true
	case c.Guest != nil && *c.Guest == userID:
		return domain.RoleGuest, true
	}
	for _, e := range c.Experts {
		if e == userID {
			return domain.RoleExpert, true
		}
	}
	return "", false
}

// IsMember reports whether user currently participates in c. The rules
// mirror the store-level membership filter: a responder addressed via a
// queue only counts once they accepted, and queue privileges grant
// visibility of pending consultations only.
func IsMember(c *domain.Consultation, user *domain.User) bool {
	switch {
	case c.Owner == user.ID:
		return true
	case c.AcceptedBy != nil && *c.AcceptedBy == user.ID:
		return true
	case c.Doctor != nil && *c.Doctor == user.ID && c.Queue == nil:
		return true
	case c.Translator != nil && *c.Translator == user.ID:
		return true
	case c.Guest != nil && *c.Guest == user.ID:
		return true
	}
	for _, e := range c.Experts {
		if e == user.ID {
			return true
		}
	}
	if c.Status == domain.ConsultationPending && c.Queue != nil {
		if user.ViewAllQueues {
			return true
		}
		for _, q := range user.AllowedQueues {
			if q == *c.Queue {
				return true
			}
		}
	}
	return false
}
