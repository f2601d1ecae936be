package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"teleconsult-backend/internal/domain"
	"teleconsult-backend/pkg/push"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// ConsultationRepository persists consultations and their presence
// flags.
type ConsultationRepository interface {
	Create(ctx context.Context, c *domain.Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Consultation, error)

	// AcceptPending moves a pending consultation to active. Returns
	// false when the consultation was not pending.
	AcceptPending(ctx context.Context, id, doctorID uuid.UUID, acceptedAt time.Time) (bool, error)

	// MarkClosed moves a consultation to closed. Returns false when it
	// was already closed.
	MarkClosed(ctx context.Context, id uuid.UUID, closedAt time.Time) (bool, error)

	// SetPresence flips the online flag for the given participant. Going
	// online also clears the participant's notified flag.
	SetPresence(ctx context.Context, id uuid.UUID, role domain.Role, userID uuid.UUID, online bool) error

	// SetNotified marks a participant as notified about a missed call.
	SetNotified(ctx context.Context, id uuid.UUID, role domain.Role, userID uuid.UUID, notified bool) error

	// SetFirstCallAt records the first call time, only once.
	SetFirstCallAt(ctx context.Context, id uuid.UUID, at time.Time) error

	// SetFeedback stores the rating and comment left by one of the two
	// principals.
	SetFeedback(ctx context.Context, id uuid.UUID, role domain.Role, rating, comment string) error

	// ListForUser returns the consultations the user is a participant
	// of, per the membership rules.
	ListForUser(ctx context.Context, user *domain.User) ([]*domain.Consultation, error)

	// ListStaleOpen returns open consultations created before cutoff.
	ListStaleOpen(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

// CallRepository persists call sessions.
type CallRepository interface {
	Create(ctx context.Context, call *domain.CallSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CallSession, error)

	// GetLiveByConsultation returns the ringing or ongoing call of a
	// consultation, or ErrNotFound.
	GetLiveByConsultation(ctx context.Context, consultationID uuid.UUID) (*domain.CallSession, error)

	// SetOngoing moves a ringing call to ongoing. Returns false when the
	// call was not ringing. Used for the conference first-accept
	// transition.
	SetOngoing(ctx context.Context, id uuid.UUID, acceptedAt time.Time) (bool, error)

	// OverwriteAccept sets ongoing and overwrites acceptedAt on any
	// non-ended call. Used by the 1:1 accept path, where a second accept
	// overwrites the timestamp instead of failing.
	OverwriteAccept(ctx context.Context, id uuid.UUID, acceptedAt time.Time) (bool, error)

	// End terminates a call with the given reason. Returns false when
	// the call had already ended.
	End(ctx context.Context, id uuid.UUID, reason string, closedAt time.Time) (bool, error)

	// AddCurrentParticipant adds userID to the live roster. Returns
	// false when the call already ended; an ended call's roster stays
	// empty.
	AddCurrentParticipant(ctx context.Context, id, userID uuid.UUID) (bool, error)

	// RemoveCurrentParticipant drops userID from the live roster and
	// returns how many remain.
	RemoveCurrentParticipant(ctx context.Context, id, userID uuid.UUID) (int, error)

	// AddParticipant records userID in the cumulative participant list
	// of a non-ended call.
	AddParticipant(ctx context.Context, id, userID uuid.UUID) error

	ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*domain.CallSession, error)
}

// QueueRepository reads triage queues.
type QueueRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Queue, error)
	GetDefault(ctx context.Context) (*domain.Queue, error)
	List(ctx context.Context) ([]*domain.Queue, error)
}

// UserRepository reads participant profiles.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error)
}

// ArchiveRepository stores anonymized summaries of closed
// consultations.
type ArchiveRepository interface {
	SaveConsultation(ctx context.Context, a *domain.ConsultationArchive) error
	SaveCalls(ctx context.Context, calls []domain.CallArchive) error
}

// MessageRepository stores the chat history.
type MessageRepository interface {
	Save(ctx context.Context, m *domain.Message) error
	ListByConsultation(ctx context.Context, consultationID uuid.UUID, limit int, before time.Time) ([]*domain.Message, error)

	// CountBySender returns per-sender message counts for a
	// consultation.
	CountBySender(ctx context.Context, consultationID uuid.UUID) (map[uuid.UUID]int, error)
}

// PresenceRepository tracks which users hold a live realtime
// connection.
type PresenceRepository interface {
	SetOnline(ctx context.Context, userID uuid.UUID) error
	SetOffline(ctx context.Context, userID uuid.UUID) error
	Heartbeat(ctx context.Context, userID uuid.UUID) error
	IsOnline(ctx context.Context, userID uuid.UUID) (bool, error)
}

// PushTokenRepository stores device registration tokens.
type PushTokenRepository interface {
	Save(ctx context.Context, userID uuid.UUID, token push.DeviceToken) error
	Get(ctx context.Context, userID uuid.UUID) ([]push.DeviceToken, error)
	Delete(ctx context.Context, userID uuid.UUID, token string) error
}
