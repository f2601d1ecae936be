package consultation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"teleconsult-backend/internal/domain"
	"teleconsult-backend/internal/invite"
	"teleconsult-backend/internal/realtime"
	"teleconsult-backend/internal/repository"
	apperrors "teleconsult-backend/pkg/errors"
	"teleconsult-backend/pkg/logger"
	"teleconsult-backend/pkg/metrics"

	"go.uber.org/zap"
)

// CallEnder terminates the live call of a consultation. Implemented by
// the call engine; injected to keep the dependency one-way.
type CallEnder interface {
	EndLiveCall(ctx context.Context, consultationID uuid.UUID, reason domain.EndReason) error
}

// Service drives the consultation lifecycle: pending on creation,
// active once a responder accepts, closed exactly once at the end.
type Service struct {
	consultations repository.ConsultationRepository
	calls         repository.CallRepository
	messages      repository.MessageRepository
	users         repository.UserRepository
	queues        repository.QueueRepository
	archives      repository.ArchiveRepository
	broadcaster   realtime.Broadcaster
	invites       invite.Lifecycle
	metrics       *metrics.Metrics

	callEnder CallEnder
}

type Deps struct {
	Consultations repository.ConsultationRepository
	Calls         repository.CallRepository
	Messages      repository.MessageRepository
	Users         repository.UserRepository
	Queues        repository.QueueRepository
	Archives      repository.ArchiveRepository
	Broadcaster   realtime.Broadcaster
	Invites       invite.Lifecycle
	Metrics       *metrics.Metrics
}

func NewService(d Deps) *Service {
	return &Service{
		consultations: d.Consultations,
		calls:         d.Calls,
		messages:      d.Messages,
		users:         d.Users,
		queues:        d.Queues,
		archives:      d.Archives,
		broadcaster:   d.Broadcaster,
		invites:       d.Invites,
		metrics:       d.Metrics,
	}
}

// SetCallEnder wires the call engine in after construction to break
// the construction cycle between the two services.
func (s *Service) SetCallEnder(e CallEnder) {
	s.callEnder = e
}

type CreateInput struct {
	Owner           uuid.UUID
	Queue           *uuid.UUID
	Doctor          *uuid.UUID
	Translator      *uuid.UUID
	Guest           *uuid.UUID
	Experts         []uuid.UUID
	InvitationToken string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Consultation, error) {
	if in.Owner == uuid.Nil {
		return nil, apperrors.ValidationError("owner is required")
	}

	queue := in.Queue
	if queue == nil && in.Doctor == nil {
		def, err := s.queues.GetDefault(ctx)
		switch {
		case err == nil:
			queue = &def.ID
		case errors.Is(err, repository.ErrNotFound):
			// no default queue configured, leave unassigned
		default:
			return nil, apperrors.InternalError(err)
		}
	}

	c := &domain.Consultation{
		ID:              uuid.New(),
		Status:          domain.ConsultationPending,
		Owner:           in.Owner,
		Queue:           queue,
		Doctor:          in.Doctor,
		Translator:      in.Translator,
		Guest:           in.Guest,
		Experts:         in.Experts,
		InvitationToken: in.InvitationToken,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.consultations.Create(ctx, c); err != nil {
		return nil, apperrors.InternalError(err)
	}
	if s.metrics != nil {
		s.metrics.RecordConsultationCreated()
	}

	s.broadcaster.Broadcast(ctx, Resolve(c), realtime.Event{
		Name:    realtime.EventNewConsultation,
		Payload: s.consultationPayload(ctx, c),
	})
	return c, nil
}

func (s *Service) Accept(ctx context.Context, id, actorID uuid.UUID) (*domain.Consultation, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}

	ok, err := s.consultations.AcceptPending(ctx, id, actorID, time.Now().UTC())
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !ok {
		return nil, apperrors.NotPendingError()
	}

	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.broadcaster.Broadcast(ctx, Resolve(c), realtime.Event{
		Name:    realtime.EventConsultationAccepted,
		Payload: s.consultationPayload(ctx, c),
	})
	return c, nil
}

// Close tears a consultation down. Idempotent: closing a closed
// consultation is a no-op success. The live call, if any, ends with
// reason CONSULTATION_CLOSED, and an anonymized summary is archived
// before the status flips.
func (s *Service) Close(ctx context.Context, id uuid.UUID) error {
	c, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if c.Status == domain.ConsultationClosed {
		return nil
	}

	// Resolved before mutation so the closed event still reaches the
	// queue of a never-accepted consultation.
	audience := Resolve(c)

	if s.callEnder != nil {
		if err := s.callEnder.EndLiveCall(ctx, id, domain.EndReasonConsultationClosed); err != nil {
			logger.FromContext(ctx).Warn("ending live call on close failed",
				zap.String("consultation_id", id.String()), zap.Error(err))
		}
	}

	closedAt := time.Now().UTC()
	if err := s.archive(ctx, c, closedAt); err != nil {
		logger.FromContext(ctx).Error("archiving consultation failed",
			zap.String("consultation_id", id.String()), zap.Error(err))
	}

	if err := s.invites.OnConsultationClosed(ctx, id); err != nil {
		logger.FromContext(ctx).Warn("invite teardown failed",
			zap.String("consultation_id", id.String()), zap.Error(err))
	}

	ok, err := s.consultations.MarkClosed(ctx, id, closedAt)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if !ok {
		// concurrent closer won the conditional update
		return nil
	}
	if s.metrics != nil {
		s.metrics.RecordConsultationClosed(c.AcceptedBy != nil)
	}

	s.broadcaster.Broadcast(ctx, audience, realtime.Event{
		Name:    realtime.EventConsultationClosed,
		Payload: map[string]any{"consultation": c.ID},
	})
	return nil
}

// ChangePresence flips the caller's online flag on every consultation
// they participate in and notifies the other participants.
func (s *Service) ChangePresence(ctx context.Context, userID uuid.UUID, online bool) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFoundError("user")
		}
		return apperrors.InternalError(err)
	}

	matches, err := s.consultations.ListForUser(ctx, user)
	if err != nil {
		return apperrors.InternalError(err)
	}

	for _, c := range matches {
		role, ok := RoleOf(c, userID)
		if !ok {
			// matched through queue privileges; the flag follows the
			// directory role so patients waiting on a queue still see
			// responder presence
			role = user.Role
		}
		if err := s.consultations.SetPresence(ctx, c.ID, role, userID, online); err != nil {
			logger.FromContext(ctx).Warn("presence update failed",
				zap.String("consultation_id", c.ID.String()), zap.Error(err))
			continue
		}
		applyPresence(c, role, userID, online)

		s.broadcaster.Broadcast(ctx, Resolve(c).Without(userID), realtime.Event{
			Name: realtime.EventOnlineStatusChange,
			Payload: map[string]any{
				"consultation": c.ID,
				"presence":     c.Presence(),
			},
		})
	}
	return nil
}

// applyPresence mirrors the store-side flag update on the in-memory
// record so the broadcast payload reflects the new state.
func applyPresence(c *domain.Consultation, role domain.Role, userID uuid.UUID, online bool) {
	switch role {
	case domain.RoleRequester:
		c.FlagPatientOnline = online
		if online {
			c.FlagPatientNotified = false
		}
	case domain.RoleResponder:
		c.FlagDoctorOnline = online
		if online {
			c.FlagDoctorNotified = false
		}
	case domain.RoleTranslator:
		c.FlagTranslatorOnline = online
		if online {
			c.FlagTranslatorNotified = false
		}
	case domain.RoleGuest:
		c.FlagGuestOnline = online
		if online {
			c.FlagGuestNotified = false
		}
	case domain.RoleExpert:
		if c.FlagExpertsOnline == nil {
			c.FlagExpertsOnline = make(map[uuid.UUID]bool)
		}
		c.FlagExpertsOnline[userID] = online
		if online && c.FlagExpertsNotified != nil {
			c.FlagExpertsNotified[userID] = false
		}
	}
}

// Get returns a consultation the user participates in.
func (s *Service) Get(ctx context.Context, id, userID uuid.UUID) (*domain.Consultation, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !IsMember(c, user) {
		return nil, apperrors.NotParticipantError()
	}
	return c, nil
}

// List returns every consultation the user participates in, newest
// first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*domain.Consultation, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFoundError("user")
		}
		return nil, apperrors.InternalError(err)
	}
	out, err := s.consultations.ListForUser(ctx, user)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return out, nil
}

// LeaveFeedback stores the rating one of the two principals left.
func (s *Service) LeaveFeedback(ctx context.Context, id, userID uuid.UUID, rating, comment string) error {
	c, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	role, ok := RoleOf(c, userID)
	if !ok || (role != domain.RoleRequester && role != domain.RoleResponder) {
		return apperrors.NotParticipantError()
	}
	if rating == "" {
		return apperrors.ValidationError("rating is required")
	}
	if err := s.consultations.SetFeedback(ctx, id, role, rating, comment); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*domain.Consultation, error) {
	c, err := s.consultations.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ConsultationNotFoundError()
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return c, nil
}

// consultationPayload bundles the consultation with the profiles of
// its named participants for broadcast payloads.
func (s *Service) consultationPayload(ctx context.Context, c *domain.Consultation) map[string]any {
	ids := []uuid.UUID{c.Owner}
	for _, p := range []*uuid.UUID{c.Doctor, c.AcceptedBy, c.Translator, c.Guest} {
		if p != nil {
			ids = append(ids, *p)
		}
	}
	ids = append(ids, c.Experts...)

	participants, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		logger.FromContext(ctx).Warn("loading participant profiles failed",
			zap.String("consultation_id", c.ID.String()), zap.Error(err))
	}
	return map[string]any{
		"consultation": c,
		"participants": participants,
	}
}
