package call

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"teleconsult-backend/internal/domain"
	"teleconsult-backend/internal/realtime"
	"teleconsult-backend/internal/relay"
	"teleconsult-backend/internal/repository"
	"teleconsult-backend/internal/scheduler"
	"teleconsult-backend/internal/service/consultation"
	"teleconsult-backend/pkg/config"
	apperrors "teleconsult-backend/pkg/errors"
	"teleconsult-backend/pkg/logger"
	"teleconsult-backend/pkg/metrics"

	"go.uber.org/zap"
)

// JobScheduler is the durable delayed-job store the engine arms its
// timeouts on.
type JobScheduler interface {
	Schedule(ctx context.Context, job scheduler.Job) error
	Cancel(ctx context.Context, jobID string) error
}

// TokenIssuer mints per-participant media relay credentials.
type TokenIssuer interface {
	PickServer() string
	Issue(server string, callID, peerID uuid.UUID) (relay.Credentials, error)
}

// OfflineNotifier reaches callees without a live connection.
type OfflineNotifier interface {
	NotifyIncomingCall(ctx context.Context, callee *domain.User, consultationID uuid.UUID, kind domain.CallKind) error
}

// Service is the call session engine: ringing on creation, ongoing on
// first accept, ended through the single endCall path.
type Service struct {
	calls         repository.CallRepository
	consultations repository.ConsultationRepository
	users         repository.UserRepository
	presence      repository.PresenceRepository
	broadcaster   realtime.Broadcaster
	relay         TokenIssuer
	jobs          JobScheduler
	notifier      OfflineNotifier
	metrics       *metrics.Metrics
	timeouts      config.TimeoutConfig
}

type Deps struct {
	Calls         repository.CallRepository
	Consultations repository.ConsultationRepository
	Users         repository.UserRepository
	Presence      repository.PresenceRepository
	Broadcaster   realtime.Broadcaster
	Relay         TokenIssuer
	Jobs          JobScheduler
	Notifier      OfflineNotifier
	Metrics       *metrics.Metrics
	Timeouts      config.TimeoutConfig
}

func NewService(d Deps) *Service {
	return &Service{
		calls:         d.Calls,
		consultations: d.Consultations,
		users:         d.Users,
		presence:      d.Presence,
		broadcaster:   d.Broadcaster,
		relay:         d.Relay,
		jobs:          d.Jobs,
		notifier:      d.Notifier,
		metrics:       d.Metrics,
		timeouts:      d.Timeouts,
	}
}

// CreateOutput carries the new call and the caller's own relay
// credentials.
type CreateOutput struct {
	Call        *domain.CallSession `json:"call"`
	Credentials relay.Credentials   `json:"credentials"`
}

// Create starts a call on a consultation. At most one live call per
// consultation is allowed; a second create conflicts.
func (s *Service) Create(ctx context.Context, consultationID, fromID uuid.UUID, kind domain.CallKind) (*CreateOutput, error) {
	c, err := s.getConsultation(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if c.Status == domain.ConsultationClosed {
		return nil, apperrors.ConsultationNotOpenError()
	}
	if _, ok := consultation.RoleOf(c, fromID); !ok {
		return nil, apperrors.NotParticipantError()
	}

	if _, err := s.calls.GetLiveByConsultation(ctx, consultationID); err == nil {
		return nil, apperrors.CallInProgressError()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.InternalError(err)
	}

	conference := c.HasConferenceParties()
	call := &domain.CallSession{
		ID:               uuid.New(),
		ConsultationID:   consultationID,
		Kind:             kind,
		Status:           domain.CallRinging,
		From:             fromID,
		To:               s.otherPrincipal(c, fromID),
		IsConferenceCall: conference,
		Participants:     []uuid.UUID{fromID},
		RelayURL:         s.relay.PickServer(),
		CreatedAt:        time.Now().UTC(),
	}
	if conference {
		call.CurrentParticipants = []uuid.UUID{fromID}
	}

	if err := s.calls.Create(ctx, call); err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := s.consultations.SetFirstCallAt(ctx, consultationID, call.CreatedAt); err != nil {
		logger.FromContext(ctx).Warn("recording first call time failed",
			zap.String("consultation_id", consultationID.String()), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordCallStarted(string(kind), conference)
	}

	s.armTimeouts(ctx, call.ID)
	s.ring(ctx, c, call)

	creds, err := s.relay.Issue(call.RelayURL, call.ID, fromID)
	if err != nil {
		// caller can retry via the current-call endpoint
		logger.FromContext(ctx).Error("relay token issuance failed",
			zap.String("call_id", call.ID.String()), zap.Error(err))
	}
	return &CreateOutput{Call: call, Credentials: creds}, nil
}

// ring delivers newCall to every callee individually, each with their
// own relay token, and pings offline callees out of band.
func (s *Service) ring(ctx context.Context, c *domain.Consultation, call *domain.CallSession) {
	for _, calleeID := range s.callees(c, call.From) {
		creds, err := s.relay.Issue(call.RelayURL, call.ID, calleeID)
		if err != nil {
			logger.FromContext(ctx).Error("relay token issuance failed",
				zap.String("call_id", call.ID.String()),
				zap.String("callee", calleeID.String()),
				zap.Error(err))
		}
		s.broadcaster.Broadcast(ctx, realtime.Audience{calleeID}, realtime.Event{
			Name: realtime.EventNewCall,
			Payload: map[string]any{
				"consultation": c.ID,
				"call":         call,
				"credentials":  creds,
			},
		})
		s.notifyIfOffline(ctx, c, calleeID, call.Kind)
	}

	// echo to the initiator so their other devices see the outbound call
	s.broadcaster.Broadcast(ctx, realtime.Audience{call.From}, realtime.Event{
		Name: realtime.EventNewCall,
		Payload: map[string]any{
			"consultation": c.ID,
			"call":         call,
		},
	})
}

// callees lists the named identities on the consultation besides the
// initiator. Queues never ring.
func (s *Service) callees(c *domain.Consultation, fromID uuid.UUID) []uuid.UUID {
	var ids []uuid.UUID
	add := func(id *uuid.UUID) {
		if id != nil && *id != fromID {
			ids = append(ids, *id)
		}
	}
	owner := c.Owner
	add(&owner)
	if c.AcceptedBy != nil {
		add(c.AcceptedBy)
	} else {
		add(c.Doctor)
	}
	add(c.Translator)
	add(c.Guest)
	for i := range c.Experts {
		add(&c.Experts[i])
	}
	return ids
}

// notifyIfOffline pings a disconnected callee once per offline period,
// gated by the consultation's notified flag.
func (s *Service) notifyIfOffline(ctx context.Context, c *domain.Consultation, calleeID uuid.UUID, kind domain.CallKind) {
	online, err := s.presence.IsOnline(ctx, calleeID)
	if err != nil {
		logger.FromContext(ctx).Warn("presence lookup failed",
			zap.String("user_id", calleeID.String()), zap.Error(err))
		return
	}
	if online {
		return
	}

	role, ok := consultation.RoleOf(c, calleeID)
	if !ok || alreadyNotified(c, role, calleeID) {
		return
	}

	callee, err := s.users.GetByID(ctx, calleeID)
	if err != nil {
		logger.FromContext(ctx).Warn("loading callee failed",
			zap.String("user_id", calleeID.String()), zap.Error(err))
		return
	}
	if err := s.notifier.NotifyIncomingCall(ctx, callee, c.ID, kind); err != nil {
		logger.FromContext(ctx).Warn("offline notification failed",
			zap.String("user_id", calleeID.String()), zap.Error(err))
		return
	}
	if err := s.consultations.SetNotified(ctx, c.ID, role, calleeID, true); err != nil {
		logger.FromContext(ctx).Warn("setting notified flag failed",
			zap.String("consultation_id", c.ID.String()), zap.Error(err))
	}
}

func alreadyNotified(c *domain.Consultation, role domain.Role, userID uuid.UUID) bool {
	switch role {
	case domain.RoleRequester:
		return c.FlagPatientNotified
	case domain.RoleResponder:
		return c.FlagDoctorNotified
	case domain.RoleTranslator:
		return c.FlagTranslatorNotified
	case domain.RoleGuest:
		return c.FlagGuestNotified
	case domain.RoleExpert:
		return c.FlagExpertsNotified[userID]
	}
	return false
}

// Accept joins actor to a ringing or ongoing call.
//
// Conference calls transition to ongoing on the first accept only and
// emit no event; later accepts just extend the live roster. 1:1 calls
// overwrite acceptedAt even when already ongoing and notify the two
// principals.
func (s *Service) Accept(ctx context.Context, callID, actorID uuid.UUID) (*domain.CallSession, error) {
	call, err := s.getCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call.Status == domain.CallEnded {
		return nil, apperrors.CallEndedError()
	}
	c, err := s.getConsultation(ctx, call.ConsultationID)
	if err != nil {
		return nil, err
	}
	if _, ok := consultation.RoleOf(c, actorID); !ok {
		return nil, apperrors.NotParticipantError()
	}

	now := time.Now().UTC()
	if call.IsConferenceCall {
		if err := s.calls.AddParticipant(ctx, callID, actorID); err != nil {
			return nil, apperrors.InternalError(err)
		}
		joined, err := s.calls.AddCurrentParticipant(ctx, callID, actorID)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		if !joined {
			// a timeout ended the call between the read and the join
			return nil, apperrors.CallEndedError()
		}
		if call.AcceptedAt == nil {
			if _, err := s.calls.SetOngoing(ctx, callID, now); err != nil {
				return nil, apperrors.InternalError(err)
			}
		}
		return s.getCall(ctx, callID)
	}

	ok, err := s.calls.OverwriteAccept(ctx, callID, now)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !ok {
		return nil, apperrors.CallEndedError()
	}
	if err := s.calls.AddParticipant(ctx, callID, actorID); err != nil {
		return nil, apperrors.InternalError(err)
	}

	call, err = s.getCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	s.broadcaster.Broadcast(ctx, principals(c), realtime.Event{
		Name: realtime.EventAcceptCall,
		Payload: map[string]any{
			"consultation": c.ID,
			"call":         call,
		},
	})
	return call, nil
}

// Reject removes actor from a call, ending it when the remainder can
// no longer carry the session.
func (s *Service) Reject(ctx context.Context, callID, actorID uuid.UUID) error {
	call, err := s.getCall(ctx, callID)
	if err != nil {
		return err
	}
	c, err := s.getConsultation(ctx, call.ConsultationID)
	if err != nil {
		return err
	}

	if call.IsConferenceCall || len(c.Experts) > 0 {
		return s.rejectConference(ctx, c, call, actorID)
	}

	if err := s.EndCall(ctx, callID, domain.EndReasonMembersLeft); err != nil {
		return err
	}
	s.broadcaster.Broadcast(ctx, principals(c), realtime.Event{
		Name: realtime.EventRejectCall,
		Payload: map[string]any{
			"consultation": c.ID,
			"call":         call.ID,
		},
	})
	return nil
}

func (s *Service) rejectConference(ctx context.Context, c *domain.Consultation, call *domain.CallSession, actorID uuid.UUID) error {
	// already torn down, nothing to leave
	if call.Status == domain.CallEnded || len(call.CurrentParticipants) == 0 {
		return nil
	}

	role, _ := consultation.RoleOf(c, actorID)
	inCall := call.HasCurrentParticipant(actorID)
	switch {
	case role == domain.RoleResponder && inCall:
		return s.EndCall(ctx, call.ID, domain.EndReasonDoctorLeft)
	case len(call.CurrentParticipants) <= 2 && inCall:
		return s.EndCall(ctx, call.ID, domain.EndReasonMembersLeft)
	default:
		if _, err := s.calls.RemoveCurrentParticipant(ctx, call.ID, actorID); err != nil {
			return apperrors.InternalError(err)
		}
		return nil
	}
}

// EndCall is the single termination path used by reject, timeouts and
// consultation close. Ending an already-ended call is a no-op success.
func (s *Service) EndCall(ctx context.Context, callID uuid.UUID, reason domain.EndReason) error {
	call, err := s.getCall(ctx, callID)
	if err != nil {
		return err
	}

	closedAt := time.Now().UTC()
	ended, err := s.calls.End(ctx, callID, string(reason), closedAt)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if !ended {
		return nil
	}

	s.disarmTimeouts(ctx, callID)
	if s.metrics != nil {
		var duration time.Duration
		if call.AcceptedAt != nil {
			duration = closedAt.Sub(*call.AcceptedAt)
		}
		s.metrics.RecordCallEnded(string(reason), duration)
	}

	c, err := s.getConsultation(ctx, call.ConsultationID)
	if err != nil {
		return err
	}
	call.Status = domain.CallEnded
	call.EndReason = reason
	call.ClosedAt = &closedAt
	call.CurrentParticipants = nil

	s.broadcaster.Broadcast(ctx, consultation.Resolve(c), realtime.Event{
		Name: realtime.EventEndCall,
		Payload: map[string]any{
			"reason":       reason,
			"consultation": c.ID,
			"call":         call,
		},
	})
	return nil
}

// EndLiveCall ends the live call of a consultation, if one exists.
func (s *Service) EndLiveCall(ctx context.Context, consultationID uuid.UUID, reason domain.EndReason) error {
	call, err := s.calls.GetLiveByConsultation(ctx, consultationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.InternalError(err)
	}
	return s.EndCall(ctx, call.ID, reason)
}

// CurrentCall returns the live call of a consultation together with
// fresh relay credentials for the requesting participant.
func (s *Service) CurrentCall(ctx context.Context, consultationID, userID uuid.UUID) (*CreateOutput, error) {
	c, err := s.getConsultation(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if _, ok := consultation.RoleOf(c, userID); !ok {
		return nil, apperrors.NotParticipantError()
	}

	call, err := s.calls.GetLiveByConsultation(ctx, consultationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.CallNotFoundError()
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	creds, err := s.relay.Issue(call.RelayURL, call.ID, userID)
	if err != nil {
		return nil, apperrors.DownstreamUnavailableError("media relay", err)
	}
	return &CreateOutput{Call: call, Credentials: creds}, nil
}

// principals is the {acceptedBy-or-doctor, owner} pair 1:1 call events
// are addressed to.
func principals(c *domain.Consultation) realtime.Audience {
	audience := realtime.Audience{c.Owner}
	if c.AcceptedBy != nil {
		audience = append(audience, *c.AcceptedBy)
	} else if c.Doctor != nil {
		audience = append(audience, *c.Doctor)
	}
	return audience
}

func (s *Service) otherPrincipal(c *domain.Consultation, fromID uuid.UUID) *uuid.UUID {
	if fromID != c.Owner {
		owner := c.Owner
		return &owner
	}
	if c.AcceptedBy != nil {
		return c.AcceptedBy
	}
	return c.Doctor
}

func (s *Service) getCall(ctx context.Context, id uuid.UUID) (*domain.CallSession, error) {
	call, err := s.calls.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.CallNotFoundError()
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return call, nil
}

func (s *Service) getConsultation(ctx context.Context, id uuid.UUID) (*domain.Consultation, error) {
	c, err := s.consultations.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ConsultationNotFoundError()
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return c, nil
}

type timeoutPayload struct {
	CallID uuid.UUID `json:"call_id"`
}

func mustMarshal(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
