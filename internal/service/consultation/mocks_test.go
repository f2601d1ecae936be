package consultation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"teleconsult-backend/internal/domain"
	"teleconsult-backend/internal/realtime"
)

// MockConsultationRepository is a mock implementation of
// repository.ConsultationRepository
type MockConsultationRepository struct {
	mock.Mock
}

func (m *MockConsultationRepository) Create(ctx context.Context, c *domain.Consultation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConsultationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Consultation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Consultation), args.Error(1)
}

func (m *MockConsultationRepository) AcceptPending(ctx context.Context, id, doctorID uuid.UUID, acceptedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, doctorID, acceptedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockConsultationRepository) MarkClosed(ctx context.Context, id uuid.UUID, closedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, closedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockConsultationRepository) SetPresence(ctx context.Context, id uuid.UUID, role domain.Role, userID uuid.UUID, online bool) error {
	args := m.Called(ctx, id, role, userID, online)
	return args.Error(0)
}

func (m *MockConsultationRepository) SetNotified(ctx context.Context, id uuid.UUID, role domain.Role, userID uuid.UUID, notified bool) error {
	args := m.Called(ctx, id, role, userID, notified)
	return args.Error(0)
}

func (m *MockConsultationRepository) SetFirstCallAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockConsultationRepository) SetFeedback(ctx context.Context, id uuid.UUID, role domain.Role, rating, comment string) error {
	args := m.Called(ctx, id, role, rating, comment)
	return args.Error(0)
}

func (m *MockConsultationRepository) ListForUser(ctx context.Context, user *domain.User) ([]*domain.Consultation, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Consultation), args.Error(1)
}

func (m *MockConsultationRepository) ListStaleOpen(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockCallRepository is a mock implementation of repository.CallRepository
type MockCallRepository struct {
	mock.Mock
}

func (m *MockCallRepository) Create(ctx context.Context, call *domain.CallSession) error {
	args := m.Called(ctx, call)
	return args.Error(0)
}

func (m *MockCallRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CallSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CallSession), args.Error(1)
}

func (m *MockCallRepository) GetLiveByConsultation(ctx context.Context, consultationID uuid.UUID) (*domain.CallSession, error) {
	args := m.Called(ctx, consultationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CallSession), args.Error(1)
}

func (m *MockCallRepository) SetOngoing(ctx context.Context, id uuid.UUID, acceptedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, acceptedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockCallRepository) OverwriteAccept(ctx context.Context, id uuid.UUID, acceptedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, acceptedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockCallRepository) End(ctx context.Context, id uuid.UUID, reason string, closedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, reason, closedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockCallRepository) AddCurrentParticipant(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCallRepository) RemoveCurrentParticipant(ctx context.Context, id, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, id, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockCallRepository) AddParticipant(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockCallRepository) ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*domain.CallSession, error) {
	args := m.Called(ctx, consultationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CallSession), args.Error(1)
}

// MockMessageRepository is a mock implementation of
// repository.MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Save(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) ListByConsultation(ctx context.Context, consultationID uuid.UUID, limit int, before time.Time) ([]*domain.Message, error) {
	args := m.Called(ctx, consultationID, limit, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) CountBySender(ctx context.Context, consultationID uuid.UUID) (map[uuid.UUID]int, error) {
	args := m.Called(ctx, consultationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]int), args.Error(1)
}

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

// MockQueueRepository is a mock implementation of repository.QueueRepository
type MockQueueRepository struct {
	mock.Mock
}

func (m *MockQueueRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Queue, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Queue), args.Error(1)
}

func (m *MockQueueRepository) GetDefault(ctx context.Context) (*domain.Queue, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Queue), args.Error(1)
}

func (m *MockQueueRepository) List(ctx context.Context) ([]*domain.Queue, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Queue), args.Error(1)
}

// MockArchiveRepository is a mock implementation of
// repository.ArchiveRepository
type MockArchiveRepository struct {
	mock.Mock
}

func (m *MockArchiveRepository) SaveConsultation(ctx context.Context, a *domain.ConsultationArchive) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockArchiveRepository) SaveCalls(ctx context.Context, calls []domain.CallArchive) error {
	args := m.Called(ctx, calls)
	return args.Error(0)
}

// recordingBroadcaster captures broadcasts for assertions.
type recordingBroadcaster struct {
	events []broadcastRecord
}

type broadcastRecord struct {
	audience realtime.Audience
	event    realtime.Event
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, audience realtime.Audience, event realtime.Event) {
	b.events = append(b.events, broadcastRecord{audience: audience, event: event})
}

func (b *recordingBroadcaster) named(name realtime.EventName) []broadcastRecord {
	var out []broadcastRecord
	for _, r := range b.events {
		if r.event.Name == name {
			out = append(out, r)
		}
	}
	return out
}

// stubInvites records close notifications.
type stubInvites struct {
	closed []uuid.UUID
	err    error
}

func (s *stubInvites) OnConsultationClosed(_ context.Context, id uuid.UUID) error {
	s.closed = append(s.closed, id)
	return s.err
}

// stubCallEnder records EndLiveCall invocations.
type stubCallEnder struct {
	ended   []uuid.UUID
	reasons []domain.EndReason
}

func (s *stubCallEnder) EndLiveCall(_ context.Context, consultationID uuid.UUID, reason domain.EndReason) error {
	s.ended = append(s.ended, consultationID)
	s.reasons = append(s.reasons, reason)
	return nil
}
