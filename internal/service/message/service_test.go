package message

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"teleconsult-backend/internal/domain"
	"teleconsult-backend/internal/realtime"
	apperrors "teleconsult-backend/pkg/errors"
)

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

// MockConsultationRepository only implements GetByID for these tests;
// the remaining methods satisfy the interface.
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

type recordingBroadcaster struct {
	audiences []realtime.Audience
	events    []realtime.Event
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, audience realtime.Audience, event realtime.Event) {
	b.audiences = append(b.audiences, audience)
	b.events = append(b.events, event)
}

func activeConsultation(owner, doctor uuid.UUID) *domain.Consultation {
	return &domain.Consultation{
		ID:         uuid.New(),
		Status:     domain.ConsultationActive,
		Owner:      owner,
		AcceptedBy: &doctor,
	}
}

func TestSendText_BroadcastsToOthersOnly(t *testing.T) {
	messages := new(MockMessageRepository)
	consultations := new(MockConsultationRepository)
	bus := &recordingBroadcaster{}
	svc := NewService(messages, consultations, bus, nil)

	owner := uuid.New()
	doctor := uuid.New()
	c := activeConsultation(owner, doctor)

	consultations.On("GetByID", mock.Anything, c.ID).Return(c, nil)
	messages.On("Save", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil)

	m, err := svc.SendText(context.Background(), c.ID, owner, "  hello  ")

	require.NoError(t, err)
	assert.Equal(t, "hello", m.Text)
	assert.Equal(t, domain.MessageTypeText, m.Type)
	require.Len(t, bus.audiences, 1)
	assert.Equal(t, realtime.Audience{doctor}, bus.audiences[0])
	assert.Equal(t, realtime.EventNewMessage, bus.events[0].Name)
}

func TestSendText_RejectsEmptyAndOversized(t *testing.T) {
	svc := NewService(new(MockMessageRepository), new(MockConsultationRepository), &recordingBroadcaster{}, nil)

	_, err := svc.SendText(context.Background(), uuid.New(), uuid.New(), "   ")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))

	_, err = svc.SendText(context.Background(), uuid.New(), uuid.New(), strings.Repeat("x", 5000))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestSendText_RejectsClosedConsultation(t *testing.T) {
	messages := new(MockMessageRepository)
	consultations := new(MockConsultationRepository)
	svc := NewService(messages, consultations, &recordingBroadcaster{}, nil)

	owner := uuid.New()
	doctor := uuid.New()
	c := activeConsultation(owner, doctor)
	c.Status = domain.ConsultationClosed

	consultations.On("GetByID", mock.Anything, c.ID).Return(c, nil)

	_, err := svc.SendText(context.Background(), c.ID, owner, "hello")

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConsultationNotOpen))
	messages.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSendText_RejectsNonParticipant(t *testing.T) {
	consultations := new(MockConsultationRepository)
	svc := NewService(new(MockMessageRepository), consultations, &recordingBroadcaster{}, nil)

	c := activeConsultation(uuid.New(), uuid.New())
	consultations.On("GetByID", mock.Anything, c.ID).Return(c, nil)

	_, err := svc.SendText(context.Background(), c.ID, uuid.New(), "hello")

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotParticipant))
}

func TestHistory_DefaultsCursorToNow(t *testing.T) {
	messages := new(MockMessageRepository)
	consultations := new(MockConsultationRepository)
	svc := NewService(messages, consultations, &recordingBroadcaster{}, nil)

	owner := uuid.New()
	doctor := uuid.New()
	c := activeConsultation(owner, doctor)

	consultations.On("GetByID", mock.Anything, c.ID).Return(c, nil)
	messages.On("ListByConsultation", mock.Anything, c.ID, 50, mock.MatchedBy(func(before time.Time) bool {
		return time.Since(before) < time.Minute
	})).Return([]*domain.Message{}, nil)

	out, err := svc.History(context.Background(), c.ID, doctor, 50, time.Time{})

	require.NoError(t, err)
	assert.Empty(t, out)
}
