package ws

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"teleconsult-backend/internal/domain"
	"teleconsult-backend/internal/realtime"
	"teleconsult-backend/internal/repository"
)

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

func newTestGateway(users *MockUserRepository, queues *MockQueueRepository) *Gateway {
	return &Gateway{
		users:       users,
		queues:      queues,
		connections: make(map[uuid.UUID]int),
	}
}

func TestSubscriptionChannels_IncludesAllowedQueues(t *testing.T) {
	users := new(MockUserRepository)
	queues := new(MockQueueRepository)
	g := newTestGateway(users, queues)

	userID := uuid.New()
	q1 := uuid.New()
	q2 := uuid.New()
	users.On("GetByID", mock.Anything, userID).Return(&domain.User{
		ID:            userID,
		Role:          domain.RoleResponder,
		AllowedQueues: []uuid.UUID{q1, q2},
	}, nil)

	channels := g.subscriptionChannels(context.Background(), userID)

	assert.ElementsMatch(t, []string{
		realtime.Channel(userID),
		realtime.Channel(q1),
		realtime.Channel(q2),
	}, channels)
	queues.AssertNotCalled(t, "List", mock.Anything)
}

func TestSubscriptionChannels_ViewAllQueuesCoversEveryQueue(t *testing.T) {
	users := new(MockUserRepository)
	queues := new(MockQueueRepository)
	g := newTestGateway(users, queues)

	userID := uuid.New()
	q1 := uuid.New()
	q2 := uuid.New()
	users.On("GetByID", mock.Anything, userID).Return(&domain.User{
		ID:            userID,
		Role:          domain.RoleResponder,
		ViewAllQueues: true,
	}, nil)
	queues.On("List", mock.Anything).Return([]*domain.Queue{
		{ID: q1, Name: "triage"},
		{ID: q2, Name: "cardiology"},
	}, nil)

	channels := g.subscriptionChannels(context.Background(), userID)

	assert.ElementsMatch(t, []string{
		realtime.Channel(userID),
		realtime.Channel(q1),
		realtime.Channel(q2),
	}, channels)
}

func TestSubscriptionChannels_FallsBackToUserChannel(t *testing.T) {
	users := new(MockUserRepository)
	queues := new(MockQueueRepository)
	g := newTestGateway(users, queues)

	userID := uuid.New()
	users.On("GetByID", mock.Anything, userID).Return(nil, repository.ErrNotFound)

	channels := g.subscriptionChannels(context.Background(), userID)

	require.Len(t, channels, 1)
	assert.Equal(t, realtime.Channel(userID), channels[0])
}
