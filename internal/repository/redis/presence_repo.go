package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"teleconsult-backend/pkg/constants"
)

// PresenceRepo tracks live realtime connections in Redis. Keys expire
// so a crashed client reads as offline once its heartbeats stop.
type PresenceRepo struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPresenceRepo(client *redis.Client) *PresenceRepo {
	return &PresenceRepo{
		client: client,
		ttl:    constants.PresenceTTLSeconds * time.Second,
	}
}

func presenceKey(userID uuid.UUID) string {
	return constants.PresenceKeyPrefix + userID.String()
}

func (r *PresenceRepo) SetOnline(ctx context.Context, userID uuid.UUID) error {
	if err := r.client.Set(ctx, presenceKey(userID), "1", r.ttl).Err(); err != nil {
		return fmt.Errorf("set online: %w", err)
	}
	return nil
}

func (r *PresenceRepo) SetOffline(ctx context.Context, userID uuid.UUID) error {
	if err := r.client.Del(ctx, presenceKey(userID)).Err(); err != nil {
		return fmt.Errorf("set offline: %w", err)
	}
	return nil
}

func (r *PresenceRepo) Heartbeat(ctx context.Context, userID uuid.UUID) error {
	if err := r.client.Expire(ctx, presenceKey(userID), r.ttl).Err(); err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	return nil
}

func (r *PresenceRepo) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := r.client.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("check online: %w", err)
	}
	return n > 0, nil
}
