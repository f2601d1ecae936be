package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"teleconsult-backend/pkg/constants"
	"teleconsult-backend/pkg/push"
)

// PushTokenRepo keeps device registration tokens in a Redis hash per
// user, token -> platform.
type PushTokenRepo struct {
	client *redis.Client
}

func NewPushTokenRepo(client *redis.Client) *PushTokenRepo {
	return &PushTokenRepo{client: client}
}

func tokenKey(userID uuid.UUID) string {
	return constants.PushTokenKeyPrefix + userID.String()
}

func (r *PushTokenRepo) Save(ctx context.Context, userID uuid.UUID, token push.DeviceToken) error {
	if err := r.client.HSet(ctx, tokenKey(userID), token.Token, string(token.Platform)).Err(); err != nil {
		return fmt.Errorf("save push token: %w", err)
	}
	return nil
}

func (r *PushTokenRepo) Get(ctx context.Context, userID uuid.UUID) ([]push.DeviceToken, error) {
	entries, err := r.client.HGetAll(ctx, tokenKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get push tokens: %w", err)
	}
	out := make([]push.DeviceToken, 0, len(entries))
	for token, platform := range entries {
		out = append(out, push.DeviceToken{Token: token, Platform: push.Platform(platform)})
	}
	return out, nil
}

func (r *PushTokenRepo) Delete(ctx context.Context, userID uuid.UUID, token string) error {
	if err := r.client.HDel(ctx, tokenKey(userID), token).Err(); err != nil {
		return fmt.Errorf("delete push token: %w", err)
	}
	return nil
}
