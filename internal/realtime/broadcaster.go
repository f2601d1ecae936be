package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"teleconsult-backend/pkg/constants"
	"teleconsult-backend/pkg/logger"
	"teleconsult-backend/pkg/metrics"

	"go.uber.org/zap"
)

// Broadcaster fans an event out to every identity in the audience.
// Delivery is best effort: a failed publish is logged, never surfaced
// to the caller, so a realtime outage cannot fail a state transition.
type Broadcaster interface {
	Broadcast(ctx context.Context, audience Audience, event Event)
}

// RedisBroadcaster publishes events as JSON on one Redis pub/sub
// channel per identity. The websocket gateway subscribes to the
// channels of its connected users.
type RedisBroadcaster struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

func NewRedisBroadcaster(client *redis.Client, m *metrics.Metrics) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, metrics: m}
}

// Channel returns the pub/sub channel for an identity.
func Channel(identity uuid.UUID) string {
	return constants.EventChannelPrefix + identity.String()
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, audience Audience, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		logger.FromContext(ctx).Error("marshal event",
			zap.String("event", string(event.Name)), zap.Error(err))
		return
	}

	seen := make(map[uuid.UUID]struct{}, len(audience))
	for _, identity := range audience {
		if _, dup := seen[identity]; dup {
			continue
		}
		seen[identity] = struct{}{}

		err := b.client.Publish(ctx, Channel(identity), body).Err()
		if b.metrics != nil {
			b.metrics.RecordEventPublished(string(event.Name), err)
		}
		if err != nil {
			logger.FromContext(ctx).Warn("event publish failed",
				zap.String("event", string(event.Name)),
				zap.String("identity", identity.String()),
				zap.Error(err))
		}
	}
}
