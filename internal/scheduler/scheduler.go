package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"teleconsult-backend/pkg/constants"
	"teleconsult-backend/pkg/logger"
	"teleconsult-backend/pkg/metrics"

	"go.uber.org/zap"
)

// Job is one durable delayed task. Jobs survive process restarts: the
// due time lives in a Redis sorted set and the payload in a hash, so
// any instance can fire a job scheduled by another.
type Job struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	RunAt   time.Time       `json:"run_at"`
	Payload json.RawMessage `json:"payload"`
}

// HandlerFunc processes a due job. Handlers must be idempotent: a job
// can fire after the state it refers to has already moved on, and the
// handler is expected to re-read state and no-op in that case.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// Scheduler stores delayed jobs in Redis and fires them when due.
type Scheduler struct {
	client   *redis.Client
	metrics  *metrics.Metrics
	interval time.Duration
	handlers map[string]HandlerFunc
}

func New(client *redis.Client, m *metrics.Metrics, pollInterval time.Duration) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Scheduler{
		client:   client,
		metrics:  m,
		interval: pollInterval,
		handlers: make(map[string]HandlerFunc),
	}
}

// Register binds a handler to a job name. Must be called before Run.
func (s *Scheduler) Register(name string, fn HandlerFunc) {
	s.handlers[name] = fn
}

// Schedule enqueues a job. Scheduling the same job id twice moves its
// due time and replaces its payload.
func (s *Scheduler) Schedule(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, constants.SchedulePayloadKey, job.ID, body)
	pipe.ZAdd(ctx, constants.ScheduleKey, redis.Z{
		Score:  float64(job.RunAt.UnixMilli()),
		Member: job.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("schedule job %s: %w", job.ID, err)
	}
	return nil
}

// Cancel removes a pending job. Cancelling an unknown id is a no-op.
func (s *Scheduler) Cancel(ctx context.Context, jobID string) error {
	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, constants.ScheduleKey, jobID)
	pipe.HDel(ctx, constants.SchedulePayloadKey, jobID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cancel job %s: %w", jobID, err)
	}
	return nil
}

// Run polls for due jobs until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Log.Info("scheduler started", zap.Duration("poll_interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := float64(time.Now().UnixMilli())
	ids, err := s.client.ZRangeByScore(ctx, constants.ScheduleKey, &redis.ZRangeBy{
		Min: "-inf", Max: fmt.Sprintf("%f", now), Count: 100,
	}).Result()
	if err != nil {
		logger.Log.Warn("scheduler poll failed", zap.Error(err))
		return
	}

	for _, id := range ids {
		// ZRem is the claim: exactly one instance wins each job.
		removed, err := s.client.ZRem(ctx, constants.ScheduleKey, id).Result()
		if err != nil || removed == 0 {
			continue
		}
		s.fire(ctx, id)
	}
}

func (s *Scheduler) fire(ctx context.Context, id string) {
	body, err := s.client.HGet(ctx, constants.SchedulePayloadKey, id).Result()
	if err != nil {
		logger.Log.Warn("job payload missing", zap.String("job_id", id), zap.Error(err))
		return
	}
	_ = s.client.HDel(ctx, constants.SchedulePayloadKey, id).Err()

	var job Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		logger.Log.Error("job payload corrupt", zap.String("job_id", id), zap.Error(err))
		return
	}

	handler, ok := s.handlers[job.Name]
	if !ok {
		logger.Log.Error("no handler for job", zap.String("job", job.Name))
		if s.metrics != nil {
			s.metrics.RecordScheduledJob(job.Name, "unhandled")
		}
		return
	}

	if err := handler(ctx, job.Payload); err != nil {
		logger.Log.Error("job failed",
			zap.String("job", job.Name), zap.String("job_id", id), zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordScheduledJob(job.Name, "error")
		}
		return
	}
	if s.metrics != nil {
		s.metrics.RecordScheduledJob(job.Name, "ok")
	}
}
