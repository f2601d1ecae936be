package call

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"teleconsult-backend/internal/domain"
	"teleconsult-backend/internal/scheduler"
	"teleconsult-backend/pkg/constants"
	apperrors "teleconsult-backend/pkg/errors"
	"teleconsult-backend/pkg/logger"

	"go.uber.org/zap"
)

// Timeouts are armed once per call at creation as durable delayed
// jobs. The handlers re-read call state before acting, so a job firing
// after the call already ended is a clean no-op.

func ringingJobID(callID uuid.UUID) string {
	return "ringing:" + callID.String()
}

func durationJobID(callID uuid.UUID) string {
	return "duration:" + callID.String()
}

func (s *Service) armTimeouts(ctx context.Context, callID uuid.UUID) {
	now := time.Now().UTC()
	payload := mustMarshal(timeoutPayload{CallID: callID})

	jobs := []scheduler.Job{
		{
			ID:      ringingJobID(callID),
			Name:    constants.JobRingingTimeout,
			RunAt:   now.Add(s.timeouts.Ringing),
			Payload: payload,
		},
		{
			ID:      durationJobID(callID),
			Name:    constants.JobDurationTimeout,
			RunAt:   now.Add(s.timeouts.CallDuration),
			Payload: payload,
		},
	}
	for _, job := range jobs {
		if err := s.jobs.Schedule(ctx, job); err != nil {
			logger.FromContext(ctx).Error("scheduling call timeout failed",
				zap.String("job", job.Name),
				zap.String("call_id", callID.String()),
				zap.Error(err))
		}
	}
}

func (s *Service) disarmTimeouts(ctx context.Context, callID uuid.UUID) {
	for _, id := range []string{ringingJobID(callID), durationJobID(callID)} {
		if err := s.jobs.Cancel(ctx, id); err != nil {
			logger.FromContext(ctx).Warn("cancelling call timeout failed",
				zap.String("job_id", id), zap.Error(err))
		}
	}
}

// RegisterTimeoutHandlers binds the two timeout jobs to the engine.
func (s *Service) RegisterTimeoutHandlers(sched *scheduler.Scheduler) {
	sched.Register(constants.JobRingingTimeout, s.handleRingingTimeout)
	sched.Register(constants.JobDurationTimeout, s.handleDurationTimeout)
}

// handleRingingTimeout ends a call nobody answered in time.
func (s *Service) handleRingingTimeout(ctx context.Context, raw json.RawMessage) error {
	call, err := s.loadTimeoutTarget(ctx, raw)
	if err != nil || call == nil {
		return err
	}
	if call.Status != domain.CallRinging {
		return nil
	}
	if s.metrics != nil {
		s.metrics.RecordRingingTimeout()
	}
	return s.EndCall(ctx, call.ID, domain.EndReasonRingingTimeout)
}

// handleDurationTimeout caps the total length of a call.
func (s *Service) handleDurationTimeout(ctx context.Context, raw json.RawMessage) error {
	call, err := s.loadTimeoutTarget(ctx, raw)
	if err != nil || call == nil {
		return err
	}
	if call.Status == domain.CallEnded {
		return nil
	}
	return s.EndCall(ctx, call.ID, domain.EndReasonDurationTimeout)
}

// loadTimeoutTarget parses the payload and loads the call. A call that
// no longer exists consumes the job silently.
func (s *Service) loadTimeoutTarget(ctx context.Context, raw json.RawMessage) (*domain.CallSession, error) {
	var p timeoutPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse timeout payload: %w", err)
	}
	call, err := s.getCall(ctx, p.CallID)
	if apperrors.IsCode(err, apperrors.ErrCodeCallNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return call, nil
}
