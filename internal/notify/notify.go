package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"teleconsult-backend/internal/domain"
	"teleconsult-backend/internal/repository"
	"teleconsult-backend/pkg/email"
	"teleconsult-backend/pkg/logger"
	"teleconsult-backend/pkg/push"

	"go.uber.org/zap"
)

// Dispatcher reaches participants who hold no live realtime
// connection: device pushes to their registered tokens plus an email
// fallback. Callers pair a dispatch with the consultation's
// notified flag so each participant is pinged at most once per
// offline period.
type Dispatcher struct {
	tokens   repository.PushTokenRepository
	provider push.Provider
	email    email.Sender
}

func NewDispatcher(tokens repository.PushTokenRepository, provider push.Provider, sender email.Sender) *Dispatcher {
	return &Dispatcher{tokens: tokens, provider: provider, email: sender}
}

// NotifyIncomingCall tells an offline callee someone is calling them.
func (d *Dispatcher) NotifyIncomingCall(ctx context.Context, callee *domain.User, consultationID uuid.UUID, kind domain.CallKind) error {
	verb := "calling"
	if kind == domain.CallKindVideo {
		verb = "video calling"
	}
	n := push.Notification{
		Title: "Incoming call",
		Body:  fmt.Sprintf("Someone is %s you in your consultation", verb),
		Data: map[string]string{
			"type":         "incoming_call",
			"consultation": consultationID.String(),
			"kind":         string(kind),
		},
	}
	pushed := d.sendPushes(ctx, callee.ID, n)

	if callee.Email != "" {
		body := fmt.Sprintf(
			"Hello %s,\n\nYou have an incoming call in your consultation. "+
				"Open the app to answer.\n", callee.FirstName)
		if err := d.email.Send(ctx, callee.Email, "Incoming consultation call", body); err != nil {
			logger.FromContext(ctx).Warn("missed-call email failed",
				zap.String("user_id", callee.ID.String()), zap.Error(err))
		} else {
			pushed = true
		}
	}

	if !pushed {
		return fmt.Errorf("no reachable channel for user %s", callee.ID)
	}
	return nil
}

func (d *Dispatcher) sendPushes(ctx context.Context, userID uuid.UUID, n push.Notification) bool {
	tokens, err := d.tokens.Get(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Warn("loading push tokens failed",
			zap.String("user_id", userID.String()), zap.Error(err))
		return false
	}

	delivered := false
	for _, token := range tokens {
		if err := d.provider.Send(ctx, token, n); err != nil {
			logger.FromContext(ctx).Warn("push delivery failed",
				zap.String("user_id", userID.String()),
				zap.String("provider", d.provider.Name()),
				zap.Error(err))
			continue
		}
		delivered = true
	}
	return delivered
}
