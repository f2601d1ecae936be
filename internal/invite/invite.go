package invite

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"teleconsult-backend/pkg/config"
	"teleconsult-backend/pkg/errors"
	"teleconsult-backend/pkg/logger"

	"go.uber.org/zap"
)

// Lifecycle lets the invitation service react to consultation state
// changes. Guest and expert invitations are owned by that service; the
// lifecycle engine only tells it when a consultation closes so open
// invitation links stop working.
type Lifecycle interface {
	OnConsultationClosed(ctx context.Context, consultationID uuid.UUID) error
}

// HTTPLifecycle calls the invitation service over HTTP.
type HTTPLifecycle struct {
	baseURL string
	client  *http.Client
}

func NewHTTPLifecycle(cfg config.InviteConfig) *HTTPLifecycle {
	return &HTTPLifecycle{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (l *HTTPLifecycle) OnConsultationClosed(ctx context.Context, consultationID uuid.UUID) error {
	endpoint := fmt.Sprintf("%s/internal/consultations/%s/closed",
		l.baseURL, url.PathEscape(consultationID.String()))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build invite request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return errors.DownstreamUnavailableError("invitation service", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return errors.DownstreamUnavailableError("invitation service",
			fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

// NoopLifecycle is used when no invitation service is configured.
type NoopLifecycle struct{}

func (NoopLifecycle) OnConsultationClosed(ctx context.Context, consultationID uuid.UUID) error {
	logger.FromContext(ctx).Debug("invitation service not configured",
		zap.String("consultation_id", consultationID.String()))
	return nil
}

// NewLifecycle picks the HTTP client when a base URL is configured.
func NewLifecycle(cfg config.InviteConfig) Lifecycle {
	if cfg.BaseURL == "" {
		return NoopLifecycle{}
	}
	return NewHTTPLifecycle(cfg)
}
