package push

import (
	"context"
	"sync"

	"teleconsult-backend/pkg/logger"

	"go.uber.org/zap"
)

// MockProvider logs pushes instead of delivering them. Used in
// development and tests.
type MockProvider struct {
	mu   sync.Mutex
	sent []Notification
}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) Send(_ context.Context, token DeviceToken, n Notification) error {
	p.mu.Lock()
	p.sent = append(p.sent, n)
	p.mu.Unlock()
	logger.Log.Debug("mock push sent",
		zap.String("platform", string(token.Platform)),
		zap.String("title", n.Title))
	return nil
}

// Sent returns a copy of every notification delivered so far.
func (p *MockProvider) Sent() []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Notification, len(p.sent))
	copy(out, p.sent)
	return out
}
