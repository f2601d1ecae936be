package push

import (
	"context"
	"fmt"

	"teleconsult-backend/pkg/config"
	"teleconsult-backend/pkg/logger"
)

// NewProvider builds the configured push provider. Android and iOS
// tokens are routed to the same provider unless "multi" is selected,
// which pairs FCM with APNs per platform.
func NewProvider(ctx context.Context, cfg config.PushConfig) (Provider, error) {
	switch cfg.Provider {
	case "fcm":
		return NewFCMProvider(ctx, cfg.FCMCredentialsFile)
	case "apns":
		return NewAPNSProvider(APNSConfig{
			KeyFile:    cfg.APNSKeyFile,
			KeyID:      cfg.APNSKeyID,
			TeamID:     cfg.APNSTeamID,
			Topic:      cfg.APNSTopic,
			Production: cfg.APNSProduction,
		})
	case "multi":
		fcm, err := NewFCMProvider(ctx, cfg.FCMCredentialsFile)
		if err != nil {
			return nil, err
		}
		apns, err := NewAPNSProvider(APNSConfig{
			KeyFile:    cfg.APNSKeyFile,
			KeyID:      cfg.APNSKeyID,
			TeamID:     cfg.APNSTeamID,
			Topic:      cfg.APNSTopic,
			Production: cfg.APNSProduction,
		})
		if err != nil {
			return nil, err
		}
		return NewMultiProvider(fcm, apns), nil
	case "mock", "":
		logger.Log.Warn("using mock push provider")
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown push provider %q", cfg.Provider)
	}
}

// MultiProvider routes each token to the provider for its platform.
type MultiProvider struct {
	android Provider
	ios     Provider
}

func NewMultiProvider(android, ios Provider) *MultiProvider {
	return &MultiProvider{android: android, ios: ios}
}

func (p *MultiProvider) Name() string { return "multi" }

func (p *MultiProvider) Send(ctx context.Context, token DeviceToken, n Notification) error {
	if token.Platform == PlatformIOS {
		return p.ios.Send(ctx, token, n)
	}
	return p.android.Send(ctx, token, n)
}
