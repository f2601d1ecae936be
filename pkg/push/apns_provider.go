package push

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sideshow/apns2"
	apnstoken "github.com/sideshow/apns2/token"
)

// APNSProvider delivers pushes through Apple Push Notification service
// using token based authentication.
type APNSProvider struct {
	client *apns2.Client
	topic  string
}

type APNSConfig struct {
	KeyFile    string
	KeyID      string
	TeamID     string
	Topic      string
	Production bool
}

func NewAPNSProvider(cfg APNSConfig) (*APNSProvider, error) {
	authKey, err := apnstoken.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load apns auth key: %w", err)
	}
	tok := &apnstoken.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	}
	client := apns2.NewTokenClient(tok)
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}
	return &APNSProvider{client: client, topic: cfg.Topic}, nil
}

func (p *APNSProvider) Name() string { return "apns" }

func (p *APNSProvider) Send(ctx context.Context, token DeviceToken, n Notification) error {
	payload := map[string]any{
		"aps": map[string]any{
			"alert": map[string]string{
				"title": n.Title,
				"body":  n.Body,
			},
			"sound": "default",
		},
	}
	for k, v := range n.Data {
		payload[k] = v
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal apns payload: %w", err)
	}

	notification := &apns2.Notification{
		DeviceToken: token.Token,
		Topic:       p.topic,
		Payload:     body,
		Priority:    apns2.PriorityHigh,
	}
	res, err := p.client.PushWithContext(ctx, notification)
	if err != nil {
		return fmt.Errorf("apns push: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("apns rejected push: %s", res.Reason)
	}
	return nil
}
