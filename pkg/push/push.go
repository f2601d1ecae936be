package push

import (
	"context"
)

// Platform identifies the device platform a token belongs to.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// Notification is a device push shown to a callee who is not connected.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// DeviceToken pairs a registration token with its platform.
type DeviceToken struct {
	Token    string
	Platform Platform
}

// Provider delivers a notification to a single device.
type Provider interface {
	Send(ctx context.Context, token DeviceToken, n Notification) error
	Name() string
}
