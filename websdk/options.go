package websdk

import (
	"time"

	"github.com/getsentry/sentry-go"

	go_atoapay "github.com/stremovskyy/go-atoapay"
)

const defaultNotifyTimeout = 10 * time.Second

type sdkConfig struct {
	gateway       go_atoapay.AtoaPay
	hub           *sentry.Hub
	tag           string
	notifyTimeout time.Duration
}

func defaultSDKConfig() *sdkConfig {
	return &sdkConfig{
		tag:           DialogTag,
		notifyTimeout: defaultNotifyTimeout,
	}
}

// Option configures the SDK facade.
type Option func(*sdkConfig)

// WithGateway sets the payments client handed to the dialog and used for
// cancellation callbacks. Defaults to go_atoapay.NewDefaultClient().
func WithGateway(gw go_atoapay.AtoaPay) Option {
	return func(c *sdkConfig) {
		c.gateway = gw
	}
}

// WithSentryHub reports every error-channel error to hub.
func WithSentryHub(hub *sentry.Hub) Option {
	return func(c *sdkConfig) {
		c.hub = hub
	}
}

// WithDialogTag renders a different registered element.
func WithDialogTag(tag string) Option {
	return func(c *sdkConfig) {
		if tag = normalizeTag(tag); tag != "" {
			c.tag = tag
		}
	}
}

func WithNotifyTimeout(d time.Duration) Option {
	return func(c *sdkConfig) {
		if d > 0 {
			c.notifyTimeout = d
		}
	}
}
