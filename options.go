package go_atoapay

import (
	"net/http"
	"strings"
	"time"

	"github.com/stremovskyy/recorder"

	"github.com/stremovskyy/go-atoapay/consts"
	internalhttp "github.com/stremovskyy/go-atoapay/internal/http"
)

type clientConfig struct {
	baseURL string

	httpOptions *internalhttp.Options
	httpClient  *http.Client

	recorder recorder.Recorder

	// device answers platform/browser queries for authorisation payloads.
	device DeviceInfo

	// source is sent with payment-detail and authorisation requests.
	source string
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		baseURL:     consts.DefaultBaseURL,
		httpOptions: internalhttp.DefaultOptions(),
		device:      DefaultDevice,
		source:      consts.SourceExternalMerchant,
	}
}

// Option configures the payments client.
type Option func(*clientConfig)

// WithBaseURL overrides API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *clientConfig) {
		baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.httpOptions.Timeout = d
	}
}

func WithKeepAlive(d time.Duration) Option {
	return func(c *clientConfig) {
		c.httpOptions.KeepAlive = d
	}
}

func WithMaxIdleConns(n int) Option {
	return func(c *clientConfig) {
		c.httpOptions.MaxIdleConns = n
	}
}

func WithIdleConnTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.httpOptions.IdleConnTimeout = d
	}
}

func WithUserAgent(ua string) Option {
	return func(c *clientConfig) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.httpOptions.UserAgent = ua
		}
	}
}

// WithClient overrides underlying net/http client.
func WithClient(cl *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = cl
		if cl != nil {
			c.httpOptions.Timeout = cl.Timeout
		}
	}
}

// WithRecorder records every request, response and transport error.
func WithRecorder(rec recorder.Recorder) Option {
	return func(c *clientConfig) {
		c.recorder = rec
	}
}

// WithDevice sets the DeviceInfo used when an AuthorisationRequest has none.
func WithDevice(d DeviceInfo) Option {
	return func(c *clientConfig) {
		if d != nil {
			c.device = d
		}
	}
}

// WithSource overrides the request source marker (default EXTERNAL_MERCHANT).
func WithSource(source string) Option {
	return func(c *clientConfig) {
		if source = strings.TrimSpace(source); source != "" {
			c.source = source
		}
	}
}

// NewClient creates a payments client with custom options.
func NewClient(opts ...Option) AtoaPay {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	hc := internalhttp.NewClient(cfg.httpOptions)
	if cfg.httpClient != nil {
		hc.SetClient(cfg.httpClient)
	}

	return &client{
		http: hc,
		cfg:  cfg,
	}
}

// NewDefaultClient returns client with defaults.
func NewDefaultClient() AtoaPay { return NewClient() }
