package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HeaderRequestID correlates SDK requests with backend traces.
const HeaderRequestID = "X-Request-Id"

// HTTPDoer is the minimal interface required from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a thin wrapper over net/http for the payments JSON API.
type Client struct {
	client    HTTPDoer
	transport *http.Transport
	opts      *Options
}

func NewClient(opts *Options) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}

	dialer := &net.Dialer{
		Timeout:   opts.Timeout,
		KeepAlive: opts.KeepAlive,
	}

	tr := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		DialContext:       dialer.DialContext,
		ForceAttemptHTTP2: true,
		MaxIdleConns:      opts.MaxIdleConns,
		IdleConnTimeout:   opts.IdleConnTimeout,
	}

	hc := &http.Client{
		Timeout:   opts.Timeout,
		Transport: tr,
	}

	return &Client{client: hc, transport: tr, opts: opts}
}

// SetClient overrides underlying HTTP client.
func (c *Client) SetClient(hc HTTPDoer) {
	if hc == nil {
		return
	}
	c.client = hc
}

// Do executes req and reads the whole body.
func (c *Client) Do(req *http.Request) (*http.Response, []byte, error) {
	if req == nil {
		return nil, nil, fmt.Errorf("http: request is nil")
	}
	if c.opts != nil && c.opts.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	return resp, body, nil
}

// NewRequestID returns a fresh correlation id.
func NewRequestID() string {
	return uuid.NewString()
}

// NewJSONRequest creates an http.Request with JSON body (if payload != nil),
// encodes query into the URL and stamps a request id header.
func NewJSONRequest(ctx context.Context, method, endpoint string, query url.Values, payload any, requestID string) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("json marshal: %w", err)
		}
		body = bytes.NewReader(b)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint += sep + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requestID != "" {
		req.Header.Set(HeaderRequestID, requestID)
	}
	return req, nil
}

// WithTimeout returns a new context with timeout based on duration.
// If d <= 0, returns the original ctx.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
