// Package elemental is a client for the ElementalLive encoder REST/XML API.
//
// Every operation builds a URL under the configured base URL, signs the
// request when credentials are configured, validates the status code and
// decodes the XML (or JSON, for previews) body. The client holds no mutable
// state and is safe for concurrent use when its transport is.
package elemental

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samvad-hq/elemental-live/internal/logger"
	"github.com/samvad-hq/elemental-live/pkg/httpclient"
)

// DefaultTimeout bounds a single request when Config.Timeout is unset.
const DefaultTimeout = 30 * time.Second

// Config holds connection parameters for one encoder appliance.
type Config struct {
	BaseURL string
	User    string
	APIKey  string
	Timeout time.Duration
}

// Client talks to a single ElementalLive appliance.
type Client struct {
	baseURL string
	user    string
	apiKey  string
	timeout time.Duration
	http    httpclient.Client
	log     logger.Logger
	now     func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default resty transport.
func WithHTTPClient(hc httpclient.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger attaches a logger for per-request debug entries.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithClock overrides the time source used for auth expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New validates cfg and builds a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("elemental base url is required")
	}
	if (cfg.User == "") != (cfg.APIKey == "") {
		return nil, errors.New("elemental user and api key must be set together")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL: base,
		user:    cfg.User,
		apiKey:  cfg.APIKey,
		timeout: timeout,
		log:     &logger.NopLogger{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewRestyClient(timeout)
	}
	return c, nil
}

// BaseURL returns the normalized base URL the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) url(format string, args ...any) string {
	return c.baseURL + fmt.Sprintf(format, args...)
}

// send performs one request and enforces the 200/201 contract.
func (c *Client) send(ctx context.Context, method, rawURL string, headers map[string]string, body []byte) (httpclient.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := c.now()
	resp, err := c.http.Do(ctx, method, rawURL, headers, body)
	if err != nil {
		c.log.DebugObj("elemental request failed", "elemental_request", map[string]any{
			"method": method,
			"url":    rawURL,
			"error":  err.Error(),
		})
		return nil, &RequestError{Method: method, URL: rawURL, Err: err}
	}

	code := resp.StatusCode()
	c.log.DebugObj("elemental request completed", "elemental_request", map[string]any{
		"method":     method,
		"url":        rawURL,
		"status":     code,
		"elapsed_ms": c.now().Sub(start).Milliseconds(),
	})
	if code != http.StatusOK && code != http.StatusCreated {
		return nil, &ResponseError{Method: method, URL: rawURL, StatusCode: code, Body: string(resp.Body())}
	}
	return resp, nil
}
