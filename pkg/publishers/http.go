package publishers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/elemental-live/internal/logger"
	"github.com/samvad-hq/elemental-live/pkg/httpclient"
)

// Webhook headers carrying transition identity.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderTransitionKind = "X-Transition-Kind"
)

const (
	webhookRetryWait    = 200 * time.Millisecond
	webhookRetryMaxWait = 2 * time.Second
	bodySnippetLimit    = 512
)

// webhookSink posts transitions as JSON. Resends of one transition reuse
// its Idempotency-Key.
type webhookSink struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
	log     logger.Logger
}

func newWebhookSink(cfg Config, log logger.Logger) (*webhookSink, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	h := cfg.HTTP

	client := httpclient.NewRestyHTTPClient(time.Duration(h.TimeoutSeconds) * time.Second)
	if h.Retries != nil && *h.Retries > 0 {
		client.SetRetryCount(*h.Retries).
			SetRetryWaitTime(webhookRetryWait).
			SetRetryMaxWaitTime(webhookRetryMaxWait).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
			})
	}

	return &webhookSink{
		id:      cfg.ID,
		method:  h.Method,
		url:     h.URL,
		headers: h.Headers,
		client:  client,
		log:     log,
	}, nil
}

func (w *webhookSink) ID() string   { return w.id }
func (w *webhookSink) Type() string { return TypeHTTP }

func (w *webhookSink) Send(ctx context.Context, t Transition) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeaders(w.headers).
		SetHeader("Content-Type", "application/json").
		SetHeader(HeaderIdempotencyKey, t.DedupeID()).
		SetHeader(HeaderTransitionKind, t.Kind).
		SetBody(t).
		Execute(w.method, w.url)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook answered %d: %s", resp.StatusCode(), snippet(resp.Body()))
	}
	w.log.DebugObj("webhook delivered transition", "publisher_delivery", map[string]any{
		"publisher_id": w.id,
		"transition":   t.Summary(),
		"status":       resp.StatusCode(),
		"attempts":     resp.Request.Attempt,
	})
	return nil
}

func snippet(body []byte) string {
	if len(body) > bodySnippetLimit {
		body = body[:bodySnippetLimit]
	}
	return strings.TrimSpace(string(body))
}
