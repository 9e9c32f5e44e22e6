package publishers

import (
	"context"
	"fmt"

	"github.com/samvad-hq/elemental-live/internal/logger"
)

// Sink delivers transitions to one downstream system. Sinks holding
// connections also implement io.Closer.
type Sink interface {
	ID() string
	Type() string
	Send(ctx context.Context, t Transition) error
}

// Open builds the sink declared by cfg.
func Open(ctx context.Context, cfg Config, log logger.Logger) (Sink, error) {
	if log == nil {
		log = &logger.NopLogger{}
	}
	switch cfg.Type {
	case TypeHTTP:
		return newWebhookSink(cfg, log)
	case TypeSQS:
		return newQueueSink(ctx, cfg, log)
	case TypeSNS:
		return newTopicSink(ctx, cfg, log)
	case TypePubSub:
		return newPubSubSink(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("publisher %q: unsupported type %q", cfg.ID, cfg.Type)
	}
}
