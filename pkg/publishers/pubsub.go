package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/samvad-hq/elemental-live/internal/logger"
	"google.golang.org/api/option"
)

// pubsubSink publishes transitions with the subject as ordering key.
type pubsubSink struct {
	id     string
	client *pubsub.Client
	topic  *pubsub.Topic
	log    logger.Logger
}

func newPubSubSink(ctx context.Context, cfg Config, log logger.Logger) (*pubsubSink, error) {
	if cfg.PubSub == nil {
		return nil, fmt.Errorf("publisher %q missing pubsub configuration", cfg.ID)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var opts []option.ClientOption
	if cfg.PubSub.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.PubSub.CredentialsFile))
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("publisher %q: create pubsub client: %w", cfg.ID, err)
	}

	topic := client.Topic(cfg.PubSub.Topic)
	topic.EnableMessageOrdering = true
	return &pubsubSink{id: cfg.ID, client: client, topic: topic, log: log}, nil
}

func (p *pubsubSink) ID() string   { return p.id }
func (p *pubsubSink) Type() string { return TypePubSub }

func (p *pubsubSink) Send(ctx context.Context, t Transition) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transition: %w", err)
	}

	key := t.OrderingKey()
	msgID, err := p.topic.Publish(ctx, &pubsub.Message{
		Data:        payload,
		Attributes:  t.Attributes(),
		OrderingKey: key,
	}).Get(ctx)
	if err != nil {
		// An ordering key stays paused after a failure until resumed.
		p.topic.ResumePublish(key)
		return fmt.Errorf("pubsub publish: %w", err)
	}
	p.log.DebugObj("pubsub delivered transition", "publisher_delivery", map[string]any{
		"publisher_id": p.id,
		"transition":   t.Summary(),
		"message_id":   msgID,
	})
	return nil
}

// Close flushes pending messages and releases the client.
func (p *pubsubSink) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
