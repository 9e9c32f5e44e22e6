package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/samvad-hq/elemental-live/internal/logger"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// queueSink sends transitions to SQS. On FIFO queues each subject is its own
// message group, so a device or event never has its transitions reordered.
type queueSink struct {
	id       string
	queueURL string
	fifo     bool
	api      sqsAPI
	log      logger.Logger
}

func newQueueSink(ctx context.Context, cfg Config, log logger.Logger) (*queueSink, error) {
	if cfg.SQS == nil {
		return nil, fmt.Errorf("publisher %q missing sqs configuration", cfg.ID)
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.SQS.Region, cfg.SQS.Credentials)
	if err != nil {
		return nil, fmt.Errorf("publisher %q: load aws config: %w", cfg.ID, err)
	}
	return &queueSink{
		id:       cfg.ID,
		queueURL: cfg.SQS.QueueURL,
		fifo:     strings.HasSuffix(cfg.SQS.QueueURL, ".fifo"),
		api:      sqs.NewFromConfig(awsCfg),
		log:      log,
	}, nil
}

func (q *queueSink) ID() string   { return q.id }
func (q *queueSink) Type() string { return TypeSQS }

func (q *queueSink) Send(ctx context.Context, t Transition) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transition: %w", err)
	}

	in := &sqs.SendMessageInput{
		QueueUrl:          aws.String(q.queueURL),
		MessageBody:       aws.String(string(payload)),
		MessageAttributes: sqsAttributes(t),
	}
	if q.fifo {
		in.MessageGroupId = aws.String(t.OrderingKey())
		in.MessageDeduplicationId = aws.String(t.DedupeID())
	}

	out, err := q.api.SendMessage(ctx, in)
	if err != nil {
		return fmt.Errorf("sqs send: %w", err)
	}
	q.log.DebugObj("sqs delivered transition", "publisher_delivery", map[string]any{
		"publisher_id": q.id,
		"transition":   t.Summary(),
		"message_id":   aws.ToString(out.MessageId),
	})
	return nil
}

func sqsAttributes(t Transition) map[string]types.MessageAttributeValue {
	attrs := t.Attributes()
	out := make(map[string]types.MessageAttributeValue, len(attrs))
	for k, v := range attrs {
		out[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}
	return out
}
