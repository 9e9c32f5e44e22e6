package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/samvad-hq/elemental-live/internal/logger"
)

// snsSubjectLimit is the longest Subject SNS accepts.
const snsSubjectLimit = 100

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// topicSink publishes transitions to SNS. Subscribers can filter on the
// transition attributes, and email subscribers see Summary as the subject.
type topicSink struct {
	id       string
	topicARN string
	fifo     bool
	api      snsAPI
	log      logger.Logger
}

func newTopicSink(ctx context.Context, cfg Config, log logger.Logger) (*topicSink, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("publisher %q missing sns configuration", cfg.ID)
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.SNS.Region, cfg.SNS.Credentials)
	if err != nil {
		return nil, fmt.Errorf("publisher %q: load aws config: %w", cfg.ID, err)
	}
	return &topicSink{
		id:       cfg.ID,
		topicARN: cfg.SNS.TopicARN,
		fifo:     strings.HasSuffix(cfg.SNS.TopicARN, ".fifo"),
		api:      sns.NewFromConfig(awsCfg),
		log:      log,
	}, nil
}

func (s *topicSink) ID() string   { return s.id }
func (s *topicSink) Type() string { return TypeSNS }

func (s *topicSink) Send(ctx context.Context, t Transition) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transition: %w", err)
	}

	subject := t.Summary()
	if len(subject) > snsSubjectLimit {
		subject = subject[:snsSubjectLimit]
	}
	attrs := t.Attributes()
	msgAttrs := make(map[string]types.MessageAttributeValue, len(attrs))
	for k, v := range attrs {
		msgAttrs[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}

	in := &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Message:           aws.String(string(payload)),
		Subject:           aws.String(subject),
		MessageAttributes: msgAttrs,
	}
	if s.fifo {
		in.MessageGroupId = aws.String(t.OrderingKey())
		in.MessageDeduplicationId = aws.String(t.DedupeID())
	}

	out, err := s.api.Publish(ctx, in)
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	s.log.DebugObj("sns delivered transition", "publisher_delivery", map[string]any{
		"publisher_id": s.id,
		"transition":   t.Summary(),
		"message_id":   aws.ToString(out.MessageId),
	})
	return nil
}
