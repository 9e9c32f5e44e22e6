package publishers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sink types.
const (
	TypeHTTP   = "http"
	TypeSQS    = "sqs"
	TypeSNS    = "sns"
	TypePubSub = "pubsub"
)

const (
	defaultHTTPMethod  = "POST"
	defaultHTTPTimeout = 5
	defaultHTTPRetries = 2
)

// Config declares one sink. Exactly the block matching Type is read.
type Config struct {
	ID      string        `yaml:"id"`
	Type    string        `yaml:"type"`
	Enabled *bool         `yaml:"enabled"`
	HTTP    *HTTPConfig   `yaml:"http"`
	SQS     *SQSConfig    `yaml:"sqs"`
	SNS     *SNSConfig    `yaml:"sns"`
	PubSub  *PubSubConfig `yaml:"pubsub"`
}

// HTTPConfig posts transitions as JSON to a webhook.
type HTTPConfig struct {
	URL            string            `yaml:"url"`
	Method         string            `yaml:"method"`
	Headers        map[string]string `yaml:"headers"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	// Retries applies to transport failures and 5xx answers.
	Retries *int `yaml:"retries"`
}

// AWSCredentials optionally pins static keys instead of the default AWS chain.
type AWSCredentials struct {
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// SQSConfig targets a standard or FIFO queue. FIFO is inferred from the ".fifo" suffix.
type SQSConfig struct {
	QueueURL    string          `yaml:"queue_url"`
	Region      string          `yaml:"region"`
	Credentials *AWSCredentials `yaml:"credentials"`
}

// SNSConfig targets a standard or FIFO topic. FIFO is inferred from the ".fifo" suffix.
type SNSConfig struct {
	TopicARN    string          `yaml:"topic_arn"`
	Region      string          `yaml:"region"`
	Credentials *AWSCredentials `yaml:"credentials"`
}

// PubSubConfig targets a Google Cloud Pub/Sub topic.
type PubSubConfig struct {
	ProjectID       string `yaml:"project_id"`
	Topic           string `yaml:"topic"`
	CredentialsFile string `yaml:"credentials_file"`
}

// IsEnabled reports the enabled flag, defaulting to true.
func (c Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// LoadConfigs reads a `publishers:` list from a YAML file. JSON documents are
// accepted too since they parse as YAML. Unknown keys are rejected.
func LoadConfigs(path string) ([]Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}
	return ParseConfigs(raw)
}

// ParseConfigs decodes, normalizes and validates sink declarations.
func ParseConfigs(raw []byte) ([]Config, error) {
	var doc struct {
		Publishers []Config `yaml:"publishers"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode publishers: %w", err)
	}
	if len(doc.Publishers) == 0 {
		return nil, errors.New("publishers file declares no publishers")
	}

	seen := make(map[string]struct{}, len(doc.Publishers))
	out := make([]Config, 0, len(doc.Publishers))
	var errs []error
	for i, c := range doc.Publishers {
		c.normalize()
		if err := c.validate(); err != nil {
			errs = append(errs, fmt.Errorf("publishers[%d]: %w", i, err))
			continue
		}
		if _, dup := seen[c.ID]; dup {
			errs = append(errs, fmt.Errorf("publishers[%d]: duplicate id %q", i, c.ID))
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// Enabled filters cfgs down to enabled entries.
func Enabled(cfgs []Config) []Config {
	var out []Config
	for _, c := range cfgs {
		if c.IsEnabled() {
			out = append(out, c)
		}
	}
	return out
}

func (c *Config) normalize() {
	c.ID = strings.TrimSpace(c.ID)
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	if h := c.HTTP; h != nil {
		h.URL = strings.TrimSpace(h.URL)
		h.Method = strings.ToUpper(strings.TrimSpace(h.Method))
		if h.Method == "" {
			h.Method = defaultHTTPMethod
		}
		if h.TimeoutSeconds <= 0 {
			h.TimeoutSeconds = defaultHTTPTimeout
		}
		if h.Retries == nil {
			n := defaultHTTPRetries
			h.Retries = &n
		}
	}
	if q := c.SQS; q != nil {
		q.QueueURL = strings.TrimSpace(q.QueueURL)
		q.Region = strings.TrimSpace(q.Region)
	}
	if s := c.SNS; s != nil {
		s.TopicARN = strings.TrimSpace(s.TopicARN)
		s.Region = strings.TrimSpace(s.Region)
	}
	if p := c.PubSub; p != nil {
		p.ProjectID = strings.TrimSpace(p.ProjectID)
		p.Topic = strings.TrimSpace(p.Topic)
		p.CredentialsFile = strings.TrimSpace(p.CredentialsFile)
	}
}

func (c Config) validate() error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	var missing []string
	switch c.Type {
	case TypeHTTP:
		if c.HTTP == nil || c.HTTP.URL == "" {
			missing = append(missing, "http.url")
		} else if *c.HTTP.Retries < 0 {
			return fmt.Errorf("publisher %q: http.retries must not be negative", c.ID)
		}
	case TypeSQS:
		if c.SQS == nil || c.SQS.QueueURL == "" {
			missing = append(missing, "sqs.queue_url")
		}
		if c.SQS == nil || c.SQS.Region == "" {
			missing = append(missing, "sqs.region")
		}
	case TypeSNS:
		if c.SNS == nil || c.SNS.TopicARN == "" {
			missing = append(missing, "sns.topic_arn")
		}
		if c.SNS == nil || c.SNS.Region == "" {
			missing = append(missing, "sns.region")
		}
	case TypePubSub:
		if c.PubSub == nil || c.PubSub.ProjectID == "" {
			missing = append(missing, "pubsub.project_id")
		}
		if c.PubSub == nil || c.PubSub.Topic == "" {
			missing = append(missing, "pubsub.topic")
		}
	case "":
		return fmt.Errorf("publisher %q: type is required", c.ID)
	default:
		return fmt.Errorf("publisher %q: unsupported type %q", c.ID, c.Type)
	}
	if len(missing) > 0 {
		return fmt.Errorf("publisher %q: missing %s", c.ID, strings.Join(missing, ", "))
	}
	return nil
}
