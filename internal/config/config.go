package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

const (
	QueueBackendSQS      = "sqs"
	QueueBackendRabbitMQ = "rabbitmq"

	StoreDynamoDB = "dynamodb"
	StorePostgres = "postgres"

	EmailProviderSES     = "ses"
	EmailProviderSMTP    = "smtp"
	EmailProviderWebhook = "webhook"

	PublishProviderSNS     = "sns"
	PublishProviderWebhook = "webhook"

	maxBatchSize       = 10
	maxWaitSeconds     = 20
	defaultMaxBackoffS = 60
)

type Config struct {
	LogLevel   string `env:"LOG_LEVEL,default=info"`
	HealthPort int    `env:"HEALTH_PORT,default=8080"`

	QueueBackend          string `env:"QUEUE_BACKEND,default=sqs"`
	SQSQueueURL           string `env:"SQS_QUEUE_URL"`
	SQSDeadLetterURL      string `env:"SQS_DLQ_URL"`
	RabbitMQURL           string `env:"RABBITMQ_URL"`
	RabbitMQQueue         string `env:"RABBITMQ_QUEUE,default=notifications"`
	RabbitMQDeliveryLimit int    `env:"RABBITMQ_DELIVERY_LIMIT,default=5"`

	PollBatchSize         int `env:"POLL_BATCH_SIZE,default=5"`
	PollWaitSeconds       int `env:"POLL_WAIT_SECONDS,default=10"`
	PollIdleMillis        int `env:"POLL_IDLE_MILLIS,default=1000"`
	PollMaxBackoffSeconds int `env:"POLL_MAX_BACKOFF_SECONDS,default=60"`
	WorkerConcurrency     int `env:"WORKER_CONCURRENCY,default=1"`

	AWSRegion      string `env:"AWS_REGION,default=us-east-1"`
	AWSEndpointURL string `env:"AWS_ENDPOINT_URL"`

	ConfigStore       string `env:"CONFIG_STORE,default=dynamodb"`
	ApplicationsTable string `env:"APPLICATIONS_TABLE,default=Applications"`
	RequestLogTable   string `env:"REQUEST_LOG_TABLE,default=RequestLog"`
	DatabaseDSN       string `env:"DATABASE_DSN"`

	RedisURL              string `env:"REDIS_URL"`
	ConfigCacheTTLSeconds int    `env:"CONFIG_CACHE_TTL_SECONDS,default=10"`

	EmailProvider   string `env:"EMAIL_PROVIDER,default=ses"`
	SESFromAddress  string `env:"SES_FROM_ADDRESS,default=notifications@project-dolphin.com"`
	SMTPHost        string `env:"SMTP_HOST"`
	SMTPPort        int    `env:"SMTP_PORT,default=587"`
	SMTPUsername    string `env:"SMTP_USERNAME"`
	SMTPPassword    string `env:"SMTP_PASSWORD"`
	SMTPEncryption  string `env:"SMTP_ENCRYPTION,default=starttls"`
	PublishProvider string `env:"PUBLISH_PROVIDER,default=sns"`
	WebhookURL      string `env:"WEBHOOK_URL"`

	ProviderRateLimitPerSec  int `env:"PROVIDER_RATE_LIMIT_PER_SEC,default=0"`
	DLQSampleIntervalSeconds int `env:"DLQ_SAMPLE_INTERVAL_SECONDS,default=30"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.QueueBackend = strings.ToLower(strings.TrimSpace(c.QueueBackend))
	c.ConfigStore = strings.ToLower(strings.TrimSpace(c.ConfigStore))
	c.EmailProvider = strings.ToLower(strings.TrimSpace(c.EmailProvider))
	c.PublishProvider = strings.ToLower(strings.TrimSpace(c.PublishProvider))

	if c.PollBatchSize < 1 {
		c.PollBatchSize = 1
	}
	if c.PollBatchSize > maxBatchSize {
		c.PollBatchSize = maxBatchSize
	}
	if c.PollWaitSeconds < 0 {
		c.PollWaitSeconds = 0
	}
	if c.PollWaitSeconds > maxWaitSeconds {
		c.PollWaitSeconds = maxWaitSeconds
	}
	if c.PollMaxBackoffSeconds < 1 {
		c.PollMaxBackoffSeconds = defaultMaxBackoffS
	}
	if c.WorkerConcurrency < 1 {
		c.WorkerConcurrency = 1
	}
	if c.ConfigCacheTTLSeconds < 0 {
		c.ConfigCacheTTLSeconds = 0
	}
}

// Validate checks that every selected backend has the settings it needs.
func (c *Config) Validate() error {
	switch c.QueueBackend {
	case QueueBackendSQS:
		if c.SQSQueueURL == "" {
			return fmt.Errorf("SQS_QUEUE_URL is required for queue backend %q", c.QueueBackend)
		}
	case QueueBackendRabbitMQ:
		if c.RabbitMQURL == "" {
			return fmt.Errorf("RABBITMQ_URL is required for queue backend %q", c.QueueBackend)
		}
	default:
		return fmt.Errorf("unsupported QUEUE_BACKEND %q", c.QueueBackend)
	}

	switch c.ConfigStore {
	case StoreDynamoDB:
	case StorePostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for config store %q", c.ConfigStore)
		}
	default:
		return fmt.Errorf("unsupported CONFIG_STORE %q", c.ConfigStore)
	}

	switch c.EmailProvider {
	case EmailProviderSES:
	case EmailProviderSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required for email provider %q", c.EmailProvider)
		}
	case EmailProviderWebhook:
		if c.WebhookURL == "" {
			return fmt.Errorf("WEBHOOK_URL is required for email provider %q", c.EmailProvider)
		}
	default:
		return fmt.Errorf("unsupported EMAIL_PROVIDER %q", c.EmailProvider)
	}

	switch c.PublishProvider {
	case PublishProviderSNS:
	case PublishProviderWebhook:
		if c.WebhookURL == "" {
			return fmt.Errorf("WEBHOOK_URL is required for publish provider %q", c.PublishProvider)
		}
	default:
		return fmt.Errorf("unsupported PUBLISH_PROVIDER %q", c.PublishProvider)
	}

	return nil
}

func (c *Config) PollWait() time.Duration {
	return time.Duration(c.PollWaitSeconds) * time.Second
}

func (c *Config) PollIdle() time.Duration {
	return time.Duration(c.PollIdleMillis) * time.Millisecond
}

func (c *Config) PollMaxBackoff() time.Duration {
	return time.Duration(c.PollMaxBackoffSeconds) * time.Second
}

func (c *Config) ConfigCacheTTL() time.Duration {
	return time.Duration(c.ConfigCacheTTLSeconds) * time.Second
}

func (c *Config) DLQSampleInterval() time.Duration {
	return time.Duration(c.DLQSampleIntervalSeconds) * time.Second
}

// UsesAWS reports whether any selected backend needs AWS credentials.
func (c *Config) UsesAWS() bool {
	return c.QueueBackend == QueueBackendSQS ||
		c.ConfigStore == StoreDynamoDB ||
		c.EmailProvider == EmailProviderSES ||
		c.PublishProvider == PublishProviderSNS
}
