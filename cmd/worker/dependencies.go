package main

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/yantech/notify-dispatcher/internal/config"
	"github.com/yantech/notify-dispatcher/internal/handler"
	"github.com/yantech/notify-dispatcher/internal/infra/awsconfig"
	"github.com/yantech/notify-dispatcher/internal/infra/postgresql"
	"github.com/yantech/notify-dispatcher/internal/infra/postgresql/migrations"
	infraredis "github.com/yantech/notify-dispatcher/internal/infra/redis"
	"github.com/yantech/notify-dispatcher/internal/provider"
	"github.com/yantech/notify-dispatcher/internal/queue"
	"github.com/yantech/notify-dispatcher/internal/ratelimit"
	"github.com/yantech/notify-dispatcher/internal/repository"
	"go.uber.org/zap"
)

type dependencies struct {
	receiver    queue.Receiver
	deadLetters queue.DeadLetterCounter
	resolver    repository.ConfigResolver
	deliveryLog repository.DeliveryLog
	gateway     provider.Gateway
	rateLimiter ratelimit.RateLimiter
	checks      []handler.ReadinessCheck

	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

func (d *dependencies) onClose(name string, fn func() error) {
	d.closers = append(d.closers, namedCloser{name: name, close: fn})
}

// close releases resources in reverse order of acquisition.
func (d *dependencies) close(logger *zap.Logger) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		c := d.closers[i]
		if err := c.close(); err != nil {
			logger.Warn("failed to close dependency", zap.String("dependency", c.name), zap.Error(err))
		}
	}
}

func buildDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *dependencies, err error) {
	deps := &dependencies{}
	defer func() {
		if err != nil {
			deps.close(logger)
		}
	}()

	var aws *awsconfig.Clients
	if cfg.UsesAWS() {
		awsCfg, err := awsconfig.Load(ctx, cfg.AWSRegion, cfg.AWSEndpointURL)
		if err != nil {
			return nil, err
		}
		aws = awsconfig.NewClients(awsCfg)
	}

	if err := deps.buildQueue(ctx, cfg, aws, logger); err != nil {
		return nil, err
	}
	if err := deps.buildStore(ctx, cfg, aws); err != nil {
		return nil, err
	}

	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		rdb, err = infraredis.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis initialization failed: %w", err)
		}
		deps.onClose("redis", rdb.Close)
		deps.checks = append(deps.checks, handler.RedisCheck("redis", rdb))

		if ttl := cfg.ConfigCacheTTL(); ttl > 0 {
			cached, err := infraredis.NewCachedConfigResolver(deps.resolver, rdb, ttl, logger)
			if err != nil {
				return nil, err
			}
			deps.resolver = cached
		}
	}

	if err := deps.buildRateLimiter(cfg, rdb); err != nil {
		return nil, err
	}
	if err := deps.buildGateway(cfg, aws); err != nil {
		return nil, err
	}

	return deps, nil
}

func (d *dependencies) buildQueue(ctx context.Context, cfg *config.Config, aws *awsconfig.Clients, logger *zap.Logger) error {
	switch cfg.QueueBackend {
	case config.QueueBackendSQS:
		receiver, err := queue.NewSQSReceiver(aws.SQS, cfg.SQSQueueURL, cfg.SQSDeadLetterURL)
		if err != nil {
			return err
		}
		d.receiver = receiver
		d.deadLetters = receiver
		d.checks = append(d.checks, handler.PingCheck("sqs", receiver))
		d.onClose("sqs", receiver.Close)
	case config.QueueBackendRabbitMQ:
		client, err := queue.NewRabbitMQ(ctx, cfg.RabbitMQURL, cfg.RabbitMQQueue, cfg.RabbitMQDeliveryLimit)
		if err != nil {
			return fmt.Errorf("rabbitmq initialization failed: %w", err)
		}
		receiver := queue.NewRabbitMQReceiver(client, cfg.PollBatchSize, logger)
		d.receiver = receiver
		d.deadLetters = receiver
		d.checks = append(d.checks, handler.PingCheck("rabbitmq", receiver))
		d.onClose("rabbitmq", receiver.Close)
	default:
		return fmt.Errorf("unsupported queue backend %q", cfg.QueueBackend)
	}
	return nil
}

func (d *dependencies) buildStore(ctx context.Context, cfg *config.Config, aws *awsconfig.Clients) error {
	switch cfg.ConfigStore {
	case config.StoreDynamoDB:
		applications, err := repository.NewDynamoApplicationRepo(aws.DynamoDB, cfg.ApplicationsTable)
		if err != nil {
			return err
		}
		deliveryLog, err := repository.NewDynamoDeliveryLogRepo(aws.DynamoDB, cfg.RequestLogTable)
		if err != nil {
			return err
		}
		d.resolver = applications
		d.deliveryLog = deliveryLog
		d.checks = append(d.checks, handler.PingCheck("dynamodb", applications))
	case config.StorePostgres:
		db, err := postgresql.NewPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("postgres initialization failed: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("postgres underlying db init failed: %w", err)
		}
		d.onClose("postgres", sqlDB.Close)

		if err := migrations.Migrate(db); err != nil {
			return fmt.Errorf("database migrations failed: %w", err)
		}

		d.resolver = repository.NewGormApplicationRepo(db)
		d.deliveryLog = repository.NewGormDeliveryLogRepo(db)
		d.checks = append(d.checks, handler.SQLCheck("postgres", sqlDB))
	default:
		return fmt.Errorf("unsupported config store %q", cfg.ConfigStore)
	}
	return nil
}

// buildRateLimiter leaves the limiter nil when no rate is configured. A Redis
// limiter is shared by every worker process; the local one is per process.
func (d *dependencies) buildRateLimiter(cfg *config.Config, rdb *goredis.Client) error {
	if cfg.ProviderRateLimitPerSec <= 0 {
		return nil
	}

	if rdb != nil {
		limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.ProviderRateLimitPerSec)
		if err != nil {
			return err
		}
		d.rateLimiter = limiter
		return nil
	}

	limiter, err := ratelimit.NewLocalRateLimiter(cfg.ProviderRateLimitPerSec)
	if err != nil {
		return err
	}
	d.rateLimiter = limiter
	return nil
}

func (d *dependencies) buildGateway(cfg *config.Config, aws *awsconfig.Clients) error {
	var webhook *provider.WebhookProvider
	if cfg.EmailProvider == config.EmailProviderWebhook || cfg.PublishProvider == config.PublishProviderWebhook {
		var err error
		webhook, err = provider.NewWebhookProvider(cfg.WebhookURL)
		if err != nil {
			return err
		}
	}

	var email provider.EmailSender
	switch cfg.EmailProvider {
	case config.EmailProviderSES:
		sender, err := provider.NewSESEmailSender(aws.SES, cfg.SESFromAddress)
		if err != nil {
			return err
		}
		email = sender
	case config.EmailProviderSMTP:
		sender, err := provider.NewSMTPEmailSender(provider.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			Encryption:  cfg.SMTPEncryption,
			FromAddress: cfg.SESFromAddress,
		})
		if err != nil {
			return err
		}
		email = sender
	case config.EmailProviderWebhook:
		email = webhook
	default:
		return fmt.Errorf("unsupported email provider %q", cfg.EmailProvider)
	}

	var publisher provider.TopicPublisher
	switch cfg.PublishProvider {
	case config.PublishProviderSNS:
		sns, err := provider.NewSNSPublisher(aws.SNS)
		if err != nil {
			return err
		}
		publisher = sns
	case config.PublishProviderWebhook:
		publisher = webhook
	default:
		return fmt.Errorf("unsupported publish provider %q", cfg.PublishProvider)
	}

	gateway, err := provider.Compose(email, publisher)
	if err != nil {
		return err
	}
	d.gateway = gateway
	return nil
}
