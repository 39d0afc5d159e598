package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yantech/notify-dispatcher/internal/domain"
	"github.com/yantech/notify-dispatcher/internal/health"
	"github.com/yantech/notify-dispatcher/internal/observability"
	"github.com/yantech/notify-dispatcher/internal/provider"
	"github.com/yantech/notify-dispatcher/internal/queue"
	"github.com/yantech/notify-dispatcher/internal/ratelimit"
	"github.com/yantech/notify-dispatcher/internal/repository"
	"go.uber.org/zap"
)

// Dispatcher processes a single queued job: parse, resolve the application's
// configuration, route to the provider gateway and record the outcome.
type Dispatcher struct {
	resolver    repository.ConfigResolver
	gateway     provider.Gateway
	deliveryLog repository.DeliveryLog
	health      *health.Recorder
	rateLimiter ratelimit.RateLimiter
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

func NewDispatcher(
	resolver repository.ConfigResolver,
	gateway provider.Gateway,
	deliveryLog repository.DeliveryLog,
	recorder *health.Recorder,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if resolver == nil {
		return nil, fmt.Errorf("config resolver is required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("provider gateway is required")
	}
	if deliveryLog == nil {
		return nil, fmt.Errorf("delivery log is required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("health recorder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		resolver:    resolver,
		gateway:     gateway,
		deliveryLog: deliveryLog,
		health:      recorder,
		logger:      logger,
		now:         time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// SetRateLimiter throttles provider calls per output type. A nil limiter
// disables throttling.
func (d *Dispatcher) SetRateLimiter(limiter ratelimit.RateLimiter) {
	if d == nil {
		return
	}
	d.rateLimiter = limiter
}

// Process handles one job. A nil error means the provider accepted the
// notification and the caller may acknowledge the message; any error is a
// *JobError and the message must be left in the queue.
func (d *Dispatcher) Process(ctx context.Context, msg queue.Message) error {
	ctx = observability.WithCorrelationID(ctx, msg.ID)

	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = d.now().UTC()
	}

	job, err := domain.DecodeJob(msg.Body, receivedAt)
	if err == nil {
		err = job.Validate()
	}
	if err != nil {
		applicationID := domain.UnknownApplication
		outputType := ""
		if job != nil {
			if job.ApplicationID != "" {
				applicationID = job.ApplicationID
			}
			outputType = job.OutputType.String()
		}
		logger := observability.JobLogger(d.logger, ctx, "", outputType)
		return d.fail(ctx, logger, applicationID, outputType, string(msg.Body), newJobError(StageParse, err))
	}

	outputType := job.OutputType.String()
	logger := observability.JobLogger(d.logger, ctx, job.ApplicationID, outputType)
	payload := job.Payload()

	cfg, jobErr := d.resolve(ctx, job.ApplicationID)
	if jobErr != nil {
		return d.fail(ctx, logger, job.ApplicationID, outputType, payload, jobErr)
	}

	messageID, jobErr := d.route(ctx, job, cfg)
	if jobErr != nil {
		return d.fail(ctx, logger, job.ApplicationID, outputType, payload, jobErr)
	}

	d.appendRecord(ctx, logger, domain.DeliveryRecord{
		ApplicationID: job.ApplicationID,
		Timestamp:     d.now().UTC(),
		Status:        domain.DeliveryDelivered,
		Payload:       payload,
	})
	d.health.RecordProcessed(d.now())
	d.metrics.IncJobDelivered(outputType)

	logger.Info("notification delivered",
		zap.String("providerMessageId", messageID),
		zap.Int("recipients", len(job.RecipientAddresses)),
		zap.Int("receiveCount", msg.ReceiveCount),
	)
	return nil
}

func (d *Dispatcher) resolve(ctx context.Context, applicationID string) (*domain.ApplicationConfig, *JobError) {
	cfg, err := d.resolver.Resolve(ctx, applicationID)
	if err != nil {
		return nil, newJobError(StageResolve, fmt.Errorf("failed to resolve application config: %w", err))
	}
	if cfg == nil {
		return nil, newJobError(StageResolve, fmt.Errorf("application config %w for %q", domain.ErrNotFound, applicationID))
	}
	if !cfg.IsActive() {
		return nil, newJobError(StageResolve, fmt.Errorf("%w: %q", domain.ErrApplicationSuspended, applicationID))
	}
	return cfg, nil
}

func (d *Dispatcher) route(ctx context.Context, job *domain.NotificationJob, cfg *domain.ApplicationConfig) (string, *JobError) {
	switch job.OutputType {
	case domain.OutputEmail:
		if len(job.RecipientAddresses) == 0 {
			return "", newJobError(StageRoute, fmt.Errorf("%w: EMAIL requires at least one recipient", domain.ErrValidation))
		}
		return d.callProvider(ctx, job.OutputType, func(ctx context.Context) (string, error) {
			return d.gateway.SendEmail(ctx, cfg.EmailSenderIdentity, job.RecipientAddresses, job.Subject, job.Message)
		})
	case domain.OutputSMS:
		return d.callProvider(ctx, job.OutputType, func(ctx context.Context) (string, error) {
			return d.gateway.Publish(ctx, cfg.NotificationTopic, "", job.Message)
		})
	case domain.OutputPush:
		return d.callProvider(ctx, job.OutputType, func(ctx context.Context) (string, error) {
			return d.gateway.Publish(ctx, cfg.NotificationTopic, job.Subject, job.Message)
		})
	default:
		return "", newJobError(StageRoute, fmt.Errorf("%w: %q", domain.ErrUnsupportedOutputType, job.OutputType))
	}
}

func (d *Dispatcher) callProvider(ctx context.Context, outputType domain.OutputType, send func(ctx context.Context) (string, error)) (string, *JobError) {
	if d.rateLimiter != nil {
		if err := d.rateLimiter.Wait(ctx, strings.ToLower(outputType.String())); err != nil {
			return "", newJobError(StageRateLimit, fmt.Errorf("rate limiter wait failed: %w", err))
		}
	}

	start := d.now()
	messageID, err := send(ctx)
	d.metrics.ObserveProviderSendDuration(outputType.String(), d.now().Sub(start))
	if err != nil {
		return "", newJobError(StageProvider, err)
	}
	return messageID, nil
}

// fail writes the Failed record before touching health counters.
func (d *Dispatcher) fail(ctx context.Context, logger *zap.Logger, applicationID string, outputType string, payload string, jobErr *JobError) error {
	d.appendRecord(ctx, logger, domain.DeliveryRecord{
		ApplicationID: applicationID,
		Timestamp:     d.now().UTC(),
		Status:        domain.DeliveryFailed,
		Payload:       payload,
		Error:         jobErr.Error(),
	})
	d.health.RecordError()

	reason := failureReason(jobErr)
	d.metrics.IncJobFailed(outputType, string(jobErr.Stage), reason)

	logger.Warn("notification failed; leaving message in queue",
		zap.String("stage", string(jobErr.Stage)),
		zap.String("reason", reason),
		zap.Error(jobErr),
	)
	return jobErr
}

func (d *Dispatcher) appendRecord(ctx context.Context, logger *zap.Logger, record domain.DeliveryRecord) {
	if err := d.deliveryLog.Append(ctx, record); err != nil {
		d.metrics.IncDeliveryLogError()
		logger.Error("failed to append delivery log",
			zap.String("status", record.Status.String()),
			zap.Error(err),
		)
	}
}
