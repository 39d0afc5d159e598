package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yantech/notify-dispatcher/internal/health"
	"github.com/yantech/notify-dispatcher/internal/observability"
	"github.com/yantech/notify-dispatcher/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPollBatchSize  = 5
	defaultPollWait       = 10 * time.Second
	defaultPollIdle       = time.Second
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 60 * time.Second
)

// JobProcessor handles one queued message. A nil error allows the message to
// be acknowledged.
type JobProcessor interface {
	Process(ctx context.Context, msg queue.Message) error
}

type PollerConfig struct {
	BatchSize   int
	Wait        time.Duration
	Idle        time.Duration
	MaxBackoff  time.Duration
	Concurrency int
}

// Poller is the worker's main loop. It long-polls the queue in batches, hands
// every message to the processor and acknowledges only delivered jobs.
type Poller struct {
	receiver  queue.Receiver
	processor JobProcessor
	health    *health.Recorder
	metrics   *observability.Metrics
	logger    *zap.Logger

	batchSize   int
	wait        time.Duration
	idle        time.Duration
	concurrency int
	backoff     Backoff

	sleep func(ctx context.Context, d time.Duration)
}

func NewPoller(
	receiver queue.Receiver,
	processor JobProcessor,
	recorder *health.Recorder,
	cfg PollerConfig,
	logger *zap.Logger,
) (*Poller, error) {
	if receiver == nil {
		return nil, fmt.Errorf("queue receiver is required")
	}
	if processor == nil {
		return nil, fmt.Errorf("job processor is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultPollBatchSize
	}
	if cfg.Wait < 0 {
		cfg.Wait = defaultPollWait
	}
	if cfg.Idle <= 0 {
		cfg.Idle = defaultPollIdle
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	return &Poller{
		receiver:    receiver,
		processor:   processor,
		health:      recorder,
		logger:      logger,
		batchSize:   queue.ClampBatch(cfg.BatchSize),
		wait:        queue.ClampWait(cfg.Wait),
		idle:        cfg.Idle,
		concurrency: cfg.Concurrency,
		backoff:     NewBackoff(defaultInitialBackoff, cfg.MaxBackoff),
		sleep:       sleepContext,
	}, nil
}

func (p *Poller) SetMetrics(metrics *observability.Metrics) {
	if p == nil {
		return
	}
	p.metrics = metrics
}

// Run polls until ctx is cancelled. Cancellation is observed between
// iterations; a job already handed to the processor runs to completion
// together with its acknowledgement.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poll loop started",
		zap.Int("batchSize", p.batchSize),
		zap.Duration("wait", p.wait),
		zap.Int("concurrency", p.concurrency),
	)

	for {
		if ctx.Err() != nil {
			p.logger.Info("poll loop stopped")
			return nil
		}
		p.pollOnce(ctx)
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	messages, err := p.receiver.Receive(ctx, p.batchSize, p.wait)
	if err != nil {
		if ctx.Err() != nil {
			return
		}

		delay := p.backoff.Next()
		p.health.RecordError()
		p.metrics.IncQueueFetchError()
		p.metrics.SetPollBackoff(delay)
		p.logger.Error("failed to receive from queue; backing off",
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		p.sleep(ctx, delay)
		return
	}

	if p.backoff.Current() != defaultInitialBackoff {
		p.logger.Info("queue receive recovered")
	}
	p.backoff.Reset()
	p.metrics.SetPollBackoff(0)

	if len(messages) == 0 {
		p.sleep(ctx, p.idle)
		return
	}

	p.processBatch(ctx, messages)
}

func (p *Poller) processBatch(ctx context.Context, messages []queue.Message) {
	jobCtx := context.WithoutCancel(ctx)

	if p.concurrency == 1 {
		for i, msg := range messages {
			if ctx.Err() != nil {
				p.logger.Info("shutdown requested; leaving remaining jobs in queue", zap.Int("remaining", len(messages)-i))
				return
			}
			p.handle(jobCtx, msg)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, msg := range messages {
		if ctx.Err() != nil {
			p.logger.Info("shutdown requested; leaving remaining jobs in queue", zap.Int("remaining", len(messages)-i))
			break
		}
		g.Go(func() error {
			p.handle(jobCtx, msg)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Poller) handle(ctx context.Context, msg queue.Message) {
	if err := p.processor.Process(ctx, msg); err != nil {
		return
	}

	if err := p.receiver.Ack(ctx, msg); err != nil {
		p.health.RecordError()
		p.metrics.IncAckFailure()
		p.logger.Error("failed to acknowledge delivered job; it will be redelivered",
			zap.String("messageId", msg.ID),
			zap.Error(err),
		)
		return
	}
	p.metrics.IncJobAcknowledged()
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
