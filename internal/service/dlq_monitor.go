package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yantech/notify-dispatcher/internal/health"
	"github.com/yantech/notify-dispatcher/internal/observability"
	"github.com/yantech/notify-dispatcher/internal/queue"
	"go.uber.org/zap"
)

const defaultDLQSampleInterval = 30 * time.Second

// DeadLetterMonitor periodically samples the dead-letter queue depth into the
// health recorder and metrics.
type DeadLetterMonitor struct {
	counter  queue.DeadLetterCounter
	health   *health.Recorder
	metrics  *observability.Metrics
	logger   *zap.Logger
	interval time.Duration

	lastDepth int
}

func NewDeadLetterMonitor(
	counter queue.DeadLetterCounter,
	recorder *health.Recorder,
	interval time.Duration,
	logger *zap.Logger,
) (*DeadLetterMonitor, error) {
	if counter == nil {
		return nil, fmt.Errorf("dead-letter counter is required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("health recorder is required")
	}
	if interval <= 0 {
		interval = defaultDLQSampleInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeadLetterMonitor{
		counter:  counter,
		health:   recorder,
		logger:   logger,
		interval: interval,
	}, nil
}

func (m *DeadLetterMonitor) SetMetrics(metrics *observability.Metrics) {
	if m == nil {
		return
	}
	m.metrics = metrics
}

// Start samples once immediately and then on every tick until ctx is done.
func (m *DeadLetterMonitor) Start(ctx context.Context) error {
	m.logger.Info("dead-letter monitor started", zap.Duration("interval", m.interval))

	if err := m.Sample(ctx); err != nil && ctx.Err() == nil {
		m.logger.Error("dead-letter sample failed", zap.Error(err))
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("dead-letter monitor stopped")
			return nil
		case <-ticker.C:
			if err := m.Sample(ctx); err != nil && ctx.Err() == nil {
				m.logger.Error("dead-letter sample failed", zap.Error(err))
			}
		}
	}
}

// Sample reads the dead-letter depth once. On error the previous value is kept.
func (m *DeadLetterMonitor) Sample(ctx context.Context) error {
	depth, err := m.counter.DeadLetterDepth(ctx)
	if err != nil {
		return fmt.Errorf("failed to read dead-letter depth: %w", err)
	}

	m.health.SetDeadLetterDepth(depth)
	m.metrics.SetDeadLetterDepth(depth)

	if depth > m.lastDepth {
		m.logger.Warn("dead-letter queue grew",
			zap.Int("previous", m.lastDepth),
			zap.Int("depth", depth),
		)
	}
	m.lastDepth = depth
	return nil
}
