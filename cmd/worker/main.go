package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yantech/notify-dispatcher/internal/config"
	"github.com/yantech/notify-dispatcher/internal/handler"
	"github.com/yantech/notify-dispatcher/internal/health"
	"github.com/yantech/notify-dispatcher/internal/observability"
	"github.com/yantech/notify-dispatcher/internal/service"
	"github.com/yantech/notify-dispatcher/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("notification dispatcher stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("notification dispatcher stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	recorder := health.NewRecorder(time.Now())
	metrics := observability.NewMetrics()

	deps, err := buildDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	dispatcher, err := service.NewDispatcher(deps.resolver, deps.gateway, deps.deliveryLog, recorder, logger)
	if err != nil {
		return fmt.Errorf("failed to build dispatcher: %w", err)
	}
	dispatcher.SetMetrics(metrics)
	if deps.rateLimiter != nil {
		dispatcher.SetRateLimiter(deps.rateLimiter)
	}

	poller, err := service.NewPoller(deps.receiver, dispatcher, recorder, service.PollerConfig{
		BatchSize:   cfg.PollBatchSize,
		Wait:        cfg.PollWait(),
		Idle:        cfg.PollIdle(),
		MaxBackoff:  cfg.PollMaxBackoff(),
		Concurrency: cfg.WorkerConcurrency,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to build poller: %w", err)
	}
	poller.SetMetrics(metrics)

	monitor, err := service.NewDeadLetterMonitor(deps.deadLetters, recorder, cfg.DLQSampleInterval(), logger)
	if err != nil {
		return fmt.Errorf("failed to build dead-letter monitor: %w", err)
	}
	monitor.SetMetrics(metrics)

	app := transport.NewProbeApp(logger)
	app.Use(metrics.HTTPMiddleware())
	handler.RegisterHealthRoutes(app, recorder, deps.checks...)
	handler.RegisterMetricsRoute(app, metrics)

	logger.Info("notification dispatcher started",
		zap.String("queueBackend", cfg.QueueBackend),
		zap.String("configStore", cfg.ConfigStore),
		zap.String("emailProvider", cfg.EmailProvider),
		zap.String("publishProvider", cfg.PublishProvider),
		zap.Int("healthPort", cfg.HealthPort),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return poller.Run(gctx)
	})
	g.Go(func() error {
		return monitor.Start(gctx)
	})
	g.Go(func() error {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HealthPort)); err != nil {
			return fmt.Errorf("probe server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	return g.Wait()
}
