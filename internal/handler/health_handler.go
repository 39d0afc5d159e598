package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/yantech/notify-dispatcher/internal/health"
	"github.com/yantech/notify-dispatcher/internal/observability"
)

const readinessTimeout = 2 * time.Second

// ReadinessCheck is one named dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Pinger is satisfied by queue receivers and repositories that can report
// reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

func PingCheck(name string, pinger Pinger) ReadinessCheck {
	return ReadinessCheck{Name: name, Check: pinger.Ping}
}

func SQLCheck(name string, sqlDB *sql.DB) ReadinessCheck {
	return ReadinessCheck{Name: name, Check: sqlDB.PingContext}
}

func RedisCheck(name string, rdb *redis.Client) ReadinessCheck {
	return ReadinessCheck{Name: name, Check: func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}}
}

func RegisterHealthRoutes(app fiber.Router, recorder *health.Recorder, checks ...ReadinessCheck) {
	app.Get("/livez", LivezHandler())
	app.Get("/readyz", ReadyzHandler(checks...))
	app.Get("/health", HealthHandler(recorder, time.Now))
}

func RegisterMetricsRoute(app fiber.Router, metrics *observability.Metrics) {
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
}

func LivezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

func ReadyzHandler(checks ...ReadinessCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
		defer cancel()

		results := fiber.Map{}
		ready := true
		for _, check := range checks {
			if err := check.Check(ctx); err != nil {
				results[check.Name] = "down"
				ready = false
				continue
			}
			results[check.Name] = "ok"
		}

		status := "ready"
		statusCode := fiber.StatusOK
		if !ready {
			status = "not_ready"
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"checks": results,
		})
	}
}

// HealthHandler reports the worker's counters and always answers 200.
func HealthHandler(recorder *health.Recorder, now func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(recorder.Snapshot(now()))
	}
}
