package handler

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/yantech/notify-dispatcher/internal/health"
	"github.com/yantech/notify-dispatcher/internal/observability"
	"github.com/yantech/notify-dispatcher/internal/transport"
	"go.uber.org/zap"
)

func TestHealthRoutes_LivezAndReadyz(t *testing.T) {
	t.Parallel()

	t.Run("livez returns 200", func(t *testing.T) {
		t.Parallel()

		app := newProbeTestApp(t)
		RegisterHealthRoutes(app, health.NewRecorder(time.Now()))

		resp, body := performRequest(t, app, http.MethodGet, "/livez")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz returns 200 when dependencies healthy", func(t *testing.T) {
		t.Parallel()

		sqlDB := sql.OpenDB(stubConnector{})
		t.Cleanup(func() { _ = sqlDB.Close() })

		rdb := newStubRedisClient(nil)
		t.Cleanup(func() { _ = rdb.Close() })

		app := newProbeTestApp(t)
		RegisterHealthRoutes(app, health.NewRecorder(time.Now()),
			SQLCheck("postgres", sqlDB),
			RedisCheck("redis", rdb),
			PingCheck("queue", stubPinger{}),
		)

		resp, body := performRequest(t, app, http.MethodGet, "/readyz")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}

		var parsed struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			t.Fatalf("json unmarshal error = %v", err)
		}
		if parsed.Status != "ready" {
			t.Fatalf("status = %s, want ready", parsed.Status)
		}
		for _, name := range []string{"postgres", "redis", "queue"} {
			if parsed.Checks[name] != "ok" {
				t.Fatalf("checks[%s] = %q, want ok", name, parsed.Checks[name])
			}
		}
	})

	t.Run("readyz returns 503 when dependencies down", func(t *testing.T) {
		t.Parallel()

		sqlDB := sql.OpenDB(stubConnector{pingErr: errors.New("postgres down")})
		t.Cleanup(func() { _ = sqlDB.Close() })

		rdb := newStubRedisClient(errors.New("redis down"))
		t.Cleanup(func() { _ = rdb.Close() })

		app := newProbeTestApp(t)
		RegisterHealthRoutes(app, health.NewRecorder(time.Now()),
			SQLCheck("postgres", sqlDB),
			RedisCheck("redis", rdb),
			PingCheck("queue", stubPinger{err: errors.New("queue down")}),
		)

		resp, body := performRequest(t, app, http.MethodGet, "/readyz")
		if resp.StatusCode != fiber.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503, body=%s", resp.StatusCode, string(body))
		}
		if !strings.Contains(string(body), `"queue":"down"`) {
			t.Fatalf("body = %s, want queue down", string(body))
		}
	})
}

func TestHealthHandlerReturnsSnapshot(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := start.Add(90 * time.Second)

	recorder := health.NewRecorder(start)
	recorder.RecordProcessed(start.Add(30 * time.Second))
	recorder.RecordError()
	recorder.SetDeadLetterDepth(2)

	app := newProbeTestApp(t)
	app.Get("/health", HealthHandler(recorder, func() time.Time { return now }))

	resp, body := performRequest(t, app, http.MethodGet, "/health")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var snapshot health.Snapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if snapshot.Status != health.StatusHealthy {
		t.Fatalf("status = %s, want healthy", snapshot.Status)
	}
	if snapshot.UptimeSeconds != 90 {
		t.Fatalf("uptimeSeconds = %v, want 90", snapshot.UptimeSeconds)
	}
	if snapshot.MessagesProcessed != 1 || snapshot.ErrorsCount != 1 || snapshot.DLQMessagesCount != 2 {
		t.Fatalf("snapshot = %+v", snapshot)
	}
	if snapshot.LastMessageProcessedAt == nil || !snapshot.LastMessageProcessedAt.Equal(start.Add(30*time.Second)) {
		t.Fatalf("lastMessageProcessedAt = %v", snapshot.LastMessageProcessedAt)
	}
}

func TestMetricsRouteServesRegistry(t *testing.T) {
	t.Parallel()

	metrics := observability.NewMetrics()
	metrics.IncJobDelivered("sms")

	app := newProbeTestApp(t)
	RegisterMetricsRoute(app, metrics)

	resp, body := performRequest(t, app, http.MethodGet, "/metrics")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), `notification_dispatcher_jobs_delivered_total{output_type="sms"} 1`) {
		t.Fatalf("metrics body missing delivered counter:\n%s", string(body))
	}
}

func newProbeTestApp(t *testing.T) *fiber.App {
	t.Helper()
	return transport.NewProbeApp(zap.NewNop())
}

func performRequest(t *testing.T, app *fiber.App, method string, path string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubConnector struct {
	pingErr error
}

func (c stubConnector) Connect(context.Context) (driver.Conn, error) {
	return stubConn(c), nil
}

func (c stubConnector) Driver() driver.Driver {
	return stubDriver(c)
}

type stubDriver struct {
	pingErr error
}

func (d stubDriver) Open(string) (driver.Conn, error) {
	return stubConn(d), nil
}

type stubConn struct {
	pingErr error
}

func (c stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c stubConn) Close() error                        { return nil }
func (c stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }
func (c stubConn) Ping(context.Context) error          { return c.pingErr }

type stubRedisHook struct {
	pingErr error
}

func (h stubRedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h stubRedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if strings.EqualFold(cmd.Name(), "ping") && h.pingErr != nil {
			cmd.SetErr(h.pingErr)
			return h.pingErr
		}
		cmd.SetErr(nil)
		return nil
	}
}

func (h stubRedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			cmd.SetErr(nil)
		}
		return nil
	}
}

func newStubRedisClient(pingErr error) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:6379",
		DialTimeout:  time.Millisecond,
		ReadTimeout:  time.Millisecond,
		WriteTimeout: time.Millisecond,
	})
	rdb.AddHook(stubRedisHook{pingErr: pingErr})
	return rdb
}
