package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "notification_dispatcher"

// Metrics stores Prometheus collectors used by the poll loop, dispatcher and
// probe server.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	jobsDeliveredTotal     *prometheus.CounterVec
	jobsFailedTotal        *prometheus.CounterVec
	providerSendDuration   *prometheus.HistogramVec
	jobsAcknowledgedTotal  prometheus.Counter
	ackFailuresTotal       prometheus.Counter
	queueFetchErrorsTotal  prometheus.Counter
	pollBackoffSeconds     prometheus.Gauge
	deliveryLogErrorsTotal prometheus.Counter
	deadLetterDepth        prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of probe HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "Probe HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		jobsDeliveredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "jobs_delivered_total",
				Help:      "Total number of jobs delivered to a provider.",
			},
			[]string{"output_type"},
		),
		jobsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "jobs_failed_total",
				Help:      "Total number of failed job attempts by output type, stage, and reason.",
			},
			[]string{"output_type", "stage", "reason"},
		),
		providerSendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "provider_send_duration_seconds",
				Help:      "Provider call duration in seconds grouped by output type.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"output_type"},
		),
		jobsAcknowledgedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "jobs_acknowledged_total",
			Help:      "Total number of jobs removed from the queue after delivery.",
		}),
		ackFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ack_failures_total",
			Help:      "Total number of delivered jobs whose queue acknowledgement failed.",
		}),
		queueFetchErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "queue_fetch_errors_total",
			Help:      "Total number of failed queue fetch attempts.",
		}),
		pollBackoffSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "poll_backoff_seconds",
			Help:      "Current poll loop backoff delay in seconds.",
		}),
		deliveryLogErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "delivery_log_errors_total",
			Help:      "Total number of delivery log writes that failed.",
		}),
		deadLetterDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "dead_letter_queue_depth",
			Help:      "Last sampled number of messages in the dead-letter queue.",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.jobsDeliveredTotal,
		m.jobsFailedTotal,
		m.providerSendDuration,
		m.jobsAcknowledgedTotal,
		m.ackFailuresTotal,
		m.queueFetchErrorsTotal,
		m.pollBackoffSeconds,
		m.deliveryLogErrorsTotal,
		m.deadLetterDepth,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncJobDelivered(outputType string) {
	if m == nil {
		return
	}
	m.jobsDeliveredTotal.WithLabelValues(normalizeLabel(outputType)).Inc()
}

func (m *Metrics) IncJobFailed(outputType string, stage string, reason string) {
	if m == nil {
		return
	}
	m.jobsFailedTotal.WithLabelValues(normalizeLabel(outputType), normalizeLabel(stage), normalizeLabel(reason)).Inc()
}

func (m *Metrics) ObserveProviderSendDuration(outputType string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.providerSendDuration.WithLabelValues(normalizeLabel(outputType)).Observe(seconds)
}

func (m *Metrics) IncJobAcknowledged() {
	if m == nil {
		return
	}
	m.jobsAcknowledgedTotal.Inc()
}

func (m *Metrics) IncAckFailure() {
	if m == nil {
		return
	}
	m.ackFailuresTotal.Inc()
}

func (m *Metrics) IncQueueFetchError() {
	if m == nil {
		return
	}
	m.queueFetchErrorsTotal.Inc()
}

func (m *Metrics) SetPollBackoff(delay time.Duration) {
	if m == nil {
		return
	}
	m.pollBackoffSeconds.Set(delay.Seconds())
}

func (m *Metrics) IncDeliveryLogError() {
	if m == nil {
		return
	}
	m.deliveryLogErrorsTotal.Inc()
}

func (m *Metrics) SetDeadLetterDepth(depth int) {
	if m == nil {
		return
	}
	m.deadLetterDepth.Set(float64(depth))
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
