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

// Metrics stores Prometheus collectors used by the API, scheduler, and
// router flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal        *prometheus.CounterVec
	httpRequestDuration      *prometheus.HistogramVec
	notificationsTotal       *prometheus.CounterVec
	notificationFailureTotal *prometheus.CounterVec
	notificationSendDuration *prometheus.HistogramVec
	ordersPromotedTotal      prometheus.Counter
	promotionRunsTotal       *prometheus.CounterVec
	promotionRunDuration     prometheus.Histogram
	routerEventsTotal        *prometheus.CounterVec
	routerInflight           *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "order_dispatch",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "order_dispatch",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		notificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "order_dispatch",
				Name:      "notifications_total",
				Help:      "Total number of dispatch attempts by audience and outcome.",
			},
			[]string{"audience", "outcome"},
		),
		notificationFailureTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "order_dispatch",
				Name:      "notification_failures_total",
				Help:      "Total number of failed sends by audience and failure reason.",
			},
			[]string{"audience", "reason"},
		),
		notificationSendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "order_dispatch",
				Name:      "notification_send_duration_seconds",
				Help:      "Push channel send duration in seconds grouped by audience.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"audience"},
		),
		ordersPromotedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "order_dispatch",
				Name:      "orders_promoted_total",
				Help:      "Total number of orders promoted from pending to sent.",
			},
		),
		promotionRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "order_dispatch",
				Name:      "promotion_runs_total",
				Help:      "Total number of promotion runs by result.",
			},
			[]string{"result"},
		),
		promotionRunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "order_dispatch",
				Name:      "promotion_run_duration_seconds",
				Help:      "Duration of one promotion run in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		routerEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "order_dispatch",
				Name:      "router_events_total",
				Help:      "Total number of routed change events by collection and result.",
			},
			[]string{"collection", "result"},
		),
		routerInflight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "order_dispatch",
				Name:      "router_inflight",
				Help:      "Current number of in-flight change events grouped by queue.",
			},
			[]string{"queue"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.notificationsTotal,
		m.notificationFailureTotal,
		m.notificationSendDuration,
		m.ordersPromotedTotal,
		m.promotionRunsTotal,
		m.promotionRunDuration,
		m.routerEventsTotal,
		m.routerInflight,
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

func (m *Metrics) IncNotificationOutcome(audience string, outcome string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(normalizeLabel(audience), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncNotificationFailure(audience string, reason string) {
	if m == nil {
		return
	}
	reasonLabel := normalizeLabel(reason)
	if reasonLabel == "unknown" {
		reasonLabel = "unclassified"
	}
	m.notificationFailureTotal.WithLabelValues(normalizeLabel(audience), reasonLabel).Inc()
}

func (m *Metrics) ObserveSendDuration(audience string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.notificationSendDuration.WithLabelValues(normalizeLabel(audience)).Observe(seconds)
}

func (m *Metrics) AddOrdersPromoted(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.ordersPromotedTotal.Add(float64(count))
}

func (m *Metrics) IncPromotionRun(result string) {
	if m == nil {
		return
	}
	m.promotionRunsTotal.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *Metrics) ObservePromotionDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.promotionRunDuration.Observe(seconds)
}

func (m *Metrics) IncRouterEvent(collection string, result string) {
	if m == nil {
		return
	}
	m.routerEventsTotal.WithLabelValues(normalizeLabel(collection), normalizeLabel(result)).Inc()
}

func (m *Metrics) IncRouterInFlight(queue string) {
	if m == nil {
		return
	}
	m.routerInflight.WithLabelValues(normalizeLabel(queue)).Inc()
}

func (m *Metrics) DecRouterInFlight(queue string) {
	if m == nil {
		return
	}
	m.routerInflight.WithLabelValues(normalizeLabel(queue)).Dec()
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
