package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the service's collectors and the registry they are exposed from.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	notifications *prometheus.CounterVec
	effects       *prometheus.CounterVec
	viewers       prometheus.Gauge
	connections   prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bunkmate",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bunkmate",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bunkmate",
			Name:      "notifications_total",
			Help:      "Notification dispatch attempts by channel and outcome.",
		}, []string{"channel", "outcome"}),
		effects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bunkmate",
			Name:      "viewer_effects_total",
			Help:      "Side effects applied by conversation viewers.",
		}, []string{"effect", "outcome"}),
		viewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bunkmate",
			Name:      "active_viewers",
			Help:      "Conversation viewers currently subscribed to the store.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bunkmate",
			Name:      "websocket_connections",
			Help:      "Open WebSocket connections.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.notifications,
		m.effects,
		m.viewers,
		m.connections,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records count and latency per matched route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func (m *Metrics) NotificationSent(channel, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) EffectApplied(effect, outcome string) {
	if m == nil {
		return
	}
	m.effects.WithLabelValues(effect, outcome).Inc()
}

func (m *Metrics) ViewerStarted() {
	if m == nil {
		return
	}
	m.viewers.Inc()
}

func (m *Metrics) ViewerStopped() {
	if m == nil {
		return
	}
	m.viewers.Dec()
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}
