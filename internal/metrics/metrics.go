// Package metrics exposes Prometheus metrics for the API server.
package metrics

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/couchers-org/couchers-backend/internal/models"
	"github.com/couchers-org/couchers-backend/internal/visibility"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type Metrics struct {
	reg *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

var requestLabels = []string{"method", "route", "status"}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		reg: reg,

		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "couchers_http_requests_total",
				Help: "HTTP requests handled.",
			}, requestLabels,
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "couchers_http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			}, requestLabels,
		),
	}
}

// RegisterUserGauges adds gauges that count users at scrape time.
func (m *Metrics) RegisterUserGauges(db *gorm.DB) {
	count := func(name string, scope func(*gorm.DB) *gorm.DB) func() float64 {
		return func() float64 {
			var n int64
			q := db.Model(&models.User{})
			if scope != nil {
				q = q.Scopes(scope)
			}
			if err := q.Count(&n).Error; err != nil {
				slog.Warn("failed to collect user gauge", "gauge", name, "error", err)
				return 0
			}
			return float64(n)
		}
	}

	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "couchers_users_total",
		Help: "Registered users.",
	}, count("total", nil))
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "couchers_users_visible",
		Help: "Users that are not banned, deleted or invisible.",
	}, count("visible", visibility.UsersVisibleNoViewer()))
}

// Middleware records request counts and latency, labelled by route pattern.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := c.Route().Path
		labels := []string{c.Method(), route, strconv.Itoa(status)}
		m.requestsTotal.WithLabelValues(labels...).Inc()
		m.requestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg}))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}
