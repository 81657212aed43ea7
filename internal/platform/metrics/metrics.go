// Package metrics provides Prometheus metrics for the chartstack server.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	DocumentsGenerated    *prometheus.CounterVec
	DocumentFailures      *prometheus.CounterVec
	ProceduresAutoCreated prometheus.Counter
	EncountersSigned      prometheus.Counter
	RequestDuration       *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates and registers all metrics on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		DocumentsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "documents_generated_total",
			Help: "Total clinical documents generated, by kind",
		}, []string{"kind"}),
		DocumentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "document_failures_total",
			Help: "Total document generation failures, by kind",
		}, []string{"kind"}),
		ProceduresAutoCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "procedures_autocreated_total",
			Help: "Total procedures auto-created by the billing code resolver",
		}),
		EncountersSigned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "encounters_signed_total",
			Help: "Total encounters signed",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "status"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.DocumentsGenerated,
		m.DocumentFailures,
		m.ProceduresAutoCreated,
		m.EncountersSigned,
		m.RequestDuration,
	)

	return m
}

// Handler returns the Prometheus scrape handler for this registry.
func (m *Metrics) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return echo.WrapHandler(h)
}

// Middleware records request durations labeled by method and status.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if httpErr, ok := err.(*echo.HTTPError); ok {
					status = httpErr.Code
				}
			}
			m.RequestDuration.
				WithLabelValues(c.Request().Method, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
