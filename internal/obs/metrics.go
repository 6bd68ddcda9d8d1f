// Package obs expone las metricas de Prometheus del servicio.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"multiauth/internal/domain"
)

// Resultados de una operacion de autenticacion.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeError   = "error"
)

// Metrics agrupa los collectors; un *Metrics nil no registra nada.
type Metrics struct {
	authTotal    *prometheus.CounterVec
	authDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
	httpTotal    *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		authTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_operations_total",
				Help: "Authentication operations by operation, provider and outcome.",
			},
			[]string{"operation", "provider", "outcome"},
		),
		authDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auth_operation_duration_seconds",
				Help:    "Authentication operation latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.authTotal, m.authDuration, m.httpInFlight, m.httpTotal, m.httpDuration)
	}
	return m
}

// Outcome clasifica el resultado de una operacion para la etiqueta outcome.
func Outcome(res domain.AuthResult, err error) string {
	switch {
	case err != nil:
		return OutcomeError
	case res.Success:
		return OutcomeSuccess
	default:
		return OutcomeFailed
	}
}

func (m *Metrics) ObserveAuth(operation string, provider domain.Provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.authTotal.WithLabelValues(operation, string(provider), outcome).Inc()
	m.authDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// Middleware mide RPS, latencia y peticiones en vuelo usando la ruta de gin como etiqueta.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		m.httpInFlight.Inc()
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.httpDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		m.httpTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpInFlight.Dec()
	}
}

// Handler sirve las metricas del gatherer dado.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
