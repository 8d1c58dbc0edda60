// Package metrics owns the Prometheus registry and the counters the service
// layer and HTTP middleware record into.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	AuthOperations *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	RevokedSwept   prometheus.Counter
}

// New creates a private registry with Go/process collectors and the app
// counters registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		AuthOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novel_tts_auth_operations_total",
				Help: "Total number of auth operations by operation and result",
			},
			[]string{"operation", "result"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novel_tts_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		RevokedSwept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "novel_tts_revoked_tokens_swept_total",
				Help: "Total number of expired revocation entries deleted",
			},
		),
	}

	registry.MustRegister(m.AuthOperations, m.HTTPRequests, m.RevokedSwept)
	return m
}

// ObserveAuth is safe to call on a nil *Metrics.
func (m *Metrics) ObserveAuth(operation, result string) {
	if m == nil {
		return
	}
	m.AuthOperations.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) ObserveSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.RevokedSwept.Add(float64(n))
}

func (m *Metrics) ObserveHTTP(method, route, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
