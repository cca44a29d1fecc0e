// Package metrics exposes Prometheus instrumentation for the HTTP surface,
// sessions and timers.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the application records into.
type Metrics struct {
	registry *prometheus.Registry

	// HTTPRequests counts finished requests by method, route and status.
	HTTPRequests *prometheus.CounterVec
	// HTTPDuration tracks request latency in seconds.
	HTTPDuration *prometheus.HistogramVec

	// LoginAttempts counts logins by result (success, invalid, error).
	LoginAttempts *prometheus.CounterVec
	// Signups counts signups by outcome (created, existing).
	Signups *prometheus.CounterVec

	SessionsCreated prometheus.Counter
	SessionsDeleted prometheus.Counter

	TimersStarted prometheus.Counter
	TimersStopped prometheus.Counter
}

// New registers all collectors on a fresh registry, alongside the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "route"},
		),
		LoginAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_attempts_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		Signups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_signups_total",
				Help: "Signups by outcome",
			},
			[]string{"outcome"},
		),
		SessionsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "sessions_created_total",
			Help: "Sessions issued by login or signup",
		}),
		SessionsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "sessions_deleted_total",
			Help: "Sessions removed by logout",
		}),
		TimersStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "timers_started_total",
			Help: "Timers started",
		}),
		TimersStopped: f.NewCounter(prometheus.CounterOpts{
			Name: "timers_stopped_total",
			Help: "Timers stopped",
		}),
	}
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
