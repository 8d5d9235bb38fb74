// Package metrics holds the Prometheus instruments of the auth service.
// All methods are safe on a nil *Metrics so services can run without them.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "searchlab_auth"

// Config carries the constant labels stamped on every series.
type Config struct {
	Service     string
	Environment string
}

type Metrics struct {
	deviceCodesIssued  prometheus.Counter
	deviceAuthorize    *prometheus.CounterVec
	tokenPolls         *prometheus.CounterVec
	tokenRefreshes     *prometheus.CounterVec
	tokenRevocations   *prometheus.CounterVec
	sweepDeleted       *prometheus.CounterVec
	sweepErrors        *prometheus.CounterVec
	sweepDuration      prometheus.Observer
	httpRequests       *prometheus.CounterVec
	httpRequestSeconds *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New builds the instruments and registers them with reg. A nil reg gets a
// fresh private registry so tests can build many instances.
func New(reg *prometheus.Registry, cfg Config) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	service := cfg.Service
	if service == "" {
		service = "auth"
	}
	env := cfg.Environment
	if env == "" {
		env = "unknown"
	}
	constLabels := prometheus.Labels{"service": service, "env": env}

	m := &Metrics{
		deviceCodesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "device_codes_issued_total",
			Help:        "Device authorization requests created.",
			ConstLabels: constLabels,
		}),
		deviceAuthorize: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "device_authorizations_total",
			Help:        "Device approval attempts by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		tokenPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "device_token_polls_total",
			Help:        "Device token polls by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		tokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "token_refreshes_total",
			Help:        "Refresh token exchanges by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		tokenRevocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "token_revocations_total",
			Help:        "Token revocations by token type.",
			ConstLabels: constLabels,
		}, []string{"token_type"}),
		sweepDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "retention_deleted_total",
			Help:        "Rows removed by the retention sweeper.",
			ConstLabels: constLabels,
		}, []string{"table"}),
		sweepErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "retention_errors_total",
			Help:        "Retention sweep steps that failed.",
			ConstLabels: constLabels,
		}, []string{"table"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "http_requests_total",
			Help:        "HTTP requests by route and status code.",
			ConstLabels: constLabels,
		}, []string{"route", "code"}),
		httpRequestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency by route.",
			Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			ConstLabels: constLabels,
		}, []string{"route"}),
		gatherer: reg,
	}

	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   namespace,
		Name:        "retention_sweep_duration_seconds",
		Help:        "Wall time of one retention sweep.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		ConstLabels: constLabels,
	})
	m.sweepDuration = sweepDuration

	reg.MustRegister(
		m.deviceCodesIssued,
		m.deviceAuthorize,
		m.tokenPolls,
		m.tokenRefreshes,
		m.tokenRevocations,
		m.sweepDeleted,
		m.sweepErrors,
		sweepDuration,
		m.httpRequests,
		m.httpRequestSeconds,
	)
	return m
}

func (m *Metrics) DeviceCodeIssued() {
	if m == nil {
		return
	}
	m.deviceCodesIssued.Inc()
}

func (m *Metrics) DeviceAuthorization(result string) {
	if m == nil {
		return
	}
	m.deviceAuthorize.WithLabelValues(result).Inc()
}

func (m *Metrics) TokenPoll(outcome string) {
	if m == nil {
		return
	}
	m.tokenPolls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TokenRefresh(outcome string) {
	if m == nil {
		return
	}
	m.tokenRefreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) TokenRevoked(tokenType string) {
	if m == nil {
		return
	}
	m.tokenRevocations.WithLabelValues(tokenType).Inc()
}

// SweepStep records the result of one retention step.
func (m *Metrics) SweepStep(table string, deleted int64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.sweepErrors.WithLabelValues(table).Inc()
		return
	}
	m.sweepDeleted.WithLabelValues(table).Add(float64(deleted))
}

func (m *Metrics) SweepDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware counts and times requests under a fixed route label so path
// parameters do not explode cardinality.
func (m *Metrics) Middleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			m.httpRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			m.httpRequestSeconds.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
