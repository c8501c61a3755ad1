package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/turtacn/tokengate/internal/domain/service"
	"github.com/turtacn/tokengate/pkg/constants"
)

const metricsNamespace = "tokengate"

// Metrics manages the Prometheus metrics.
type Metrics struct {
	TokensIssued     *prometheus.CounterVec
	TokenValidations *prometheus.CounterVec
	TokenRefreshes   *prometheus.CounterVec
	AuthAttempts     *prometheus.CounterVec
	RateLimitHits    *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPLatency      *prometheus.HistogramVec
	HTTPInFlight     prometheus.Gauge
}

var _ service.TokenMetrics = (*Metrics)(nil)

// NewMetrics creates the metrics and registers them with reg. A nil reg
// registers with the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		TokensIssued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "tokens_issued_total",
				Help:      "Total number of signed tokens by token type.",
			},
			[]string{"token_type"},
		),
		TokenValidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "token_validations_total",
				Help:      "Total number of token validity checks by outcome.",
			},
			[]string{"outcome"},
		),
		TokenRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "token_refreshes_total",
				Help:      "Total number of refresh exchanges by outcome.",
			},
			[]string{"outcome"},
		),
		AuthAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "auth_attempts_total",
				Help:      "Total number of login and registration attempts.",
			},
			[]string{"operation", "result"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rate_limit_hits_total",
				Help:      "Total number of rate limit hits.",
			},
			[]string{"scope"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "Latency of HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests being served.",
			},
		),
	}
}

// RecordTokenIssued records a signed token.
func (m *Metrics) RecordTokenIssued(tokenType string) {
	m.TokensIssued.WithLabelValues(tokenType).Inc()
}

// RecordTokenValidation records the outcome of a validity check.
func (m *Metrics) RecordTokenValidation(outcome string) {
	m.TokenValidations.WithLabelValues(outcome).Inc()
}

// RecordTokenRefresh records the outcome of a refresh exchange.
func (m *Metrics) RecordTokenRefresh(outcome string) {
	m.TokenRefreshes.WithLabelValues(outcome).Inc()
}

// RecordAuthAttempt records a login or registration attempt.
func (m *Metrics) RecordAuthAttempt(operation, result string) {
	m.AuthAttempts.WithLabelValues(operation, result).Inc()
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(scope constants.RateLimitScope) {
	m.RateLimitHits.WithLabelValues(string(scope)).Inc()
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns the matching decrement.
func (m *Metrics) TrackInFlight() func() {
	m.HTTPInFlight.Inc()
	return m.HTTPInFlight.Dec
}
