package server

import (
	"errors"

	apperrors "github.com/jrsteele09/go-sso-bridge/internal/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	modeToken    = "token"
	modeProvider = "provider"
)

// Metrics holds the bridge's Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal *prometheus.CounterVec
	LoginsTotal       *prometheus.CounterVec
	LoginDuration     *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors with registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sso_bridge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sso_bridge_logins_total",
				Help: "SSO login attempts by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		LoginDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sso_bridge_login_duration_seconds",
				Help:    "SSO login duration in seconds, including the provider call",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"mode"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.LoginsTotal,
		m.LoginDuration,
	)
	return m
}

func (m *Metrics) observeLogin(mode string, seconds float64, err error) {
	m.LoginsTotal.WithLabelValues(mode, outcome(err)).Inc()
	m.LoginDuration.WithLabelValues(mode).Observe(seconds)
}

// outcome is the metric label for a login result.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, apperrors.ErrMalformedCredentials):
		return "malformed_credentials"
	case errors.Is(err, apperrors.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, apperrors.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, apperrors.ErrConfig):
		return "config_error"
	case errors.Is(err, apperrors.ErrUpstreamTimeout):
		return "upstream_timeout"
	case errors.Is(err, apperrors.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	default:
		return "internal_error"
	}
}
