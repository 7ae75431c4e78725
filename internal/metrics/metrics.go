// Package metrics holds the Prometheus collectors for the SSO endpoints.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Verification metrics
	VerificationsTotal *prometheus.CounterVec

	// Account metrics
	AdminsProvisionedTotal prometheus.Counter

	// Session metrics
	SessionsIssuedTotal  prometheus.Counter
	SessionsRevokedTotal *prometheus.CounterVec
	SignOutsTotal        prometheus.Counter
	RenewalsTotal        *prometheus.CounterVec
}

// New creates all collectors and registers them on a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates all collectors and registers them on registry.
func NewWithRegistry(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,

		VerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssobridge_token_verifications_total",
				Help: "Total number of SSO token verifications by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),

		AdminsProvisionedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ssobridge_admins_provisioned_total",
				Help: "Total number of admin accounts created on first sign-in",
			},
		),

		SessionsIssuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ssobridge_sessions_issued_total",
				Help: "Total number of admin sessions issued",
			},
		),
		SessionsRevokedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssobridge_sessions_revoked_total",
				Help: "Total number of admin sessions revoked by source",
			},
			[]string{"source"},
		),
		SignOutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ssobridge_sign_outs_total",
				Help: "Total number of sign-out pages served",
			},
		),
		RenewalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssobridge_session_renewals_total",
				Help: "Total number of access token renewals by status",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.VerificationsTotal,
		m.AdminsProvisionedTotal,
		m.SessionsIssuedTotal,
		m.SessionsRevokedTotal,
		m.SignOutsTotal,
		m.RenewalsTotal,
	)

	return m
}

// RecordVerification counts one verification attempt.
func (m *Metrics) RecordVerification(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.VerificationsTotal.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) RecordProvisioned() {
	if m == nil {
		return
	}
	m.AdminsProvisionedTotal.Inc()
}

func (m *Metrics) RecordSessionIssued() {
	if m == nil {
		return
	}
	m.SessionsIssuedTotal.Inc()
}

// RecordRevoked adds count revoked sessions under source.
func (m *Metrics) RecordRevoked(source string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.SessionsRevokedTotal.WithLabelValues(source).Add(float64(count))
}

func (m *Metrics) RecordSignOut() {
	if m == nil {
		return
	}
	m.SignOutsTotal.Inc()
}

func (m *Metrics) RecordRenewal(status string) {
	if m == nil {
		return
	}
	m.RenewalsTotal.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
