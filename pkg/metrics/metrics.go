// Package metrics holds the Prometheus collectors shared by the api and web
// binaries. A nil *Metrics is valid and records nothing, so components can
// be built without a registry in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clinic"

// Login results.
const (
	LoginInitiated     = "initiated"
	LoginSuccess       = "success"
	LoginStateMismatch = "state_mismatch"
	LoginMissingCookie = "missing_cookie"
	LoginMissingCode   = "missing_code"
	LoginExchangeFail  = "exchange_failed"
	LoginMisconfigured = "misconfigured"
	LoginDevToken      = "dev_token"
)

// Provisioning steps run by the web callback.
const (
	StepEnsureUser   = "ensure_user"
	StepAcceptInvite = "accept_invite"
)

// Invite transitions.
const (
	InviteCreated      = "created"
	InviteResent       = "resent"
	InviteRevoked      = "revoked"
	InviteAccepted     = "accepted"
	InviteAcceptedAuth = "accepted_auth"
)

type Metrics struct {
	Logins            *prometheus.CounterVec
	Provisioning      *prometheus.CounterVec
	GuardDenials      *prometheus.CounterVec
	InviteTransitions *prometheus.CounterVec
	NotifierFailures  *prometheus.CounterVec
	InvitesPurged     prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers every collector on reg. Pass prometheus.NewRegistry() in
// tests to avoid clashing with the default registry.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login flow outcomes at the web edge.",
		}, []string{"result"}),
		Provisioning: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "provisioning_total",
			Help:      "Post-login provisioning calls by step and result.",
		}, []string{"step", "result"}),
		GuardDenials: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guard",
			Name:      "denials_total",
			Help:      "Requests rejected by the guard chain, by stage.",
		}, []string{"stage"}),
		InviteTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invite",
			Name:      "transitions_total",
			Help:      "Invite lifecycle transitions.",
		}, []string{"transition"}),
		NotifierFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "failures_total",
			Help:      "Invite notification failures by notifier kind.",
		}, []string{"kind"}),
		InvitesPurged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invite",
			Name:      "purged_total",
			Help:      "Invites removed by housekeeping.",
		}),
		gatherer: reg,
	}
}

func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}

func (m *Metrics) Provision(step string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Provisioning.WithLabelValues(step, result).Inc()
}

func (m *Metrics) GuardDenied(stage string) {
	if m == nil {
		return
	}
	m.GuardDenials.WithLabelValues(stage).Inc()
}

func (m *Metrics) InviteTransition(transition string) {
	if m == nil {
		return
	}
	m.InviteTransitions.WithLabelValues(transition).Inc()
}

func (m *Metrics) NotifierFailed(kind string) {
	if m == nil {
		return
	}
	m.NotifierFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) Purged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.InvitesPurged.Add(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
