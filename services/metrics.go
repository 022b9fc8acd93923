package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	methodLocal    = "local"
	methodExternal = "external"

	resultSuccess = "success"
	resultFailure = "failure"
)

// Metrics counts authentication outcomes. A nil *Metrics records nothing.
type Metrics struct {
	authentications *prometheus.CounterVec
	provisioned     *prometheus.CounterVec
	conflicts       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which keeps tests independent of each other.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		authentications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardauth_authentications_total",
			Help: "Authentication attempts by method and result",
		}, []string{"method", "result"}), // method: local|external, result: success|failure
		provisioned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardauth_accounts_provisioned_total",
			Help: "Accounts created on first external login",
		}, []string{"provider"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardauth_provisioning_conflicts_total",
			Help: "Concurrent first logins that lost the create race",
		}, []string{"provider"}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.authentications, err = register(reg, m.authentications); err != nil {
		return nil, err
	}
	if m.provisioned, err = register(reg, m.provisioned); err != nil {
		return nil, err
	}
	if m.conflicts, err = register(reg, m.conflicts); err != nil {
		return nil, err
	}
	return m, nil
}

// register returns the already-registered collector when one with the same
// descriptor exists.
func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (m *Metrics) authentication(method string, err error) {
	if m == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultFailure
	}
	m.authentications.WithLabelValues(method, result).Inc()
}

func (m *Metrics) accountProvisioned(provider string) {
	if m == nil {
		return
	}
	m.provisioned.WithLabelValues(provider).Inc()
}

func (m *Metrics) provisioningConflict(provider string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(provider).Inc()
}
