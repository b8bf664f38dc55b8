package authhttp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the counters the HTTP adapter maintains. A nil *Metrics is a
// valid no-op.
type Metrics struct {
	callbacks  *prometheus.CounterVec
	sessionOps *prometheus.CounterVec
}

// NewMetrics registers the adapter counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		callbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_oauth_callbacks_total",
			Help: "OAuth callbacks handled, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		sessionOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_session_ops_total",
			Help: "Session operations performed through the HTTP adapter.",
		}, []string{"op"}),
	}
}

func (m *Metrics) callback(provider, outcome string) {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) sessionOp(op string) {
	if m == nil {
		return
	}
	m.sessionOps.WithLabelValues(op).Inc()
}
