package metrics

import "github.com/prometheus/client_golang/prometheus"

// Transition outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeNoop     = "noop"
	OutcomeRejected = "rejected"
	OutcomeStale    = "stale"
	OutcomeFailed   = "failed"
)

// EscrowMetrics counts state machine transitions by kind and outcome.
type EscrowMetrics struct {
	transitions *prometheus.CounterVec
	credited    prometheus.Counter
}

// NewEscrowMetrics registers the escrow metrics. A nil registerer yields a
// no-op recorder.
func NewEscrowMetrics(reg prometheus.Registerer) *EscrowMetrics {
	if reg == nil {
		return &EscrowMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_transitions_total",
		Help: "Escrow state transitions by kind and outcome.",
	}, []string{"kind", "outcome"})
	credited := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "escrow_release_credits_total",
		Help: "Release credits applied to merchant wallets.",
	})
	reg.MustRegister(transitions, credited)
	return &EscrowMetrics{transitions: transitions, credited: credited}
}

// Observe records one transition attempt.
func (m *EscrowMetrics) Observe(kind, outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// IncCredit records a committed release credit.
func (m *EscrowMetrics) IncCredit() {
	if m == nil || m.credited == nil {
		return
	}
	m.credited.Inc()
}
