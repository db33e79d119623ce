package metrics

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics counts balance mutations by entry type and outcome.
type LedgerMetrics struct {
	mutations *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_mutations_total",
		Help: "BidCoin ledger mutations by entry type and outcome.",
	}, []string{"type", "outcome"})
	reg.MustRegister(mutations)
	return &LedgerMetrics{mutations: mutations}
}

// IncMutation increments the mutation counter for the given type and outcome.
func (m *LedgerMetrics) IncMutation(entryType, outcome string) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(entryType), normalizeLabel(outcome)).Inc()
}
