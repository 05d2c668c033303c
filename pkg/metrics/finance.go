package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// FinanceMetrics records reconciliation and payout outcomes.
type FinanceMetrics struct {
	reconcileOutcomes *prometheus.CounterVec
	splitDrift        *prometheus.CounterVec
	payoutTransitions *prometheus.CounterVec
}

// NewFinanceMetrics registers the finance metrics on the provided registerer.
func NewFinanceMetrics(reg prometheus.Registerer) *FinanceMetrics {
	if reg == nil {
		return &FinanceMetrics{}
	}
	reconcileOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_outcomes",
		Help: "Reconciliation attempts by source and outcome.",
	}, []string{"source", "outcome"})
	splitDrift := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "split_rounding_drift",
		Help: "Revenue splits whose components did not sum exactly to gross.",
	}, []string{"entry_type"})
	payoutTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_transitions",
		Help: "Payout request state transitions.",
	}, []string{"to_status"})
	reg.MustRegister(reconcileOutcomes, splitDrift, payoutTransitions)
	return &FinanceMetrics{
		reconcileOutcomes: reconcileOutcomes,
		splitDrift:        splitDrift,
		payoutTransitions: payoutTransitions,
	}
}

// IncReconcileOutcome counts one reconciliation attempt.
func (f *FinanceMetrics) IncReconcileOutcome(source, outcome string) {
	if f == nil || f.reconcileOutcomes == nil {
		return
	}
	f.reconcileOutcomes.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

// IncSplitDrift counts a split whose parts do not sum to gross.
func (f *FinanceMetrics) IncSplitDrift(entryType string) {
	if f == nil || f.splitDrift == nil {
		return
	}
	f.splitDrift.WithLabelValues(normalizeLabel(entryType)).Inc()
}

// IncPayoutTransition counts a payout moving into the given status.
func (f *FinanceMetrics) IncPayoutTransition(toStatus string) {
	if f == nil || f.payoutTransitions == nil {
		return
	}
	f.payoutTransitions.WithLabelValues(normalizeLabel(toStatus)).Inc()
}
