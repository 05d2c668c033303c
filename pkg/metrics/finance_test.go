package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestFinanceMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewFinanceMetrics(reg)
	metrics.IncReconcileOutcome("webhook", "applied")
	metrics.IncReconcileOutcome("webhook", "applied")
	metrics.IncReconcileOutcome("poller", "already_processed")
	metrics.IncSplitDrift("ticket_sale")
	metrics.IncPayoutTransition("completed")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "reconcile_outcomes", "source", "webhook"); err != nil {
		t.Fatalf("fetch reconcile: %v", err)
	} else if got != 2 {
		t.Fatalf("expected reconcile=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "split_rounding_drift", "entry_type", "ticket_sale"); err != nil {
		t.Fatalf("fetch drift: %v", err)
	} else if got != 1 {
		t.Fatalf("expected drift=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "payout_transitions", "to_status", "completed"); err != nil {
		t.Fatalf("fetch payout: %v", err)
	} else if got != 1 {
		t.Fatalf("expected payout=1, got %f", got)
	}
}

func TestFinanceMetricsNilReceiverIsSafe(t *testing.T) {
	var metrics *FinanceMetrics
	metrics.IncReconcileOutcome("webhook", "applied")
	metrics.IncSplitDrift("ticket_sale")
	metrics.IncPayoutTransition("rejected")
}
