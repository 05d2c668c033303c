package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/eventra-africa/eventra-backend/internal/orders"
	"github.com/eventra-africa/eventra-backend/internal/reconcile"
	"github.com/eventra-africa/eventra-backend/internal/votes"
	"github.com/eventra-africa/eventra-backend/pkg/db/models"
	"github.com/eventra-africa/eventra-backend/pkg/enums"
	"github.com/eventra-africa/eventra-backend/pkg/hubtel"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
)

func TestVerifyPendingPaymentsJobReconcilesOrdersAndVotes(t *testing.T) {
	provider := &fakeStatusChecker{statuses: map[string]enums.ProviderStatus{
		"EVE-TKT-1":  enums.ProviderStatusPaid,
		"EVE-VOTE-1": enums.ProviderStatusFailed,
	}}
	reconciler := &fakeReconciler{}
	job := newVerifyJob(t, provider, reconciler,
		[]models.Order{{Reference: "EVE-TKT-1"}},
		[]models.VotePurchase{{Reference: "EVE-VOTE-1"}},
	)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(reconciler.inputs) != 2 {
		t.Fatalf("expected 2 reconcile calls, got %d", len(reconciler.inputs))
	}
	for _, input := range reconciler.inputs {
		if input.Source != "poll" {
			t.Fatalf("expected source poll, got %q", input.Source)
		}
	}
	if reconciler.inputs[0].Status != enums.ProviderStatusPaid {
		t.Fatalf("expected paid verdict for order, got %s", reconciler.inputs[0].Status)
	}
	if reconciler.inputs[1].Status != enums.ProviderStatusFailed {
		t.Fatalf("expected failed verdict for vote, got %s", reconciler.inputs[1].Status)
	}
}

func TestVerifyPendingPaymentsJobRetriesProviderErrors(t *testing.T) {
	provider := &fakeStatusChecker{
		statuses:   map[string]enums.ProviderStatus{"EVE-TKT-1": enums.ProviderStatusPaid},
		failsFirst: 2,
	}
	reconciler := &fakeReconciler{}
	job := newVerifyJob(t, provider, reconciler,
		[]models.Order{{Reference: "EVE-TKT-1"}}, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if provider.calls != 3 {
		t.Fatalf("expected 3 provider attempts, got %d", provider.calls)
	}
	if len(reconciler.inputs) != 1 {
		t.Fatalf("expected reconcile after retries, got %d calls", len(reconciler.inputs))
	}
}

func TestVerifyPendingPaymentsJobSkipsUnreachableReference(t *testing.T) {
	provider := &fakeStatusChecker{
		statuses: map[string]enums.ProviderStatus{"EVE-TKT-2": enums.ProviderStatusPaid},
		brokenRefs: map[string]bool{
			"EVE-TKT-1": true,
		},
	}
	reconciler := &fakeReconciler{}
	job := newVerifyJob(t, provider, reconciler,
		[]models.Order{{Reference: "EVE-TKT-1"}, {Reference: "EVE-TKT-2"}}, nil)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error for unreachable reference")
	}
	if len(reconciler.inputs) != 1 {
		t.Fatalf("expected 1 reconcile call, got %d", len(reconciler.inputs))
	}
	if reconciler.inputs[0].Reference != "EVE-TKT-2" {
		t.Fatalf("expected EVE-TKT-2 reconciled, got %q", reconciler.inputs[0].Reference)
	}
}

func newVerifyJob(t *testing.T, provider statusChecker, reconciler reconcile.Service, pendingOrders []models.Order, pendingVotes []models.VotePurchase) *verifyPendingPaymentsJob {
	t.Helper()
	jobIface, err := NewVerifyPendingPaymentsJob(VerifyPendingPaymentsJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Orders:     &fakePendingOrders{pending: pendingOrders},
		Votes:      &fakePendingVotes{pending: pendingVotes},
		Provider:   provider,
		Reconciler: reconciler,
	})
	if err != nil {
		t.Fatalf("NewVerifyPendingPaymentsJob: %v", err)
	}
	job, ok := jobIface.(*verifyPendingPaymentsJob)
	if !ok {
		t.Fatalf("expected verifyPendingPaymentsJob, got %T", jobIface)
	}
	job.backoff = func() retry.Backoff {
		return retry.WithMaxRetries(verifyMaxAttempts, retry.NewConstant(time.Millisecond))
	}
	return job
}

type fakePendingOrders struct {
	orders.Repository
	pending []models.Order
}

func (f *fakePendingOrders) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	return f.pending, nil
}

type fakePendingVotes struct {
	votes.Repository
	pending []models.VotePurchase
}

func (f *fakePendingVotes) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.VotePurchase, error) {
	return f.pending, nil
}

type fakeStatusChecker struct {
	statuses   map[string]enums.ProviderStatus
	brokenRefs map[string]bool
	failsFirst int
	calls      int
}

func (f *fakeStatusChecker) CheckStatus(ctx context.Context, reference string) (*hubtel.StatusResult, error) {
	f.calls++
	if f.brokenRefs[reference] {
		return nil, errors.New("provider timeout")
	}
	if f.failsFirst > 0 {
		f.failsFirst--
		return nil, errors.New("provider timeout")
	}
	status, ok := f.statuses[reference]
	if !ok {
		return nil, errors.New("unknown reference")
	}
	return &hubtel.StatusResult{Reference: reference, Status: status}, nil
}

type fakeReconciler struct {
	inputs []reconcile.Input
}

func (f *fakeReconciler) Reconcile(ctx context.Context, input reconcile.Input) (reconcile.Outcome, error) {
	f.inputs = append(f.inputs, input)
	return reconcile.OutcomeApplied, nil
}
