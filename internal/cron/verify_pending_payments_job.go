package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/eventra-africa/eventra-backend/internal/orders"
	"github.com/eventra-africa/eventra-backend/internal/reconcile"
	"github.com/eventra-africa/eventra-backend/internal/votes"
	"github.com/eventra-africa/eventra-backend/pkg/hubtel"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
)

const (
	verifyBatchSize     = 100
	verifyMinPendingAge = 10 * time.Minute
	verifyMaxAttempts   = 3
	verifyBaseBackoff   = 500 * time.Millisecond
)

type statusChecker interface {
	CheckStatus(ctx context.Context, reference string) (*hubtel.StatusResult, error)
}

// VerifyPendingPaymentsJobParams configure the pending-payment poller.
type VerifyPendingPaymentsJobParams struct {
	Logger     *logger.Logger
	Orders     orders.Repository
	Votes      votes.Repository
	Provider   statusChecker
	Reconciler reconcile.Service
	MinAge     time.Duration
	BatchSize  int
}

// NewVerifyPendingPaymentsJob polls the provider for payments whose webhook
// never arrived and feeds the authoritative status to the reconciler. The
// reconciler owns idempotency, so a webhook landing mid-poll is harmless.
func NewVerifyPendingPaymentsJob(params VerifyPendingPaymentsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Votes == nil {
		return nil, fmt.Errorf("votes repository required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("provider client required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	minAge := params.MinAge
	if minAge <= 0 {
		minAge = verifyMinPendingAge
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = verifyBatchSize
	}
	return &verifyPendingPaymentsJob{
		logg:       params.Logger,
		orders:     params.Orders,
		votes:      params.Votes,
		provider:   params.Provider,
		reconciler: params.Reconciler,
		minAge:     minAge,
		batch:      batch,
		now:        time.Now,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(verifyMaxAttempts, retry.NewExponential(verifyBaseBackoff))
		},
	}, nil
}

type verifyPendingPaymentsJob struct {
	logg       *logger.Logger
	orders     orders.Repository
	votes      votes.Repository
	provider   statusChecker
	reconciler reconcile.Service
	minAge     time.Duration
	batch      int
	now        func() time.Time
	backoff    func() retry.Backoff
}

func (j *verifyPendingPaymentsJob) Name() string { return "verify-pending-payments" }

func (j *verifyPendingPaymentsJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.minAge)

	references, err := j.collectReferences(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("verify pending payments: %w", err)
	}
	if len(references) == 0 {
		return nil
	}

	counts := map[reconcile.Outcome]int{}
	var checkFailures int
	var failures error
	for _, reference := range references {
		outcome, err := j.verifyOne(ctx, reference)
		if err != nil {
			checkFailures++
			failures = multierr.Append(failures, fmt.Errorf("verify %s: %w", reference, err))
			logCtx := j.logg.WithReference(ctx, reference)
			j.logg.Error(logCtx, "pending payment verification failed", err)
			continue
		}
		counts[outcome]++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"checked":           len(references),
		"applied":           counts[reconcile.OutcomeApplied],
		"already_processed": counts[reconcile.OutcomeAlreadyProcessed],
		"still_pending":     counts[reconcile.OutcomeStillPending],
		"failed_marked":     counts[reconcile.OutcomeFailedMarked],
		"check_failures":    checkFailures,
	})
	j.logg.Info(logCtx, "pending payment verification complete")
	return failures
}

func (j *verifyPendingPaymentsJob) collectReferences(ctx context.Context, cutoff time.Time) ([]string, error) {
	pendingOrders, err := j.orders.FindPendingBefore(ctx, cutoff, j.batch)
	if err != nil {
		return nil, err
	}
	pendingVotes, err := j.votes.FindPendingBefore(ctx, cutoff, j.batch)
	if err != nil {
		return nil, err
	}
	references := make([]string, 0, len(pendingOrders)+len(pendingVotes))
	for _, order := range pendingOrders {
		references = append(references, order.Reference)
	}
	for _, vote := range pendingVotes {
		references = append(references, vote.Reference)
	}
	return references, nil
}

func (j *verifyPendingPaymentsJob) verifyOne(ctx context.Context, reference string) (reconcile.Outcome, error) {
	var result *hubtel.StatusResult
	err := retry.Do(ctx, j.backoff(), func(ctx context.Context) error {
		res, err := j.provider.CheckStatus(ctx, reference)
		if err != nil {
			return retry.RetryableError(err)
		}
		result = res
		return nil
	})
	if err != nil {
		return "", err
	}
	return j.reconciler.Reconcile(ctx, reconcile.Input{
		Reference: reference,
		Status:    result.Status,
		Channel:   result.PaymentMethod,
		Source:    "poll",
	})
}
