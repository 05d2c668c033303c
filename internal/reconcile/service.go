package reconcile

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/eventra-africa/eventra-backend/internal/balances"
	"github.com/eventra-africa/eventra-backend/internal/ledger"
	"github.com/eventra-africa/eventra-backend/internal/orders"
	"github.com/eventra-africa/eventra-backend/internal/votes"
	"github.com/eventra-africa/eventra-backend/pkg/db/models"
	"github.com/eventra-africa/eventra-backend/pkg/enums"
	errs "github.com/eventra-africa/eventra-backend/pkg/errors"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
	"github.com/eventra-africa/eventra-backend/pkg/metrics"
	"github.com/eventra-africa/eventra-backend/pkg/outbox"
	"github.com/eventra-africa/eventra-backend/pkg/outbox/payloads"
)

// Outcome classifies one reconciliation attempt. Replays of an already
// settled reference are successful no-ops, never errors.
type Outcome string

const (
	OutcomeApplied          Outcome = "applied"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeStillPending     Outcome = "still_pending"
	OutcomeFailedMarked     Outcome = "failed_marked"
)

// Input is one provider verdict for a payment reference. Source tags the
// delivery path (webhook, poll) for metrics only.
type Input struct {
	Reference string
	Status    enums.ProviderStatus
	Channel   string
	Reason    string
	Source    string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service applies provider verdicts to pending payments exactly once.
type Service interface {
	Reconcile(ctx context.Context, input Input) (Outcome, error)
}

// Params wires the reconciler dependencies.
type Params struct {
	Tx            txRunner
	Orders        orders.Repository
	Votes         votes.Repository
	Ledger        ledger.Repository
	Balances      balances.Repository
	Outbox        outboxPublisher
	Metrics       *metrics.FinanceMetrics
	Logger        *logger.Logger
	PendingMaxAge time.Duration
}

type service struct {
	tx            txRunner
	orders        orders.Repository
	votes         votes.Repository
	ledger        ledger.Repository
	balances      balances.Repository
	outbox        outboxPublisher
	metrics       *metrics.FinanceMetrics
	logg          *logger.Logger
	pendingMaxAge time.Duration
}

// DefaultPendingMaxAge ages out payments the provider never settles.
const DefaultPendingMaxAge = 24 * time.Hour

// NewService validates dependencies and returns a reconciler.
func NewService(params Params) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Votes == nil {
		return nil, fmt.Errorf("votes repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Balances == nil {
		return nil, fmt.Errorf("balances repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("reconcile logger required")
	}
	if params.PendingMaxAge <= 0 {
		params.PendingMaxAge = DefaultPendingMaxAge
	}
	return &service{
		tx:            params.Tx,
		orders:        params.Orders,
		votes:         params.Votes,
		ledger:        params.Ledger,
		balances:      params.Balances,
		outbox:        params.Outbox,
		metrics:       params.Metrics,
		logg:          params.Logger,
		pendingMaxAge: params.PendingMaxAge,
	}, nil
}

// Reconcile resolves the reference to its pending record and applies the
// provider verdict. Safe to call any number of times with any interleaving:
// the guarded status flip plus the unique ledger reference guarantee at most
// one credit per reference.
func (s *service) Reconcile(ctx context.Context, input Input) (Outcome, error) {
	if input.Reference == "" {
		return "", errs.New(errs.CodeValidation, "reference is required")
	}
	if !input.Status.IsValid() {
		return "", errs.New(errs.CodeValidation, fmt.Sprintf("invalid provider status %q", input.Status))
	}

	ctx = s.logg.WithReference(ctx, input.Reference)

	outcome, err := s.reconcile(ctx, input)
	if err != nil {
		return outcome, err
	}
	s.metrics.IncReconcileOutcome(input.Source, string(outcome))
	s.logg.Info(s.logg.WithField(ctx, "outcome", string(outcome)), "payment reconciled")
	return outcome, nil
}

func (s *service) reconcile(ctx context.Context, input Input) (Outcome, error) {
	order, err := s.orders.FindByReference(ctx, input.Reference)
	if err != nil {
		return "", err
	}
	if order != nil {
		return s.reconcileOrder(ctx, order, input)
	}

	vote, err := s.votes.FindByReference(ctx, input.Reference)
	if err != nil {
		return "", err
	}
	if vote != nil {
		return s.reconcileVote(ctx, vote, input)
	}

	return "", errs.New(errs.CodeNotFound, "unknown payment reference")
}

func (s *service) reconcileOrder(ctx context.Context, order *models.Order, input Input) (Outcome, error) {
	switch input.Status {
	case enums.ProviderStatusPaid:
		return s.applyOrderPaid(ctx, order, input)
	case enums.ProviderStatusFailed:
		return s.applyOrderFailed(ctx, order, input.Reason)
	default:
		if s.agedOut(order.CreatedAt) {
			return s.applyOrderFailed(ctx, order, "pending payment aged out")
		}
		return OutcomeStillPending, nil
	}
}

func (s *service) applyOrderPaid(ctx context.Context, order *models.Order, input Input) (Outcome, error) {
	outcome := OutcomeApplied
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		now := time.Now()

		flipped, err := ordersRepo.MarkStatusFromPending(ctx, order.Reference, enums.PaymentStatusPaid, &now)
		if err != nil {
			return err
		}
		if !flipped {
			outcome = OutcomeAlreadyProcessed
			return nil
		}

		entry := &models.LedgerEntry{
			Reference:       order.Reference,
			Type:            enums.LedgerEntryTypeTicketSale,
			OrganizerID:     order.OrganizerID,
			EventID:         &order.EventID,
			OrderID:         &order.ID,
			GrossAmount:     order.GrossAmount,
			AdminAmount:     order.AdminAmount,
			OrganizerAmount: order.OrganizerAmount,
			PaymentFee:      order.PaymentFee,
			Status:          enums.LedgerEntryStatusCompleted,
		}
		if err := s.ledger.WithTx(tx).Create(ctx, entry); err != nil {
			if errs.HasCode(err, errs.CodeConflict) {
				outcome = OutcomeAlreadyProcessed
				return nil
			}
			return err
		}

		if err := s.balances.WithTx(tx).AddPending(ctx, order.OrganizerID, order.OrganizerAmount); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.PaymentCompletedEvent{
				Reference:       order.Reference,
				EntryType:       enums.LedgerEntryTypeTicketSale,
				OrganizerID:     order.OrganizerID,
				GrossAmount:     order.GrossAmount,
				OrganizerAmount: order.OrganizerAmount,
				AdminAmount:     order.AdminAmount,
				PaymentFee:      order.PaymentFee,
				Channel:         input.Channel,
				CompletedAt:     now,
			},
		})
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

func (s *service) applyOrderFailed(ctx context.Context, order *models.Order, reason string) (Outcome, error) {
	outcome := OutcomeFailedMarked
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)

		flipped, err := ordersRepo.MarkStatusFromPending(ctx, order.Reference, enums.PaymentStatusFailed, nil)
		if err != nil {
			return err
		}
		if !flipped {
			outcome = OutcomeAlreadyProcessed
			return nil
		}

		items, err := ordersRepo.FindItemsByOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := ordersRepo.RestoreTickets(ctx, item.TicketTypeID, item.Quantity); err != nil {
				return err
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.PaymentFailedEvent{
				Reference:   order.Reference,
				EntryType:   enums.LedgerEntryTypeTicketSale,
				OrganizerID: order.OrganizerID,
				GrossAmount: order.GrossAmount,
				Reason:      reason,
				FailedAt:    time.Now(),
			},
		})
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

func (s *service) reconcileVote(ctx context.Context, vote *models.VotePurchase, input Input) (Outcome, error) {
	switch input.Status {
	case enums.ProviderStatusPaid:
		return s.applyVotePaid(ctx, vote, input)
	case enums.ProviderStatusFailed:
		return s.applyVoteFailed(ctx, vote, input.Reason)
	default:
		if s.agedOut(vote.CreatedAt) {
			return s.applyVoteFailed(ctx, vote, "pending payment aged out")
		}
		return OutcomeStillPending, nil
	}
}

func (s *service) applyVotePaid(ctx context.Context, vote *models.VotePurchase, input Input) (Outcome, error) {
	outcome := OutcomeApplied
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		votesRepo := s.votes.WithTx(tx)
		now := time.Now()

		flipped, err := votesRepo.MarkStatusFromPending(ctx, vote.Reference, enums.PaymentStatusPaid, &now)
		if err != nil {
			return err
		}
		if !flipped {
			outcome = OutcomeAlreadyProcessed
			return nil
		}

		entry := &models.LedgerEntry{
			Reference:       vote.Reference,
			Type:            enums.LedgerEntryTypeVotePurchase,
			OrganizerID:     vote.OrganizerID,
			AwardID:         &vote.AwardID,
			VoteID:          &vote.ID,
			GrossAmount:     vote.GrossAmount,
			AdminAmount:     vote.AdminAmount,
			OrganizerAmount: vote.OrganizerAmount,
			PaymentFee:      vote.PaymentFee,
			Status:          enums.LedgerEntryStatusCompleted,
		}
		if err := s.ledger.WithTx(tx).Create(ctx, entry); err != nil {
			if errs.HasCode(err, errs.CodeConflict) {
				outcome = OutcomeAlreadyProcessed
				return nil
			}
			return err
		}

		if err := s.balances.WithTx(tx).AddPending(ctx, vote.OrganizerID, vote.OrganizerAmount); err != nil {
			return err
		}
		if err := votesRepo.IncrementVoteCount(ctx, vote.NomineeID, vote.Votes); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentCompleted,
			AggregateType: enums.AggregateVotePurchase,
			AggregateID:   vote.ID,
			Data: payloads.PaymentCompletedEvent{
				Reference:       vote.Reference,
				EntryType:       enums.LedgerEntryTypeVotePurchase,
				OrganizerID:     vote.OrganizerID,
				GrossAmount:     vote.GrossAmount,
				OrganizerAmount: vote.OrganizerAmount,
				AdminAmount:     vote.AdminAmount,
				PaymentFee:      vote.PaymentFee,
				Channel:         input.Channel,
				CompletedAt:     now,
			},
		})
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

func (s *service) applyVoteFailed(ctx context.Context, vote *models.VotePurchase, reason string) (Outcome, error) {
	outcome := OutcomeFailedMarked
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		votesRepo := s.votes.WithTx(tx)

		flipped, err := votesRepo.MarkStatusFromPending(ctx, vote.Reference, enums.PaymentStatusFailed, nil)
		if err != nil {
			return err
		}
		if !flipped {
			outcome = OutcomeAlreadyProcessed
			return nil
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregateVotePurchase,
			AggregateID:   vote.ID,
			Data: payloads.PaymentFailedEvent{
				Reference:   vote.Reference,
				EntryType:   enums.LedgerEntryTypeVotePurchase,
				OrganizerID: vote.OrganizerID,
				GrossAmount: vote.GrossAmount,
				Reason:      reason,
				FailedAt:    time.Now(),
			},
		})
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

func (s *service) agedOut(createdAt time.Time) bool {
	return time.Since(createdAt) > s.pendingMaxAge
}
