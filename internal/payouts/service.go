package payouts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eventra-africa/eventra-backend/internal/balances"
	"github.com/eventra-africa/eventra-backend/internal/ledger"
	"github.com/eventra-africa/eventra-backend/internal/settings"
	"github.com/eventra-africa/eventra-backend/pkg/db/models"
	"github.com/eventra-africa/eventra-backend/pkg/enums"
	errs "github.com/eventra-africa/eventra-backend/pkg/errors"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
	"github.com/eventra-africa/eventra-backend/pkg/metrics"
	"github.com/eventra-africa/eventra-backend/pkg/outbox"
	"github.com/eventra-africa/eventra-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// RequestInput captures an organizer withdrawal request.
type RequestInput struct {
	OrganizerID    uuid.UUID          `json:"organizer_id"`
	EventID        *uuid.UUID         `json:"event_id,omitempty"`
	AwardID        *uuid.UUID         `json:"award_id,omitempty"`
	PayoutType     enums.PayoutType   `json:"payout_type"`
	Amount         decimal.Decimal    `json:"amount"`
	Method         enums.PayoutMethod `json:"method"`
	AccountDetails json.RawMessage    `json:"account_details,omitempty"`
	Notes          *string            `json:"notes,omitempty"`
}

// Service drives the payout request state machine. Funds are debited only at
// Complete; Request and Approve never move money, so the availability checks
// before completion are advisory.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.PayoutRequest, error)
	Approve(ctx context.Context, payoutID, adminID uuid.UUID) (*models.PayoutRequest, error)
	Reject(ctx context.Context, payoutID, adminID uuid.UUID, reason string) (*models.PayoutRequest, error)
	Complete(ctx context.Context, payoutID, adminID uuid.UUID) (*models.PayoutRequest, error)
	Get(ctx context.Context, payoutID uuid.UUID) (*models.PayoutRequest, error)
	ListByOrganizer(ctx context.Context, organizerID uuid.UUID, limit, offset int) ([]models.PayoutRequest, error)
}

// Params wires the payouts service dependencies.
type Params struct {
	Repo     Repository
	Tx       txRunner
	Balances balances.Repository
	Ledger   ledger.Repository
	Settings settings.Service
	Outbox   outboxPublisher
	Metrics  *metrics.FinanceMetrics
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	balances balances.Repository
	ledger   ledger.Repository
	settings settings.Service
	outbox   outboxPublisher
	metrics  *metrics.FinanceMetrics
	logg     *logger.Logger
}

// NewService validates dependencies and returns a payouts service.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Balances == nil {
		return nil, fmt.Errorf("balances repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("payouts logger required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		balances: params.Balances,
		ledger:   params.Ledger,
		settings: params.Settings,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (s *service) Request(ctx context.Context, input RequestInput) (*models.PayoutRequest, error) {
	if input.OrganizerID == uuid.Nil {
		return nil, errs.New(errs.CodeValidation, "organizer id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, errs.New(errs.CodeValidation, "payout amount must be positive")
	}
	if !input.PayoutType.IsValid() {
		return nil, errs.New(errs.CodeValidation, fmt.Sprintf("invalid payout type %q", input.PayoutType))
	}
	if !input.Method.IsValid() {
		return nil, errs.New(errs.CodeValidation, fmt.Sprintf("invalid payout method %q", input.Method))
	}

	minPayout, err := s.settings.MinPayout(ctx)
	if err != nil {
		return nil, err
	}
	if input.Amount.LessThan(minPayout) {
		return nil, errs.New(errs.CodeBelowMinimum, fmt.Sprintf("minimum payout is %s", minPayout.StringFixed(2)))
	}

	balance, err := s.balances.Ensure(ctx, input.OrganizerID)
	if err != nil {
		return nil, err
	}
	if balance.AvailableBalance.LessThan(input.Amount) {
		return nil, errs.New(errs.CodeInsufficientFunds, "available balance does not cover the requested amount")
	}

	payout := &models.PayoutRequest{
		ID:             uuid.New(),
		OrganizerID:    input.OrganizerID,
		EventID:        input.EventID,
		AwardID:        input.AwardID,
		PayoutType:     input.PayoutType,
		Amount:         input.Amount,
		GrossAmount:    input.Amount,
		Method:         input.Method,
		AccountDetails: input.AccountDetails,
		Status:         enums.PayoutStatusPending,
		Notes:          input.Notes,
	}
	if err := s.repo.Create(ctx, payout); err != nil {
		return nil, err
	}

	s.metrics.IncPayoutTransition(string(enums.PayoutStatusPending))
	s.logg.Info(s.logg.WithOrganizerID(ctx, input.OrganizerID.String()), "payout requested")
	return payout, nil
}

func (s *service) Approve(ctx context.Context, payoutID, adminID uuid.UUID) (*models.PayoutRequest, error) {
	payout, err := s.loadForTransition(ctx, payoutID, enums.PayoutStatusProcessing)
	if err != nil {
		return nil, err
	}

	moved, err := s.repo.TransitionStatus(ctx, payout.ID, payout.Version,
		payout.Status, enums.PayoutStatusProcessing,
		map[string]any{"processed_by": adminID})
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, s.conflict(ctx, payout, enums.PayoutStatusProcessing)
	}

	s.metrics.IncPayoutTransition(string(enums.PayoutStatusProcessing))
	return s.repo.FindByID(ctx, payout.ID)
}

func (s *service) Reject(ctx context.Context, payoutID, adminID uuid.UUID, reason string) (*models.PayoutRequest, error) {
	if reason == "" {
		return nil, errs.New(errs.CodeValidation, "rejection reason is required")
	}
	payout, err := s.loadForTransition(ctx, payoutID, enums.PayoutStatusRejected)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.WithTx(tx).TransitionStatus(ctx, payout.ID, payout.Version,
			payout.Status, enums.PayoutStatusRejected,
			map[string]any{
				"processed_by":     adminID,
				"processed_at":     now,
				"rejection_reason": reason,
			})
		if err != nil {
			return err
		}
		if !moved {
			return s.conflict(ctx, payout, enums.PayoutStatusRejected)
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutRejected,
			AggregateType: enums.AggregatePayoutRequest,
			AggregateID:   payout.ID,
			Actor:         adminActor(adminID),
			Data: payloads.PayoutRejectedEvent{
				PayoutID:    payout.ID,
				OrganizerID: payout.OrganizerID,
				Amount:      payout.Amount,
				Reason:      reason,
				RejectedAt:  now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPayoutTransition(string(enums.PayoutStatusRejected))
	return s.repo.FindByID(ctx, payout.ID)
}

// Complete settles a processing payout in one transaction: the request flips
// to completed, the available balance is debited with a re-validated
// conditional update, a payout ledger entry is appended, and the outbox
// event is staged. If the balance no longer covers the amount the whole
// completion rolls back.
func (s *service) Complete(ctx context.Context, payoutID, adminID uuid.UUID) (*models.PayoutRequest, error) {
	payout, err := s.loadForTransition(ctx, payoutID, enums.PayoutStatusCompleted)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.WithTx(tx).TransitionStatus(ctx, payout.ID, payout.Version,
			payout.Status, enums.PayoutStatusCompleted,
			map[string]any{
				"processed_by": adminID,
				"processed_at": now,
			})
		if err != nil {
			return err
		}
		if !moved {
			return s.conflict(ctx, payout, enums.PayoutStatusCompleted)
		}

		debited, err := s.balances.WithTx(tx).Withdraw(ctx, payout.OrganizerID, payout.Amount, now)
		if err != nil {
			return err
		}
		if !debited {
			return errs.New(errs.CodeInsufficientFunds, "available balance no longer covers the payout")
		}

		reference := payoutReference(payout.ID)
		entry := &models.LedgerEntry{
			Reference:       reference,
			Type:            enums.LedgerEntryTypePayout,
			OrganizerID:     payout.OrganizerID,
			EventID:         payout.EventID,
			AwardID:         payout.AwardID,
			PayoutID:        &payout.ID,
			GrossAmount:     payout.GrossAmount,
			AdminAmount:     payout.AdminFee,
			OrganizerAmount: payout.Amount,
			PaymentFee:      decimal.Zero,
			Status:          enums.LedgerEntryStatusCompleted,
		}
		if err := s.ledger.WithTx(tx).Create(ctx, entry); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutCompleted,
			AggregateType: enums.AggregatePayoutRequest,
			AggregateID:   payout.ID,
			Actor:         adminActor(adminID),
			Data: payloads.PayoutCompletedEvent{
				PayoutID:    payout.ID,
				OrganizerID: payout.OrganizerID,
				Amount:      payout.Amount,
				Method:      payout.Method,
				Reference:   reference,
				CompletedAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPayoutTransition(string(enums.PayoutStatusCompleted))
	return s.repo.FindByID(ctx, payout.ID)
}

func (s *service) Get(ctx context.Context, payoutID uuid.UUID) (*models.PayoutRequest, error) {
	if payoutID == uuid.Nil {
		return nil, errs.New(errs.CodeValidation, "payout id is required")
	}
	payout, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, errs.New(errs.CodeNotFound, "payout request not found")
	}
	return payout, nil
}

func (s *service) ListByOrganizer(ctx context.Context, organizerID uuid.UUID, limit, offset int) ([]models.PayoutRequest, error) {
	if organizerID == uuid.Nil {
		return nil, errs.New(errs.CodeValidation, "organizer id is required")
	}
	return s.repo.ListByOrganizer(ctx, organizerID, limit, offset)
}

func (s *service) loadForTransition(ctx context.Context, payoutID uuid.UUID, target enums.PayoutStatus) (*models.PayoutRequest, error) {
	if payoutID == uuid.Nil {
		return nil, errs.New(errs.CodeValidation, "payout id is required")
	}
	payout, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, errs.New(errs.CodeNotFound, "payout request not found")
	}
	if !payout.Status.CanTransitionTo(target) {
		return nil, s.conflict(ctx, payout, target)
	}
	return payout, nil
}

func (s *service) conflict(ctx context.Context, payout *models.PayoutRequest, target enums.PayoutStatus) error {
	err := errs.New(errs.CodeStateConflict,
		fmt.Sprintf("payout cannot move from %s to %s", payout.Status, target))
	s.logg.Error(s.logg.WithField(ctx, "payout_id", payout.ID.String()), "illegal payout transition", err)
	return err
}

func adminActor(adminID uuid.UUID) *outbox.ActorRef {
	if adminID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: adminID, Role: string(enums.RoleAdmin)}
}

func payoutReference(payoutID uuid.UUID) string {
	return "EVE-PAYOUT-" + payoutID.String()
}
