package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventra-africa/eventra-backend/pkg/db/models"
	"github.com/eventra-africa/eventra-backend/pkg/enums"
	errs "github.com/eventra-africa/eventra-backend/pkg/errors"
	"github.com/eventra-africa/eventra-backend/pkg/pagination"
)

const maxReferenceLength = 100

// Service defines operations that record and read ledger entries.
type Service interface {
	Record(ctx context.Context, input RecordEntryInput) (*models.LedgerEntry, error)
	GetByReference(ctx context.Context, reference string) (*models.LedgerEntry, error)
	ListByOrganizer(ctx context.Context, organizerID uuid.UUID, params pagination.Params) (*Page, error)
}

// Page is one cursor-delimited slice of an organizer's ledger stream.
type Page struct {
	Entries    []models.LedgerEntry `json:"entries"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

type service struct {
	repo Repository
}

// RecordEntryInput captures the immutable data a ledger entry requires.
type RecordEntryInput struct {
	Reference       string
	Type            enums.LedgerEntryType
	OrganizerID     uuid.UUID
	EventID         *uuid.UUID
	AwardID         *uuid.UUID
	OrderID         *uuid.UUID
	OrderItemID     *uuid.UUID
	VoteID          *uuid.UUID
	PayoutID        *uuid.UUID
	GrossAmount     decimal.Decimal
	AdminAmount     decimal.Decimal
	OrganizerAmount decimal.Decimal
	PaymentFee      decimal.Decimal
	Status          enums.LedgerEntryStatus
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, input RecordEntryInput) (*models.LedgerEntry, error) {
	entry, err := buildEntry(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) GetByReference(ctx context.Context, reference string) (*models.LedgerEntry, error) {
	if reference == "" {
		return nil, errs.New(errs.CodeValidation, "reference is required")
	}
	return s.repo.GetByReference(ctx, reference)
}

func (s *service) ListByOrganizer(ctx context.Context, organizerID uuid.UUID, params pagination.Params) (*Page, error) {
	if organizerID == uuid.Nil {
		return nil, errs.New(errs.CodeValidation, "organizer id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, errs.Wrap(errs.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	entries, err := s.repo.ListByOrganizer(ctx, organizerID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, err
	}

	page := &Page{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		last := page.Entries[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

func buildEntry(input RecordEntryInput) (*models.LedgerEntry, error) {
	if input.Reference == "" {
		return nil, errs.New(errs.CodeValidation, "reference is required")
	}
	if len(input.Reference) > maxReferenceLength {
		return nil, errs.New(errs.CodeValidation, "reference exceeds 100 characters")
	}
	if !input.Type.IsValid() {
		return nil, errs.New(errs.CodeValidation, fmt.Sprintf("invalid ledger entry type %q", input.Type))
	}
	if input.OrganizerID == uuid.Nil {
		return nil, errs.New(errs.CodeValidation, "organizer id is required")
	}
	for name, amount := range map[string]decimal.Decimal{
		"gross_amount":     input.GrossAmount,
		"admin_amount":     input.AdminAmount,
		"organizer_amount": input.OrganizerAmount,
		"payment_fee":      input.PaymentFee,
	} {
		if amount.IsNegative() {
			return nil, errs.New(errs.CodeValidation, fmt.Sprintf("%s must not be negative", name))
		}
	}
	status := input.Status
	if status == "" {
		status = enums.LedgerEntryStatusCompleted
	}
	if !status.IsValid() {
		return nil, errs.New(errs.CodeValidation, fmt.Sprintf("invalid ledger entry status %q", status))
	}

	return &models.LedgerEntry{
		Reference:       input.Reference,
		Type:            input.Type,
		OrganizerID:     input.OrganizerID,
		EventID:         input.EventID,
		AwardID:         input.AwardID,
		OrderID:         input.OrderID,
		OrderItemID:     input.OrderItemID,
		VoteID:          input.VoteID,
		PayoutID:        input.PayoutID,
		GrossAmount:     input.GrossAmount,
		AdminAmount:     input.AdminAmount,
		OrganizerAmount: input.OrganizerAmount,
		PaymentFee:      input.PaymentFee,
		Status:          status,
	}, nil
}
