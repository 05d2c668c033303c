package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventra-africa/eventra-backend/pkg/enums"
)

// PaymentCompletedEvent is emitted once a payment reference is reconciled
// and its revenue split recorded on the ledger.
type PaymentCompletedEvent struct {
	Reference       string                `json:"reference"`
	EntryType       enums.LedgerEntryType `json:"entry_type"`
	OrganizerID     uuid.UUID             `json:"organizer_id"`
	GrossAmount     decimal.Decimal       `json:"gross_amount"`
	OrganizerAmount decimal.Decimal       `json:"organizer_amount"`
	AdminAmount     decimal.Decimal       `json:"admin_amount"`
	PaymentFee      decimal.Decimal       `json:"payment_fee"`
	Channel         string                `json:"channel,omitempty"`
	CompletedAt     time.Time             `json:"completed_at"`
}

// PaymentFailedEvent is emitted when a provider reports a terminal failure
// for a pending payment reference.
type PaymentFailedEvent struct {
	Reference   string                `json:"reference"`
	EntryType   enums.LedgerEntryType `json:"entry_type"`
	OrganizerID uuid.UUID             `json:"organizer_id"`
	GrossAmount decimal.Decimal       `json:"gross_amount"`
	Reason      string                `json:"reason,omitempty"`
	FailedAt    time.Time             `json:"failed_at"`
}

// PayoutCompletedEvent reports a payout that debited the organizer balance.
type PayoutCompletedEvent struct {
	PayoutID    uuid.UUID          `json:"payout_id"`
	OrganizerID uuid.UUID          `json:"organizer_id"`
	Amount      decimal.Decimal    `json:"amount"`
	Method      enums.PayoutMethod `json:"method"`
	Reference   string             `json:"reference"`
	CompletedAt time.Time          `json:"completed_at"`
}

// PayoutRejectedEvent reports a payout request that was turned down.
type PayoutRejectedEvent struct {
	PayoutID    uuid.UUID       `json:"payout_id"`
	OrganizerID uuid.UUID       `json:"organizer_id"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason,omitempty"`
	RejectedAt  time.Time       `json:"rejected_at"`
}

// BalanceDriftDetectedEvent is emitted by the audit job when a materialized
// balance disagrees with the ledger it was derived from.
type BalanceDriftDetectedEvent struct {
	OrganizerID   uuid.UUID       `json:"organizer_id"`
	Field         string          `json:"field"`
	StoredAmount  decimal.Decimal `json:"stored_amount"`
	DerivedAmount decimal.Decimal `json:"derived_amount"`
	Delta         decimal.Decimal `json:"delta"`
	Repaired      bool            `json:"repaired"`
	ObservedAt    time.Time       `json:"observed_at"`
}
