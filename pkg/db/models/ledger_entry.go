package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventra-africa/eventra-backend/pkg/enums"
)

// LedgerEntry is the append-only record of one money movement. The unique
// reference column is the idempotence backstop: at most one entry exists per
// economic event no matter how many reconciliation attempts race.
type LedgerEntry struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Reference       string                  `gorm:"column:reference;size:100;not null;uniqueIndex:ux_ledger_entries_reference"`
	Type            enums.LedgerEntryType   `gorm:"column:type;type:ledger_entry_type;not null"`
	OrganizerID     uuid.UUID               `gorm:"column:organizer_id;type:uuid;not null;index"`
	EventID         *uuid.UUID              `gorm:"column:event_id;type:uuid"`
	AwardID         *uuid.UUID              `gorm:"column:award_id;type:uuid"`
	OrderID         *uuid.UUID              `gorm:"column:order_id;type:uuid"`
	OrderItemID     *uuid.UUID              `gorm:"column:order_item_id;type:uuid"`
	VoteID          *uuid.UUID              `gorm:"column:vote_id;type:uuid"`
	PayoutID        *uuid.UUID              `gorm:"column:payout_id;type:uuid"`
	GrossAmount     decimal.Decimal         `gorm:"column:gross_amount;type:numeric(12,2);not null"`
	AdminAmount     decimal.Decimal         `gorm:"column:admin_amount;type:numeric(12,2);not null"`
	OrganizerAmount decimal.Decimal         `gorm:"column:organizer_amount;type:numeric(12,2);not null"`
	PaymentFee      decimal.Decimal         `gorm:"column:payment_fee;type:numeric(12,2);not null"`
	Status          enums.LedgerEntryStatus `gorm:"column:status;type:ledger_entry_status;not null;default:'completed'"`
	Released        bool                    `gorm:"column:released;not null;default:false;index"`
	ReleasedAt      *time.Time              `gorm:"column:released_at"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
}
