package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventra-africa/eventra-backend/pkg/enums"
)

// PayoutRequest tracks an organizer withdrawal through its state machine.
// Version backs optimistic concurrency so two admins cannot move the same
// request simultaneously.
type PayoutRequest struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizerID     uuid.UUID           `gorm:"column:organizer_id;type:uuid;not null;index"`
	EventID         *uuid.UUID          `gorm:"column:event_id;type:uuid"`
	AwardID         *uuid.UUID          `gorm:"column:award_id;type:uuid"`
	PayoutType      enums.PayoutType    `gorm:"column:payout_type;type:payout_type;not null"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	GrossAmount     decimal.Decimal     `gorm:"column:gross_amount;type:numeric(12,2);not null"`
	AdminFee        decimal.Decimal     `gorm:"column:admin_fee;type:numeric(12,2);not null;default:0"`
	Method          enums.PayoutMethod  `gorm:"column:method;type:payout_method;not null"`
	AccountDetails  json.RawMessage     `gorm:"column:account_details;type:jsonb"`
	Status          enums.PayoutStatus  `gorm:"column:status;type:payout_status;not null;default:'pending'"`
	ProcessedBy     *uuid.UUID          `gorm:"column:processed_by;type:uuid"`
	ProcessedAt     *time.Time          `gorm:"column:processed_at"`
	RejectionReason *string             `gorm:"column:rejection_reason"`
	Notes           *string             `gorm:"column:notes"`
	Version         int                 `gorm:"column:version;not null;default:0"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
