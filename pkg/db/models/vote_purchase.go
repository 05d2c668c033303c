package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventra-africa/eventra-backend/pkg/enums"
)

// VotePurchase is the pending payment record for a batch of paid votes.
type VotePurchase struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Reference       string              `gorm:"column:reference;size:100;not null;uniqueIndex:ux_vote_purchases_reference"`
	AwardID         uuid.UUID           `gorm:"column:award_id;type:uuid;not null;index"`
	NomineeID       uuid.UUID           `gorm:"column:nominee_id;type:uuid;not null;index"`
	OrganizerID     uuid.UUID           `gorm:"column:organizer_id;type:uuid;not null;index"`
	VoterPhone      string              `gorm:"column:voter_phone"`
	Votes           int                 `gorm:"column:votes;not null"`
	GrossAmount     decimal.Decimal     `gorm:"column:gross_amount;type:numeric(12,2);not null"`
	AdminAmount     decimal.Decimal     `gorm:"column:admin_amount;type:numeric(12,2);not null;default:0"`
	OrganizerAmount decimal.Decimal     `gorm:"column:organizer_amount;type:numeric(12,2);not null;default:0"`
	PaymentFee      decimal.Decimal     `gorm:"column:payment_fee;type:numeric(12,2);not null;default:0"`
	Status          enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	PaidAt          *time.Time          `gorm:"column:paid_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
