package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrganizerBalance caches per-organizer running totals. It is a materialized
// view over the ledger: every mutation happens inside the same transaction as
// its triggering ledger write, and the row can be rebuilt from the ledger
// stream when drift is suspected.
type OrganizerBalance struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizerID      uuid.UUID       `gorm:"column:organizer_id;type:uuid;not null;uniqueIndex:ux_organizer_balances_organizer"`
	AvailableBalance decimal.Decimal `gorm:"column:available_balance;type:numeric(12,2);not null;default:0"`
	PendingBalance   decimal.Decimal `gorm:"column:pending_balance;type:numeric(12,2);not null;default:0"`
	TotalEarned      decimal.Decimal `gorm:"column:total_earned;type:numeric(12,2);not null;default:0"`
	TotalWithdrawn   decimal.Decimal `gorm:"column:total_withdrawn;type:numeric(12,2);not null;default:0"`
	LastPayoutAt     *time.Time      `gorm:"column:last_payout_at"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
