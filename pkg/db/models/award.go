package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Award is a voting-based award show owned by an organizer.
type Award struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizerID       uuid.UUID        `gorm:"column:organizer_id;type:uuid;not null;index"`
	Name              string           `gorm:"column:name;not null"`
	VotePrice         decimal.Decimal  `gorm:"column:vote_price;type:numeric(12,2);not null"`
	AdminSharePercent *decimal.Decimal `gorm:"column:admin_share_percent;type:numeric(5,2)"`
	VotingOpensAt     *time.Time       `gorm:"column:voting_opens_at"`
	VotingClosesAt    *time.Time       `gorm:"column:voting_closes_at"`
	Published         bool             `gorm:"column:published;not null;default:false"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// AwardNominee is a contestant in an award category. VoteCount only moves
// when a vote purchase is confirmed paid.
type AwardNominee struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AwardID   uuid.UUID `gorm:"column:award_id;type:uuid;not null;index"`
	Category  string    `gorm:"column:category"`
	Name      string    `gorm:"column:name;not null"`
	Code      string    `gorm:"column:code;size:20;not null;index"`
	VoteCount int       `gorm:"column:vote_count;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
