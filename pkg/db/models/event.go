package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Event is a ticketed event owned by an organizer. AdminSharePercent, when
// set, overrides the platform default for ticket sales of this event.
type Event struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizerID       uuid.UUID        `gorm:"column:organizer_id;type:uuid;not null;index"`
	Name              string           `gorm:"column:name;not null"`
	Venue             string           `gorm:"column:venue"`
	StartsAt          time.Time        `gorm:"column:starts_at;not null"`
	EndsAt            *time.Time       `gorm:"column:ends_at"`
	AdminSharePercent *decimal.Decimal `gorm:"column:admin_share_percent;type:numeric(5,2)"`
	PaymentChannels   pq.StringArray   `gorm:"column:payment_channels;type:text[];default:ARRAY[]::text[]"`
	Published         bool             `gorm:"column:published;not null;default:false"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TicketType is one priced tier of an event. QuantitySold is incremented when
// a checkout reserves tickets and decremented when a payment fails; the
// difference against QuantityTotal is the remaining inventory.
type TicketType struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID       uuid.UUID       `gorm:"column:event_id;type:uuid;not null;index"`
	Name          string          `gorm:"column:name;not null"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	QuantityTotal int             `gorm:"column:quantity_total;not null"`
	QuantitySold  int             `gorm:"column:quantity_sold;not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
