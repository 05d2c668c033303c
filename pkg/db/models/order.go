package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventra-africa/eventra-backend/pkg/enums"
)

// Order is the pending payment record for a ticket purchase. The checkout
// flow creates it with precomputed split columns; the reconciler later flips
// its status exactly once.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Reference       string              `gorm:"column:reference;size:100;not null;uniqueIndex:ux_orders_reference"`
	EventID         uuid.UUID           `gorm:"column:event_id;type:uuid;not null;index"`
	OrganizerID     uuid.UUID           `gorm:"column:organizer_id;type:uuid;not null;index"`
	BuyerEmail      string              `gorm:"column:buyer_email"`
	BuyerPhone      string              `gorm:"column:buyer_phone"`
	GrossAmount     decimal.Decimal     `gorm:"column:gross_amount;type:numeric(12,2);not null"`
	AdminAmount     decimal.Decimal     `gorm:"column:admin_amount;type:numeric(12,2);not null;default:0"`
	OrganizerAmount decimal.Decimal     `gorm:"column:organizer_amount;type:numeric(12,2);not null;default:0"`
	PaymentFee      decimal.Decimal     `gorm:"column:payment_fee;type:numeric(12,2);not null;default:0"`
	Status          enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	PaidAt          *time.Time          `gorm:"column:paid_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem reserves Quantity tickets of one TicketType for an order.
type OrderItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	TicketTypeID uuid.UUID       `gorm:"column:ticket_type_id;type:uuid;not null;index"`
	Quantity     int             `gorm:"column:quantity;not null"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Subtotal     decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}
