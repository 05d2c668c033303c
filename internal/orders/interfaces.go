package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventra-africa/eventra-backend/pkg/db/models"
	"github.com/eventra-africa/eventra-backend/pkg/enums"
)

// Repository defines persistence operations for orders and ticket inventory.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	FindByReference(ctx context.Context, reference string) (*models.Order, error)
	FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	FindEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error)
	FindTicketType(ctx context.Context, ticketTypeID uuid.UUID) (*models.TicketType, error)
	ReserveTickets(ctx context.Context, ticketTypeID uuid.UUID, quantity int) (bool, error)
	RestoreTickets(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error
	MarkStatusFromPending(ctx context.Context, reference string, status enums.PaymentStatus, paidAt *time.Time) (bool, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}
