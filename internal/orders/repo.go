package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/eventra-africa/eventra-backend/pkg/db"
	"github.com/eventra-africa/eventra-backend/pkg/db/models"
	"github.com/eventra-africa/eventra-backend/pkg/enums"
	errs "github.com/eventra-africa/eventra-backend/pkg/errors"
)

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_orders_reference") {
			return errs.Wrap(errs.CodeConflict, err, "order reference already exists")
		}
		return err
	}
	return nil
}

func (r *repository) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).Where("id = ?", eventID).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *repository) FindTicketType(ctx context.Context, ticketTypeID uuid.UUID) (*models.TicketType, error) {
	var ticketType models.TicketType
	err := r.db.WithContext(ctx).Where("id = ?", ticketTypeID).First(&ticketType).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ticketType, nil
}

// ReserveTickets increments quantity_sold only while inventory remains. The
// availability check lives in the WHERE clause so concurrent checkouts cannot
// oversell a tier.
func (r *repository) ReserveTickets(ctx context.Context, ticketTypeID uuid.UUID, quantity int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TicketType{}).
		Where("id = ? AND quantity_sold + ? <= quantity_total", ticketTypeID, quantity).
		Updates(map[string]any{
			"quantity_sold": gorm.Expr("quantity_sold + ?", quantity),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RestoreTickets returns reserved inventory after a failed payment. Guarded
// so a double restore cannot drive quantity_sold negative.
func (r *repository) RestoreTickets(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.TicketType{}).
		Where("id = ? AND quantity_sold >= ?", ticketTypeID, quantity).
		Updates(map[string]any{
			"quantity_sold": gorm.Expr("quantity_sold - ?", quantity),
			"updated_at":    time.Now(),
		}).Error
}

// MarkStatusFromPending flips the order out of pending exactly once. A false
// return means another reconciliation attempt won the race.
func (r *repository) MarkStatusFromPending(ctx context.Context, reference string, status enums.PaymentStatus, paidAt *time.Time) (bool, error) {
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now(),
	}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("reference = ? AND status = ?", reference, enums.PaymentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var pending []models.Order
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.PaymentStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&pending).Error; err != nil {
		return nil, err
	}
	return pending, nil
}
