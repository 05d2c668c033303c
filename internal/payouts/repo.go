package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventra-africa/eventra-backend/pkg/db/models"
	"github.com/eventra-africa/eventra-backend/pkg/enums"
)

// Repository manages persistence for payout requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.PayoutRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error)
	ListByOrganizer(ctx context.Context, organizerID uuid.UUID, limit, offset int) ([]models.PayoutRequest, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, version int, from, to enums.PayoutStatus, updates map[string]any) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payouts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.PayoutRequest) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	var payout models.PayoutRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

func (r *repository) ListByOrganizer(ctx context.Context, organizerID uuid.UUID, limit, offset int) ([]models.PayoutRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	var payouts []models.PayoutRequest
	if err := r.db.WithContext(ctx).
		Where("organizer_id = ?", organizerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

// TransitionStatus moves the state machine with both the expected source
// status and the version in the WHERE clause. A false return means another
// actor moved the request first.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, version int, from, to enums.PayoutStatus, updates map[string]any) (bool, error) {
	set := map[string]any{
		"status":     to,
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now(),
	}
	for column, value := range updates {
		set[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.PayoutRequest{}).
		Where("id = ? AND status = ? AND version = ?", id, from, version).
		Updates(set)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
