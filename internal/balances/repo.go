package balances

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eventra-africa/eventra-backend/pkg/db/models"
)

// Repository manages persistence for cached organizer balances. All balance
// arithmetic happens in SQL so concurrent reconciliations never lose updates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Ensure(ctx context.Context, organizerID uuid.UUID) (*models.OrganizerBalance, error)
	GetByOrganizer(ctx context.Context, organizerID uuid.UUID) (*models.OrganizerBalance, error)
	AddPending(ctx context.Context, organizerID uuid.UUID, amount decimal.Decimal) error
	Release(ctx context.Context, organizerID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	Withdraw(ctx context.Context, organizerID uuid.UUID, amount decimal.Decimal, at time.Time) (bool, error)
	Overwrite(ctx context.Context, organizerID uuid.UUID, available, pending, earned, withdrawn decimal.Decimal) error
	ListOrganizerIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a balances repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Ensure returns the organizer's balance row, creating a zeroed one if none
// exists yet.
func (r *repository) Ensure(ctx context.Context, organizerID uuid.UUID) (*models.OrganizerBalance, error) {
	balance := models.OrganizerBalance{OrganizerID: organizerID}
	err := r.db.WithContext(ctx).
		Where("organizer_id = ?", organizerID).
		FirstOrCreate(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) GetByOrganizer(ctx context.Context, organizerID uuid.UUID) (*models.OrganizerBalance, error) {
	var balance models.OrganizerBalance
	err := r.db.WithContext(ctx).Where("organizer_id = ?", organizerID).First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &balance, nil
}

// AddPending credits new earnings into the pending bucket and the lifetime
// earned total in one atomic statement.
func (r *repository) AddPending(ctx context.Context, organizerID uuid.UUID, amount decimal.Decimal) error {
	if _, err := r.Ensure(ctx, organizerID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.OrganizerBalance{}).
		Where("organizer_id = ?", organizerID).
		Updates(map[string]any{
			"pending_balance": gorm.Expr("pending_balance + ?", amount),
			"total_earned":    gorm.Expr("total_earned + ?", amount),
			"updated_at":      time.Now(),
		}).Error
}

// releaseRetryAttempts bounds the clamp path's compare-and-swap loop when the
// pending bucket keeps moving under concurrent credits.
const releaseRetryAttempts = 5

var errReleaseContended = errors.New("balance release contended, retry")

// Release moves amount from pending to available and reports how much
// actually moved. When the pending bucket holds less than requested, the
// remainder is clamped so pending never goes negative. Both paths keep the
// arithmetic inside a single guarded UPDATE so a concurrent AddPending can
// never be overwritten.
func (r *repository) Release(ctx context.Context, organizerID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	for attempt := 0; attempt < releaseRetryAttempts; attempt++ {
		result := r.db.WithContext(ctx).
			Model(&models.OrganizerBalance{}).
			Where("organizer_id = ? AND pending_balance >= ?", organizerID, amount).
			Updates(map[string]any{
				"available_balance": gorm.Expr("available_balance + ?", amount),
				"pending_balance":   gorm.Expr("pending_balance - ?", amount),
				"updated_at":        time.Now(),
			})
		if result.Error != nil {
			return decimal.Zero, result.Error
		}
		if result.RowsAffected > 0 {
			return amount, nil
		}

		balance, err := r.GetByOrganizer(ctx, organizerID)
		if err != nil {
			return decimal.Zero, err
		}
		if balance == nil || !balance.PendingBalance.IsPositive() {
			return decimal.Zero, nil
		}

		// Clamp to the snapshot we just read. The pending_balance equality
		// guard rejects the write if anything changed the bucket since the
		// read, in which case we loop and look again.
		moved := balance.PendingBalance
		result = r.db.WithContext(ctx).
			Model(&models.OrganizerBalance{}).
			Where("organizer_id = ? AND pending_balance = ?", organizerID, moved).
			Updates(map[string]any{
				"available_balance": gorm.Expr("available_balance + ?", moved),
				"pending_balance":   gorm.Expr("pending_balance - ?", moved),
				"updated_at":        time.Now(),
			})
		if result.Error != nil {
			return decimal.Zero, result.Error
		}
		if result.RowsAffected > 0 {
			return moved, nil
		}
	}
	return decimal.Zero, errReleaseContended
}

// Withdraw debits the available bucket only when it covers the amount. The
// balance check lives in the WHERE clause so two concurrent withdrawals can
// never both succeed against the same funds.
func (r *repository) Withdraw(ctx context.Context, organizerID uuid.UUID, amount decimal.Decimal, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.OrganizerBalance{}).
		Where("organizer_id = ? AND available_balance >= ?", organizerID, amount).
		Updates(map[string]any{
			"available_balance": gorm.Expr("available_balance - ?", amount),
			"total_withdrawn":   gorm.Expr("total_withdrawn + ?", amount),
			"last_payout_at":    at,
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Overwrite replaces every cached figure with ledger-derived values. Used by
// the audit repair path only.
func (r *repository) Overwrite(ctx context.Context, organizerID uuid.UUID, available, pending, earned, withdrawn decimal.Decimal) error {
	if _, err := r.Ensure(ctx, organizerID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.OrganizerBalance{}).
		Where("organizer_id = ?", organizerID).
		Updates(map[string]any{
			"available_balance": available,
			"pending_balance":   pending,
			"total_earned":      earned,
			"total_withdrawn":   withdrawn,
			"updated_at":        time.Now(),
		}).Error
}

// ListOrganizerIDs pages over every organizer that has a balance row, in a
// stable order so batched callers see each organizer exactly once.
func (r *repository) ListOrganizerIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.OrganizerBalance{}).
		Order("organizer_id ASC").
		Limit(limit).
		Offset(offset).
		Pluck("organizer_id", &ids).Error
	return ids, err
}
