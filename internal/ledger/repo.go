package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/eventra-africa/eventra-backend/pkg/db"
	"github.com/eventra-africa/eventra-backend/pkg/db/models"
	"github.com/eventra-africa/eventra-backend/pkg/enums"
	errs "github.com/eventra-africa/eventra-backend/pkg/errors"
	"github.com/eventra-africa/eventra-backend/pkg/pagination"
)

// Totals are the balance figures derived from the ledger stream alone. They
// are the source of truth the cached organizer_balances row is audited
// against.
type Totals struct {
	AvailableBalance decimal.Decimal
	PendingBalance   decimal.Decimal
	TotalEarned      decimal.Decimal
	TotalWithdrawn   decimal.Decimal
}

// Repository manages persistence for ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	GetByReference(ctx context.Context, reference string) (*models.LedgerEntry, error)
	ListByOrganizer(ctx context.Context, organizerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.LedgerEntry, error)
	ListReleasable(ctx context.Context, cutoff time.Time, limit int) ([]models.LedgerEntry, error)
	MarkReleased(ctx context.Context, ids []uuid.UUID, releasedAt time.Time) (int64, error)
	OrganizerTotals(ctx context.Context, organizerID uuid.UUID) (*Totals, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts an entry. A duplicate reference surfaces as CodeConflict so
// callers can distinguish "already recorded" from a real failure.
func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_ledger_entries_reference") {
			return errs.Wrap(errs.CodeConflict, err, "ledger reference already recorded")
		}
		return err
	}
	return nil
}

func (r *repository) GetByReference(ctx context.Context, reference string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ListByOrganizer pages newest-first with a keyset cursor so concurrent
// inserts never shift rows between pages.
func (r *repository) ListByOrganizer(ctx context.Context, organizerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}
	query := r.db.WithContext(ctx).
		Where("organizer_id = ?", organizerID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var entries []models.LedgerEntry
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListReleasable returns completed sale entries still on hold whose
// created_at predates the cutoff.
func (r *repository) ListReleasable(ctx context.Context, cutoff time.Time, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("type IN ?", []enums.LedgerEntryType{enums.LedgerEntryTypeTicketSale, enums.LedgerEntryTypeVotePurchase}).
		Where("status = ? AND released = ?", enums.LedgerEntryStatusCompleted, false).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) MarkReleased(ctx context.Context, ids []uuid.UUID, releasedAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("id IN ? AND released = ?", ids, false).
		Updates(map[string]any{"released": true, "released_at": releasedAt})
	return result.RowsAffected, result.Error
}

type totalsRow struct {
	TotalEarned    decimal.Decimal `gorm:"column:total_earned"`
	TotalWithdrawn decimal.Decimal `gorm:"column:total_withdrawn"`
	PendingBalance decimal.Decimal `gorm:"column:pending_balance"`
}

// OrganizerTotals recomputes the organizer's balance figures from completed
// ledger entries. Refunds subtract from earnings.
func (r *repository) OrganizerTotals(ctx context.Context, organizerID uuid.UUID) (*Totals, error) {
	var row totalsRow
	err := r.db.WithContext(ctx).Raw(`
SELECT
  COALESCE(SUM(CASE WHEN type IN ('ticket_sale', 'vote_purchase') THEN organizer_amount
                    WHEN type = 'refund' THEN -organizer_amount
                    ELSE 0 END), 0) AS total_earned,
  COALESCE(SUM(CASE WHEN type = 'payout' THEN organizer_amount ELSE 0 END), 0) AS total_withdrawn,
  COALESCE(SUM(CASE WHEN type IN ('ticket_sale', 'vote_purchase') AND released = ? THEN organizer_amount
                    ELSE 0 END), 0) AS pending_balance
FROM ledger_entries
WHERE organizer_id = ? AND status = 'completed'`, false, organizerID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &Totals{
		AvailableBalance: row.TotalEarned.Sub(row.PendingBalance).Sub(row.TotalWithdrawn),
		PendingBalance:   row.PendingBalance,
		TotalEarned:      row.TotalEarned,
		TotalWithdrawn:   row.TotalWithdrawn,
	}, nil
}
