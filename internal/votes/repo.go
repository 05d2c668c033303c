package votes

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

// Repository defines persistence operations for vote purchases and nominee
// tallies.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateVote(ctx context.Context, vote *models.VotePurchase) error
	FindByReference(ctx context.Context, reference string) (*models.VotePurchase, error)
	FindAward(ctx context.Context, awardID uuid.UUID) (*models.Award, error)
	FindNominee(ctx context.Context, nomineeID uuid.UUID) (*models.AwardNominee, error)
	FindNomineeByCode(ctx context.Context, awardID uuid.UUID, code string) (*models.AwardNominee, error)
	IncrementVoteCount(ctx context.Context, nomineeID uuid.UUID, votes int) error
	MarkStatusFromPending(ctx context.Context, reference string, status enums.PaymentStatus, paidAt *time.Time) (bool, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.VotePurchase, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a votes repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateVote(ctx context.Context, vote *models.VotePurchase) error {
	if err := r.db.WithContext(ctx).Create(vote).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_vote_purchases_reference") {
			return errs.Wrap(errs.CodeConflict, err, "vote purchase reference already exists")
		}
		return err
	}
	return nil
}

func (r *repository) FindByReference(ctx context.Context, reference string) (*models.VotePurchase, error) {
	var vote models.VotePurchase
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&vote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vote, nil
}

func (r *repository) FindAward(ctx context.Context, awardID uuid.UUID) (*models.Award, error) {
	var award models.Award
	err := r.db.WithContext(ctx).Where("id = ?", awardID).First(&award).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &award, nil
}

func (r *repository) FindNominee(ctx context.Context, nomineeID uuid.UUID) (*models.AwardNominee, error) {
	var nominee models.AwardNominee
	err := r.db.WithContext(ctx).Where("id = ?", nomineeID).First(&nominee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &nominee, nil
}

// FindNomineeByCode supports short-code voting over USSD and SMS where the
// voter submits the nominee's ballot code, not a UUID.
func (r *repository) FindNomineeByCode(ctx context.Context, awardID uuid.UUID, code string) (*models.AwardNominee, error) {
	var nominee models.AwardNominee
	err := r.db.WithContext(ctx).
		Where("award_id = ? AND code = ?", awardID, code).
		First(&nominee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &nominee, nil
}

// IncrementVoteCount moves the public tally. Only the reconciler calls this,
// and only after a payment confirms.
func (r *repository) IncrementVoteCount(ctx context.Context, nomineeID uuid.UUID, votes int) error {
	return r.db.WithContext(ctx).
		Model(&models.AwardNominee{}).
		Where("id = ?", nomineeID).
		Updates(map[string]any{
			"vote_count": gorm.Expr("vote_count + ?", votes),
			"updated_at": time.Now(),
		}).Error
}

// MarkStatusFromPending flips the vote purchase out of pending exactly once.
func (r *repository) MarkStatusFromPending(ctx context.Context, reference string, status enums.PaymentStatus, paidAt *time.Time) (bool, error) {
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now(),
	}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}
	result := r.db.WithContext(ctx).
		Model(&models.VotePurchase{}).
		Where("reference = ? AND status = ?", reference, enums.PaymentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.VotePurchase, error) {
	if limit <= 0 {
		limit = 100
	}
	var pending []models.VotePurchase
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.PaymentStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&pending).Error; err != nil {
		return nil, err
	}
	return pending, nil
}
