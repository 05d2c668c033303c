package settings

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/eventra-africa/eventra-backend/pkg/db/models"
)

// Repository manages persistence for platform settings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, key string) (*models.PlatformSetting, error)
	Upsert(ctx context.Context, setting *models.PlatformSetting) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Get(ctx context.Context, key string) (*models.PlatformSetting, error) {
	var setting models.PlatformSetting
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

func (r *repository) Upsert(ctx context.Context, setting *models.PlatformSetting) error {
	return r.db.WithContext(ctx).
		Where("key = ?", setting.Key).
		Assign(map[string]any{"value": setting.Value, "description": setting.Description}).
		FirstOrCreate(setting).Error
}
