package models

import (
	"time"

	"github.com/google/uuid"
)

// PlatformSetting is one key/value configuration row. Settings are read at
// evaluation time; changing one affects only future calculations and never
// rewrites existing ledger entries.
type PlatformSetting struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Key         string    `gorm:"column:key;size:120;not null;uniqueIndex:ux_platform_settings_key"`
	Value       string  `gorm:"column:value;not null"`
	Description *string `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
