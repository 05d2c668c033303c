package models

import (
	"time"

	"github.com/google/uuid"
)

// Organizer owns events and award shows and withdraws the revenue they earn.
type Organizer struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessName string    `gorm:"column:business_name;not null"`
	Email        string    `gorm:"column:email;not null;uniqueIndex:ux_organizers_email"`
	Phone        string    `gorm:"column:phone"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
