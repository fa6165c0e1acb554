package models

import (
	"time"

	"github.com/google/uuid"
)

// Partnership is a customer's standing attribution to one coach for recurring
// commission. One row per customer; re-selection is gated by CooldownUntil.
type Partnership struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID    uuid.UUID `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:ux_partnership_customer"`
	CoachID       uuid.UUID `gorm:"column:coach_id;type:uuid;not null;index"`
	StartedAt     time.Time `gorm:"column:started_at;not null"`
	CooldownUntil time.Time `gorm:"column:cooldown_until;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
