package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/google/uuid"
)

// CoachBalance caches the sum of a coach's completed referral records. The
// ledger is authoritative; the reconciliation job recomputes this row and
// flags drift.
type CoachBalance struct {
	CoachID   uuid.UUID       `gorm:"column:coach_id;type:uuid;primaryKey"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
