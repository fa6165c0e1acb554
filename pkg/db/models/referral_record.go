package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velafit/coachrewards-backend/pkg/enums"
)

// ReferralRecord is one commission event per (order, coach) pair. At most one
// record per pair may reach the completed status; completed records are never
// deleted.
type ReferralRecord struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CoachID          uuid.UUID            `gorm:"column:coach_id;type:uuid;not null;index"`
	CustomerID       uuid.UUID            `gorm:"column:customer_id;type:uuid;not null;index"`
	ReferrerID       *uuid.UUID           `gorm:"column:referrer_id;type:uuid"`
	ReferrerType     enums.ReferrerType   `gorm:"column:referrer_type;type:referrer_type_enum;not null;default:'coach'"`
	OrderID          uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	PurchaseCount    int                  `gorm:"column:purchase_count;not null;default:1"`
	CommissionAmount decimal.Decimal      `gorm:"column:commission_amount;type:numeric(12,2);not null"`
	LoyaltyBonus     decimal.Decimal      `gorm:"column:loyalty_bonus;type:numeric(12,2);not null"`
	RetentionBonus   decimal.Decimal      `gorm:"column:retention_bonus;type:numeric(12,2);not null"`
	Status           enums.ReferralStatus `gorm:"column:status;type:referral_status_enum;not null;default:'pending'"`
	ReferralCode     string               `gorm:"column:referral_code"`
	Currency         string               `gorm:"column:currency;not null;default:'CHF'"`
	ConversionDate   *time.Time           `gorm:"column:conversion_date"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// TotalPayable is the coach-facing sum for this record. RetentionBonus also
// carries the network and tier components folded in at computation time.
func (r ReferralRecord) TotalPayable() decimal.Decimal {
	return r.CommissionAmount.Add(r.LoyaltyBonus).Add(r.RetentionBonus)
}
