package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velafit/coachrewards-backend/pkg/enums"
)

// CreditRecord is a checkout-redeemable grant to a customer, distinct from
// coach commission. The sum of a customer's active grants is their spendable
// balance.
type CreditRecord struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReferralID   *uuid.UUID         `gorm:"column:referral_id;type:uuid"`
	CustomerID   uuid.UUID          `gorm:"column:customer_id;type:uuid;not null;index"`
	CoachID      uuid.UUID          `gorm:"column:coach_id;type:uuid;not null"`
	CreditAmount decimal.Decimal    `gorm:"column:credit_amount;type:numeric(12,2);not null"`
	CreditType   enums.CreditType   `gorm:"column:credit_type;type:credit_type_enum;not null;default:'referral'"`
	Status       enums.CreditStatus `gorm:"column:status;type:credit_status_enum;not null;default:'active'"`
	ExpiresAt    *time.Time         `gorm:"column:expires_at"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
