package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditRedemption records spend against a customer's credit balance.
type CreditRedemption struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CreditID   *uuid.UUID      `gorm:"column:credit_id;type:uuid"`
	CustomerID uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;index"`
	OrderID    uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
