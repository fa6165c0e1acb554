package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velafit/coachrewards-backend/pkg/enums"
)

// OrderSnapshot mirrors the order collaborator's view of a purchase at the
// moment a lifecycle event fired. The order system remains the source of
// truth; this row only feeds commission computation.
type OrderSnapshot struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID *uuid.UUID        `gorm:"column:customer_id;type:uuid;index"`
	Total      decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	Tax        decimal.Decimal   `gorm:"column:tax;type:numeric(12,2);not null"`
	Currency   string            `gorm:"column:currency;not null;default:'CHF'"`
	Status     enums.OrderStatus `gorm:"column:status;type:order_status_enum;not null"`
	OrderDate  time.Time         `gorm:"column:order_date;not null;index"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// NetTotal is the commissionable base: order total minus tax.
func (o OrderSnapshot) NetTotal() decimal.Decimal {
	return o.Total.Sub(o.Tax)
}
