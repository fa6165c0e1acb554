package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/velafit/coachrewards-backend/pkg/enums"
)

// EligibilityDecision is the persisted outcome of the anti-abuse gate for one
// order. Overrides holds the append-only admin override history as JSON; use
// eligibility.ParseOverrides to normalize legacy shapes.
type EligibilityDecision struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID               `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_eligibility_order"`
	CustomerID      *uuid.UUID              `gorm:"column:customer_id;type:uuid;index"`
	Eligible        bool                    `gorm:"column:eligible;not null"`
	Reason          enums.EligibilityReason `gorm:"column:reason;type:eligibility_reason_enum;not null"`
	LookbackMonths  int                     `gorm:"column:lookback_months;not null"`
	LastOrderID     *uuid.UUID              `gorm:"column:last_order_id;type:uuid"`
	LastOrderDate   *time.Time              `gorm:"column:last_order_date"`
	MonthsSinceLast *int                    `gorm:"column:months_since_last"`
	EvaluatedAt     time.Time               `gorm:"column:evaluated_at;not null"`
	Overrides       json.RawMessage         `gorm:"column:overrides;type:jsonb"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
