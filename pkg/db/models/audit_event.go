package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/velafit/coachrewards-backend/pkg/enums"
)

// AuditEvent is an immutable log entry. Rows are never updated; only the
// retention sweep removes them.
type AuditEvent struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventType    string              `gorm:"column:event_type;not null;index"`
	Category     enums.AuditCategory `gorm:"column:category;type:audit_category_enum;not null;index"`
	UserID       *uuid.UUID          `gorm:"column:user_id;type:uuid;index"`
	Data         json.RawMessage     `gorm:"column:data;type:jsonb"`
	IPAddress    string              `gorm:"column:ip_address;index"`
	UserAgent    string              `gorm:"column:user_agent"`
	SessionID    string              `gorm:"column:session_id"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	CreatedAtUTC time.Time           `gorm:"column:created_at_utc;not null"`
}
