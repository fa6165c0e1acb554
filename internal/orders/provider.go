package orders

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/velafit/coachrewards-backend/pkg/db/models"
)

// Provider is the read surface the commission core needs from the order
// collaborator. The order system stays the source of truth; this module only
// mirrors the snapshots lifecycle events carry.
type Provider interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.OrderSnapshot, error)
	LastCompletedBefore(ctx context.Context, customerID uuid.UUID, before time.Time, excludeOrderID uuid.UUID) (*models.OrderSnapshot, error)
	CompletedOrderDates(ctx context.Context, customerID uuid.UUID) ([]time.Time, error)
	CountCompleted(ctx context.Context, customerID uuid.UUID) (int64, error)
}
