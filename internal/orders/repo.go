package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/velafit/coachrewards-backend/pkg/db/models"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
)

// Repository persists mirrored order snapshots and answers the history
// queries behind eligibility and retention bonuses.
type Repository struct {
	db *gorm.DB
}

// NewRepository returns an order snapshot repository bound to the database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert stores the snapshot carried by a lifecycle event, replacing any
// previous view of the same order.
func (r *Repository) Upsert(ctx context.Context, snapshot *models.OrderSnapshot) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"customer_id", "total", "tax", "currency", "status", "order_date", "updated_at",
			}),
		}).
		Create(snapshot).Error
}

func (r *Repository) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.OrderSnapshot, error) {
	var snapshot models.OrderSnapshot
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *Repository) LastCompletedBefore(ctx context.Context, customerID uuid.UUID, before time.Time, excludeOrderID uuid.UUID) (*models.OrderSnapshot, error) {
	var snapshot models.OrderSnapshot
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND status = ? AND order_date < ? AND id <> ?",
			customerID, enums.OrderStatusCompleted, before, excludeOrderID).
		Order("order_date DESC").
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *Repository) CompletedOrderDates(ctx context.Context, customerID uuid.UUID) ([]time.Time, error) {
	var dates []time.Time
	err := r.db.WithContext(ctx).
		Model(&models.OrderSnapshot{}).
		Where("customer_id = ? AND status = ?", customerID, enums.OrderStatusCompleted).
		Order("order_date ASC").
		Pluck("order_date", &dates).Error
	return dates, err
}

func (r *Repository) CountCompleted(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderSnapshot{}).
		Where("customer_id = ? AND status = ?", customerID, enums.OrderStatusCompleted).
		Count(&count).Error
	return count, err
}
