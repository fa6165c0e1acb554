package eligibility

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/velafit/coachrewards-backend/pkg/db/models"
)

// Repository persists one eligibility decision per order.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.EligibilityDecision, error)
	Upsert(ctx context.Context, decision *models.EligibilityDecision) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an eligibility repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.EligibilityDecision, error) {
	var decision models.EligibilityDecision
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&decision).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &decision, nil
}

func (r *repository) Upsert(ctx context.Context, decision *models.EligibilityDecision) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "order_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"eligible", "reason", "lookback_months", "last_order_id",
				"last_order_date", "months_since_last", "evaluated_at",
				"overrides", "updated_at",
			}),
		}).
		Create(decision).Error
}
