package partnership

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/velafit/coachrewards-backend/pkg/db/models"
)

// Repository persists standing coach-customer partnerships, one row per
// customer.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	GetByCustomer(ctx context.Context, customerID uuid.UUID) (*models.Partnership, error)
	Upsert(ctx context.Context, partnership *models.Partnership) error
	ListByCoach(ctx context.Context, coachID uuid.UUID) ([]models.Partnership, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a partnership repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetByCustomer(ctx context.Context, customerID uuid.UUID) (*models.Partnership, error) {
	var partnership models.Partnership
	err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&partnership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &partnership, nil
}

func (r *repository) Upsert(ctx context.Context, partnership *models.Partnership) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"coach_id", "started_at", "cooldown_until", "updated_at",
			}),
		}).
		Create(partnership).Error
}

func (r *repository) ListByCoach(ctx context.Context, coachID uuid.UUID) ([]models.Partnership, error) {
	var partnerships []models.Partnership
	if err := r.db.WithContext(ctx).
		Where("coach_id = ?", coachID).
		Order("started_at DESC").
		Find(&partnerships).Error; err != nil {
		return nil, err
	}
	return partnerships, nil
}
