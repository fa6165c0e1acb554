package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velafit/coachrewards-backend/pkg/db/models"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	"github.com/velafit/coachrewards-backend/pkg/pagination"
)

// Filters narrows audit queries. Zero values are ignored.
type Filters struct {
	EventType string
	Category  enums.AuditCategory
	UserID    *uuid.UUID
	IPAddress string
	From      *time.Time
	To        *time.Time
}

// Repository persists and reads immutable audit events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, event *models.AuditEvent) error
	List(ctx context.Context, filters Filters, limit int, cursor *pagination.Cursor) ([]models.AuditEvent, error)
	CountEvents(ctx context.Context, from, to time.Time) (int64, error)
	CountDistinct(ctx context.Context, column string, from, to time.Time) (int64, error)
	CountByCategory(ctx context.Context, category enums.AuditCategory, from, to time.Time) (int64, error)
	DeleteBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.AuditEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) List(ctx context.Context, filters Filters, limit int, cursor *pagination.Cursor) ([]models.AuditEvent, error) {
	q := r.db.WithContext(ctx).Model(&models.AuditEvent{})
	q = applyFilters(q, filters)
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var events []models.AuditEvent
	if err := q.Order("created_at DESC, id DESC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) CountEvents(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.window(ctx, from, to).Count(&count).Error
	return count, err
}

func (r *repository) CountDistinct(ctx context.Context, column string, from, to time.Time) (int64, error) {
	var count int64
	err := r.window(ctx, from, to).
		Where(column + " IS NOT NULL AND " + column + " != ''").
		Distinct(column).
		Count(&count).Error
	return count, err
}

func (r *repository) CountByCategory(ctx context.Context, category enums.AuditCategory, from, to time.Time) (int64, error) {
	var count int64
	err := r.window(ctx, from, to).Where("category = ?", category).Count(&count).Error
	return count, err
}

func (r *repository) DeleteBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	var total int64
	for {
		sub := r.db.WithContext(ctx).
			Model(&models.AuditEvent{}).
			Select("id").
			Where("created_at_utc < ?", cutoff).
			Limit(batchSize)
		result := r.db.WithContext(ctx).
			Where("id IN (?)", sub).
			Delete(&models.AuditEvent{})
		if result.Error != nil {
			return total, result.Error
		}
		total += result.RowsAffected
		if result.RowsAffected < int64(batchSize) {
			return total, nil
		}
	}
}

func (r *repository) window(ctx context.Context, from, to time.Time) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.AuditEvent{})
	if !from.IsZero() {
		q = q.Where("created_at_utc >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("created_at_utc < ?", to)
	}
	return q
}

func applyFilters(q *gorm.DB, filters Filters) *gorm.DB {
	if filters.EventType != "" {
		q = q.Where("event_type = ?", filters.EventType)
	}
	if filters.Category != "" {
		q = q.Where("category = ?", filters.Category)
	}
	if filters.UserID != nil {
		q = q.Where("user_id = ?", *filters.UserID)
	}
	if filters.IPAddress != "" {
		q = q.Where("ip_address = ?", filters.IPAddress)
	}
	if filters.From != nil {
		q = q.Where("created_at_utc >= ?", *filters.From)
	}
	if filters.To != nil {
		q = q.Where("created_at_utc < ?", *filters.To)
	}
	return q
}
