package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/velafit/coachrewards-backend/pkg/db/models"
	"github.com/velafit/coachrewards-backend/pkg/enums"
)

// ErrReferralAlreadyCompleted reports that a finalizing write found the
// referral already completed; callers treat it as a redelivery no-op.
var ErrReferralAlreadyCompleted = errors.New("referral already completed")

// Repository manages persistence for referral records, credit grants,
// redemptions and the cached coach balances.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateReferral(ctx context.Context, record *models.ReferralRecord) error
	GetReferralByID(ctx context.Context, id uuid.UUID) (*models.ReferralRecord, error)
	ListReferralsByOrderCoach(ctx context.Context, orderID, coachID uuid.UUID) ([]models.ReferralRecord, error)
	FindReferralByOrder(ctx context.Context, orderID uuid.UUID) (*models.ReferralRecord, error)
	SaveReferral(ctx context.Context, record *models.ReferralRecord) error
	CompleteReferral(ctx context.Context, record *models.ReferralRecord) error
	DeleteReferral(ctx context.Context, id uuid.UUID) error
	ListReferralsByCoach(ctx context.Context, coachID uuid.UUID, limit int) ([]models.ReferralRecord, error)
	CountCompletedByCoach(ctx context.Context, coachID uuid.UUID) (int64, error)
	CountCompletedByReferrerCustomer(ctx context.Context, customerID uuid.UUID) (int64, error)
	SumCompletedByCoach(ctx context.Context, coachID uuid.UUID) (decimal.Decimal, error)
	ListCoachIDs(ctx context.Context) ([]uuid.UUID, error)

	CreateCredit(ctx context.Context, credit *models.CreditRecord) error
	ListCreditsByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CreditRecord, error)
	SumActiveCredits(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error)
	ExpireCreditsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CreateRedemption(ctx context.Context, redemption *models.CreditRedemption) error
	SumRedemptions(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error)

	GetBalance(ctx context.Context, coachID uuid.UUID) (*models.CoachBalance, error)
	AddToBalance(ctx context.Context, coachID uuid.UUID, delta decimal.Decimal) error
	SetBalance(ctx context.Context, coachID uuid.UUID, balance decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateReferral(ctx context.Context, record *models.ReferralRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) GetReferralByID(ctx context.Context, id uuid.UUID) (*models.ReferralRecord, error) {
	var record models.ReferralRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) ListReferralsByOrderCoach(ctx context.Context, orderID, coachID uuid.UUID) ([]models.ReferralRecord, error) {
	var records []models.ReferralRecord
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND coach_id = ?", orderID, coachID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) FindReferralByOrder(ctx context.Context, orderID uuid.UUID) (*models.ReferralRecord, error) {
	var record models.ReferralRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) SaveReferral(ctx context.Context, record *models.ReferralRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// CompleteReferral finalizes a referral with a status check-and-set. Losing a
// completion race surfaces as ErrReferralAlreadyCompleted; completing a
// duplicate row for a pair that already has a completed record trips the
// partial unique index on (order_id, coach_id).
func (r *repository) CompleteReferral(ctx context.Context, record *models.ReferralRecord) error {
	res := r.db.WithContext(ctx).
		Model(&models.ReferralRecord{}).
		Where("id = ? AND status <> ?", record.ID, enums.ReferralStatusCompleted).
		Updates(map[string]interface{}{
			"status":            enums.ReferralStatusCompleted,
			"commission_amount": record.CommissionAmount,
			"loyalty_bonus":     record.LoyaltyBonus,
			"retention_bonus":   record.RetentionBonus,
			"conversion_date":   record.ConversionDate,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrReferralAlreadyCompleted
	}
	record.Status = enums.ReferralStatusCompleted
	return nil
}

func (r *repository) DeleteReferral(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.ReferralRecord{}).Error
}

func (r *repository) ListReferralsByCoach(ctx context.Context, coachID uuid.UUID, limit int) ([]models.ReferralRecord, error) {
	q := r.db.WithContext(ctx).
		Where("coach_id = ?", coachID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var records []models.ReferralRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) CountCompletedByCoach(ctx context.Context, coachID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ReferralRecord{}).
		Where("coach_id = ? AND status = ?", coachID, enums.ReferralStatusCompleted).
		Count(&count).Error
	return count, err
}

func (r *repository) CountCompletedByReferrerCustomer(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ReferralRecord{}).
		Where("referrer_id = ? AND referrer_type = ? AND status = ?",
			customerID, enums.ReferrerTypeCustomer, enums.ReferralStatusCompleted).
		Count(&count).Error
	return count, err
}

func (r *repository) SumCompletedByCoach(ctx context.Context, coachID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.ReferralRecord{}).
		Select("SUM(commission_amount + loyalty_bonus + retention_bonus)").
		Where("coach_id = ? AND status = ?", coachID, enums.ReferralStatusCompleted).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *repository) ListCoachIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.ReferralRecord{}).
		Distinct("coach_id").
		Pluck("coach_id", &ids).Error
	return ids, err
}

func (r *repository) CreateCredit(ctx context.Context, credit *models.CreditRecord) error {
	return r.db.WithContext(ctx).Create(credit).Error
}

func (r *repository) ListCreditsByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CreditRecord, error) {
	var credits []models.CreditRecord
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&credits).Error; err != nil {
		return nil, err
	}
	return credits, nil
}

func (r *repository) SumActiveCredits(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.CreditRecord{}).
		Select("SUM(credit_amount)").
		Where("customer_id = ? AND status = ?", customerID, enums.CreditStatusActive).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *repository) ExpireCreditsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CreditRecord{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", enums.CreditStatusActive, cutoff).
		Update("status", enums.CreditStatusExpired)
	return result.RowsAffected, result.Error
}

func (r *repository) CreateRedemption(ctx context.Context, redemption *models.CreditRedemption) error {
	return r.db.WithContext(ctx).Create(redemption).Error
}

func (r *repository) SumRedemptions(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.CreditRedemption{}).
		Select("SUM(amount)").
		Where("customer_id = ?", customerID).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *repository) GetBalance(ctx context.Context, coachID uuid.UUID) (*models.CoachBalance, error) {
	var balance models.CoachBalance
	err := r.db.WithContext(ctx).Where("coach_id = ?", coachID).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) AddToBalance(ctx context.Context, coachID uuid.UUID, delta decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "coach_id"}},
			DoUpdates: clause.Assignments(map[string]any{"balance": gorm.Expr("coach_balances.balance + ?", delta)}),
		}).
		Create(&models.CoachBalance{CoachID: coachID, Balance: delta}).Error
}

func (r *repository) SetBalance(ctx context.Context, coachID uuid.UUID, balance decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "coach_id"}},
			DoUpdates: clause.Assignments(map[string]any{"balance": balance}),
		}).
		Create(&models.CoachBalance{CoachID: coachID, Balance: balance}).Error
}
