package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/velafit/coachrewards-backend/pkg/db/models"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
)

type fakeRepository struct {
	Repository

	referralsByOrderCoach []models.ReferralRecord
	referralByID          *models.ReferralRecord
	createdReferral       *models.ReferralRecord
	deletedID             uuid.UUID
	createdCredit         *models.CreditRecord
	createdRedemption     *models.CreditRedemption
	activeCredits         decimal.Decimal
	redemptions           decimal.Decimal
	completedSum          decimal.Decimal
	balance               *models.CoachBalance
	setBalance            *decimal.Decimal
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) ListReferralsByOrderCoach(ctx context.Context, orderID, coachID uuid.UUID) ([]models.ReferralRecord, error) {
	return f.referralsByOrderCoach, nil
}

func (f *fakeRepository) GetReferralByID(ctx context.Context, id uuid.UUID) (*models.ReferralRecord, error) {
	return f.referralByID, nil
}

func (f *fakeRepository) CreateReferral(ctx context.Context, record *models.ReferralRecord) error {
	f.createdReferral = record
	return nil
}

func (f *fakeRepository) DeleteReferral(ctx context.Context, id uuid.UUID) error {
	f.deletedID = id
	return nil
}

func (f *fakeRepository) CreateCredit(ctx context.Context, credit *models.CreditRecord) error {
	f.createdCredit = credit
	return nil
}

func (f *fakeRepository) CreateRedemption(ctx context.Context, redemption *models.CreditRedemption) error {
	f.createdRedemption = redemption
	return nil
}

func (f *fakeRepository) SumActiveCredits(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	return f.activeCredits, nil
}

func (f *fakeRepository) SumRedemptions(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	return f.redemptions, nil
}

func (f *fakeRepository) SumCompletedByCoach(ctx context.Context, coachID uuid.UUID) (decimal.Decimal, error) {
	return f.completedSum, nil
}

func (f *fakeRepository) GetBalance(ctx context.Context, coachID uuid.UUID) (*models.CoachBalance, error) {
	return f.balance, nil
}

func (f *fakeRepository) SetBalance(ctx context.Context, coachID uuid.UUID, balance decimal.Decimal) error {
	f.setBalance = &balance
	return nil
}

func TestService_RecordPendingReferral(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	input := PendingReferralInput{
		CoachID:       uuid.New(),
		CustomerID:    uuid.New(),
		ReferrerType:  enums.ReferrerTypeCoach,
		OrderID:       uuid.New(),
		PurchaseCount: 2,
		ReferralCode:  "COACH-22",
	}

	record, err := svc.RecordPendingReferral(context.Background(), input)
	if err != nil {
		t.Fatalf("RecordPendingReferral error: %v", err)
	}
	if repo.createdReferral == nil {
		t.Fatal("expected referral record to be created")
	}
	if record.Status != enums.ReferralStatusPending {
		t.Fatalf("expected pending status, got %s", record.Status)
	}
	if record.Currency != "CHF" {
		t.Fatalf("expected CHF default currency, got %s", record.Currency)
	}
}

func TestService_RecordPendingReferralReusesOpenRecord(t *testing.T) {
	existing := models.ReferralRecord{ID: uuid.New(), Status: enums.ReferralStatusPending}
	repo := &fakeRepository{referralsByOrderCoach: []models.ReferralRecord{existing}}
	svc, _ := NewService(repo)

	record, err := svc.RecordPendingReferral(context.Background(), PendingReferralInput{
		CoachID:      uuid.New(),
		CustomerID:   uuid.New(),
		ReferrerType: enums.ReferrerTypeCoach,
		OrderID:      uuid.New(),
	})
	if err != nil {
		t.Fatalf("RecordPendingReferral error: %v", err)
	}
	if record.ID != existing.ID {
		t.Fatal("expected redelivery to reuse the open record")
	}
	if repo.createdReferral != nil {
		t.Fatal("expected no duplicate record to be created")
	}
}

func TestService_RecordPendingReferralValidation(t *testing.T) {
	svc, _ := NewService(&fakeRepository{})

	tests := []struct {
		name  string
		input PendingReferralInput
	}{
		{name: "missing order id", input: PendingReferralInput{CoachID: uuid.New(), CustomerID: uuid.New(), ReferrerType: enums.ReferrerTypeCoach}},
		{name: "missing coach id", input: PendingReferralInput{OrderID: uuid.New(), CustomerID: uuid.New(), ReferrerType: enums.ReferrerTypeCoach}},
		{name: "missing customer id", input: PendingReferralInput{OrderID: uuid.New(), CoachID: uuid.New(), ReferrerType: enums.ReferrerTypeCoach}},
		{name: "invalid referrer type", input: PendingReferralInput{OrderID: uuid.New(), CoachID: uuid.New(), CustomerID: uuid.New(), ReferrerType: "bot"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.RecordPendingReferral(context.Background(), tc.input); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_RemoveDuplicateReferralProtectsCompleted(t *testing.T) {
	completed := &models.ReferralRecord{ID: uuid.New(), Status: enums.ReferralStatusCompleted}
	repo := &fakeRepository{referralByID: completed}
	svc, _ := NewService(repo)

	err := svc.RemoveDuplicateReferral(context.Background(), completed.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if repo.deletedID != uuid.Nil {
		t.Fatal("completed record must not be deleted")
	}
}

func TestService_RemoveDuplicateReferralDeletesPending(t *testing.T) {
	pending := &models.ReferralRecord{ID: uuid.New(), Status: enums.ReferralStatusPending}
	repo := &fakeRepository{referralByID: pending}
	svc, _ := NewService(repo)

	if err := svc.RemoveDuplicateReferral(context.Background(), pending.ID); err != nil {
		t.Fatalf("RemoveDuplicateReferral error: %v", err)
	}
	if repo.deletedID != pending.ID {
		t.Fatal("expected pending duplicate to be deleted")
	}
}

func TestService_SpendableBalanceSubtractsRedemptions(t *testing.T) {
	repo := &fakeRepository{
		activeCredits: decimal.NewFromInt(25),
		redemptions:   decimal.NewFromInt(10),
	}
	svc, _ := NewService(repo)

	spendable, err := svc.SpendableBalance(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("SpendableBalance error: %v", err)
	}
	if !spendable.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected 15, got %s", spendable)
	}
}

func TestService_RedeemCreditInsufficientBalance(t *testing.T) {
	repo := &fakeRepository{activeCredits: decimal.NewFromInt(5)}
	svc, _ := NewService(repo)

	_, err := svc.RedeemCredit(context.Background(), RedeemCreditInput{
		CustomerID: uuid.New(),
		OrderID:    uuid.New(),
		Amount:     decimal.NewFromInt(10),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.createdRedemption != nil {
		t.Fatal("expected no redemption to be written")
	}
}

func TestService_GrantCreditDefaultsAndRounds(t *testing.T) {
	repo := &fakeRepository{}
	svc, _ := NewService(repo)

	expires := time.Now().Add(90 * 24 * time.Hour)
	credit, err := svc.GrantCredit(context.Background(), GrantCreditInput{
		CustomerID: uuid.New(),
		CoachID:    uuid.New(),
		Amount:     decimal.RequireFromString("9.999"),
		ExpiresAt:  &expires,
	})
	if err != nil {
		t.Fatalf("GrantCredit error: %v", err)
	}
	if credit.CreditType != enums.CreditTypeReferral {
		t.Fatalf("expected referral default type, got %s", credit.CreditType)
	}
	if !credit.CreditAmount.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected rounded amount 10, got %s", credit.CreditAmount)
	}
}

func TestService_RecomputeCoachBalanceFlagsDrift(t *testing.T) {
	coachID := uuid.New()
	repo := &fakeRepository{
		completedSum: decimal.NewFromInt(100),
		balance:      &models.CoachBalance{CoachID: coachID, Balance: decimal.NewFromInt(90)},
	}
	svc, _ := NewService(repo)

	result, err := svc.RecomputeCoachBalance(context.Background(), coachID)
	if err != nil {
		t.Fatalf("RecomputeCoachBalance error: %v", err)
	}
	if !result.Drifted {
		t.Fatal("expected drift to be flagged")
	}
	if !result.Repaired {
		t.Fatal("expected cached balance to be repaired")
	}
	if repo.setBalance == nil || !repo.setBalance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance reset to ledger sum, got %v", repo.setBalance)
	}
}

func TestService_RecomputeCoachBalanceNoDrift(t *testing.T) {
	coachID := uuid.New()
	repo := &fakeRepository{
		completedSum: decimal.NewFromInt(42),
		balance:      &models.CoachBalance{CoachID: coachID, Balance: decimal.NewFromInt(42)},
	}
	svc, _ := NewService(repo)

	result, err := svc.RecomputeCoachBalance(context.Background(), coachID)
	if err != nil {
		t.Fatalf("RecomputeCoachBalance error: %v", err)
	}
	if result.Drifted || result.Repaired {
		t.Fatalf("expected steady state, got %+v", result)
	}
	if repo.setBalance != nil {
		t.Fatal("expected no balance write")
	}
}
