package partnership

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/velafit/coachrewards-backend/internal/bonus"
	"github.com/velafit/coachrewards-backend/internal/tier"
	"github.com/velafit/coachrewards-backend/pkg/config"
	"github.com/velafit/coachrewards-backend/pkg/db/models"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
)

type fakeRepo struct {
	byCustomer map[uuid.UUID]*models.Partnership
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byCustomer: map[uuid.UUID]*models.Partnership{}}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) GetByCustomer(ctx context.Context, customerID uuid.UUID) (*models.Partnership, error) {
	partnership, ok := f.byCustomer[customerID]
	if !ok {
		return nil, nil
	}
	copied := *partnership
	return &copied, nil
}

func (f *fakeRepo) Upsert(ctx context.Context, partnership *models.Partnership) error {
	copied := *partnership
	f.byCustomer[partnership.CustomerID] = &copied
	return nil
}

func (f *fakeRepo) ListByCoach(ctx context.Context, coachID uuid.UUID) ([]models.Partnership, error) {
	var out []models.Partnership
	for _, p := range f.byCustomer {
		if p.CoachID == coachID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fixedCounter struct {
	completed int64
}

func (f fixedCounter) CountCompletedByCoach(ctx context.Context, coachID uuid.UUID) (int64, error) {
	return f.completed, nil
}

func testCommissionConfig() config.CommissionConfig {
	return config.CommissionConfig{
		BaseRates:             []float64{0.10, 0.08, 0.05},
		LoyaltyRates:          []float64{0.00, 0.02, 0.03},
		TierSilverThreshold:   5,
		TierGoldThreshold:     10,
		TierPlatinumThreshold: 20,
	}
}

func newTestService(t *testing.T, repo Repository, completed int64) Service {
	t.Helper()
	cfg := config.PartnershipConfig{Rate: 0.05, Cooldown: 720 * time.Hour}
	resolver, err := tier.NewResolver(fixedCounter{completed: completed}, testCommissionConfig())
	if err != nil {
		t.Fatalf("NewResolver error: %v", err)
	}
	svc, err := NewService(cfg, repo, bonus.NewCalculator(testCommissionConfig()), resolver)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return svc
}

func TestSelectPartner_FirstSelection(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, 0)
	customerID, coachID := uuid.New(), uuid.New()

	partnership, err := svc.SelectPartner(context.Background(), customerID, coachID)
	if err != nil {
		t.Fatalf("SelectPartner error: %v", err)
	}
	if partnership.CoachID != coachID {
		t.Fatalf("unexpected coach %s", partnership.CoachID)
	}
	if !partnership.CooldownUntil.After(partnership.StartedAt) {
		t.Fatalf("cooldown must extend past start")
	}
}

func TestSelectPartner_SameCoachIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, 0)
	customerID, coachID := uuid.New(), uuid.New()

	first, err := svc.SelectPartner(context.Background(), customerID, coachID)
	if err != nil {
		t.Fatalf("SelectPartner error: %v", err)
	}
	second, err := svc.SelectPartner(context.Background(), customerID, coachID)
	if err != nil {
		t.Fatalf("repeat SelectPartner error: %v", err)
	}
	if !second.CooldownUntil.Equal(first.CooldownUntil) {
		t.Fatalf("re-selecting the same coach must not move the cooldown")
	}
}

func TestSelectPartner_CooldownBlocksChange(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, 0)
	customerID := uuid.New()

	if _, err := svc.SelectPartner(context.Background(), customerID, uuid.New()); err != nil {
		t.Fatalf("SelectPartner error: %v", err)
	}

	_, err := svc.SelectPartner(context.Background(), customerID, uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeCooldown) {
		t.Fatalf("expected cooldown error, got %v", err)
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Details() == nil {
		t.Fatalf("cooldown error must report the remaining duration")
	}
}

func TestSelectPartner_ChangeAllowedAfterCooldown(t *testing.T) {
	repo := newFakeRepo()
	customerID := uuid.New()
	oldCoach, newCoach := uuid.New(), uuid.New()
	repo.byCustomer[customerID] = &models.Partnership{
		ID:            uuid.New(),
		CustomerID:    customerID,
		CoachID:       oldCoach,
		StartedAt:     time.Now().Add(-800 * time.Hour),
		CooldownUntil: time.Now().Add(-80 * time.Hour),
	}
	svc := newTestService(t, repo, 0)

	partnership, err := svc.SelectPartner(context.Background(), customerID, newCoach)
	if err != nil {
		t.Fatalf("SelectPartner error: %v", err)
	}
	if partnership.CoachID != newCoach {
		t.Fatalf("expected partner change to %s, got %s", newCoach, partnership.CoachID)
	}
	if !partnership.CooldownUntil.After(time.Now()) {
		t.Fatalf("change must start a fresh cooldown")
	}
}

func TestComputeCommission_FlatRateWithTierBonus(t *testing.T) {
	cases := []struct {
		name          string
		completed     int64
		wantBase      string
		wantTierBonus string
		wantTotal     string
	}{
		{"bronze no tier bonus", 0, "10", "0", "10"},
		{"silver two percent", 5, "10", "0.2", "10.2"},
		{"gold five percent", 10, "10", "0.5", "10.5"},
		{"platinum ten percent", 20, "10", "1", "11"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t, newFakeRepo(), tc.completed)

			commission, err := svc.ComputeCommission(context.Background(), uuid.New(), decimal.NewFromInt(200))
			if err != nil {
				t.Fatalf("ComputeCommission error: %v", err)
			}
			if !commission.Base.Equal(decimal.RequireFromString(tc.wantBase)) {
				t.Fatalf("base = %s, want %s", commission.Base, tc.wantBase)
			}
			if !commission.TierBonus.Equal(decimal.RequireFromString(tc.wantTierBonus)) {
				t.Fatalf("tier bonus = %s, want %s", commission.TierBonus, tc.wantTierBonus)
			}
			if !commission.Total.Equal(decimal.RequireFromString(tc.wantTotal)) {
				t.Fatalf("total = %s, want %s", commission.Total, tc.wantTotal)
			}
		})
	}
}

func TestComputeCommission_Validation(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), 0)

	if _, err := svc.ComputeCommission(context.Background(), uuid.Nil, decimal.NewFromInt(10)); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for nil coach, got %v", err)
	}
	if _, err := svc.ComputeCommission(context.Background(), uuid.New(), decimal.NewFromInt(-1)); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative total, got %v", err)
	}
}
