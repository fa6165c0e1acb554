package commission

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velafit/coachrewards-backend/internal/bonus"
	"github.com/velafit/coachrewards-backend/internal/orders"
	"github.com/velafit/coachrewards-backend/internal/tier"
	"github.com/velafit/coachrewards-backend/pkg/config"
	"github.com/velafit/coachrewards-backend/pkg/db/models"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
)

type fakeProvider struct {
	orders.Provider

	order      *models.OrderSnapshot
	orderErr   error
	orderDates []time.Time
}

func (f *fakeProvider) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.OrderSnapshot, error) {
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	return f.order, nil
}

func (f *fakeProvider) CompletedOrderDates(ctx context.Context, customerID uuid.UUID) ([]time.Time, error) {
	return f.orderDates, nil
}

type fakeCounters struct {
	coachCompleted    int64
	customerReferrals int64
}

func (f *fakeCounters) CountCompletedByCoach(ctx context.Context, coachID uuid.UUID) (int64, error) {
	return f.coachCompleted, nil
}

func (f *fakeCounters) CountCompletedByReferrerCustomer(ctx context.Context, customerID uuid.UUID) (int64, error) {
	return f.customerReferrals, nil
}

func engineCommissionConfig() config.CommissionConfig {
	return config.CommissionConfig{
		BaseRates:             []float64{0.10, 0.08, 0.05},
		LoyaltyRates:          []float64{0.00, 0.02, 0.03},
		RetentionTwoSeasons:   10,
		RetentionThreeSeasons: 5,
		NetworkBonus:          5,
		TierSilverThreshold:   5,
		TierGoldThreshold:     10,
		TierPlatinumThreshold: 20,
	}
}

func newTestEngine(t *testing.T, provider *fakeProvider, counters *fakeCounters) Engine {
	t.Helper()
	cfg := engineCommissionConfig()
	resolver, err := tier.NewResolver(counters, cfg)
	if err != nil {
		t.Fatalf("NewResolver error: %v", err)
	}
	eng, err := NewEngine(bonus.NewCalculator(cfg), resolver, provider, counters)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	return eng
}

func snapshotFor(total, tax string, date time.Time) *models.OrderSnapshot {
	return &models.OrderSnapshot{
		ID:        uuid.New(),
		Total:     decimal.RequireFromString(total),
		Tax:       decimal.RequireFromString(tax),
		Currency:  "CHF",
		Status:    enums.OrderStatusCompleted,
		OrderDate: date,
	}
}

func TestCompute_AllComponents(t *testing.T) {
	// Saturday in August: seasonal and weekend bonuses both apply.
	date := time.Date(2025, time.August, 2, 10, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		// Prior seasons 2022, 2023 and 2024; the order itself adds 2025.
		orderDates: []time.Time{
			time.Date(2022, time.October, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2023, time.October, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	counters := &fakeCounters{coachCompleted: 10, customerReferrals: 1}
	eng := newTestEngine(t, provider, counters)

	// Net 1000, first purchase: base 100, loyalty 0.
	breakdown, err := eng.Compute(context.Background(), snapshotFor("1080", "80", date), uuid.New(), uuid.New(), 1)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}

	want := map[string]string{
		"base":      "100",
		"loyalty":   "0",
		"retention": "15",
		"network":   "5",
		"tier":      "5",
		"seasonal":  "50",
		"weekend":   "10",
		"total":     "185",
	}
	got := map[string]decimal.Decimal{
		"base":      breakdown.Base,
		"loyalty":   breakdown.Loyalty,
		"retention": breakdown.Retention,
		"network":   breakdown.Network,
		"tier":      breakdown.TierBonus,
		"seasonal":  breakdown.Seasonal,
		"weekend":   breakdown.Weekend,
		"total":     breakdown.Total,
	}
	for name, wantValue := range want {
		if !got[name].Equal(decimal.RequireFromString(wantValue)) {
			t.Fatalf("%s = %s, want %s", name, got[name], wantValue)
		}
	}
	if breakdown.Tier != enums.CoachTierGold {
		t.Fatalf("tier = %s, want gold", breakdown.Tier)
	}
}

func TestCompute_TotalIsSumOfRoundedComponents(t *testing.T) {
	date := time.Date(2025, time.June, 3, 10, 0, 0, 0, time.UTC)
	provider := &fakeProvider{}
	eng := newTestEngine(t, provider, &fakeCounters{})

	// Net 99.99 at the third-purchase rates forces rounding per component.
	breakdown, err := eng.Compute(context.Background(), snapshotFor("99.99", "0", date), uuid.New(), uuid.New(), 3)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}

	sum := breakdown.Base.
		Add(breakdown.Loyalty).
		Add(breakdown.Retention).
		Add(breakdown.Network).
		Add(breakdown.TierBonus).
		Add(breakdown.Seasonal).
		Add(breakdown.Weekend)
	if !breakdown.Total.Equal(sum) {
		t.Fatalf("total %s != component sum %s", breakdown.Total, sum)
	}
	for name, component := range map[string]decimal.Decimal{
		"base":    breakdown.Base,
		"loyalty": breakdown.Loyalty,
	} {
		if component.Exponent() < -2 {
			t.Fatalf("%s %s not rounded to two decimals", name, component)
		}
	}
}

func TestCompute_RetentionCountsCurrentOrderSeason(t *testing.T) {
	// One prior season; the order itself falls in the next season, so the
	// customer reaches the two-season threshold on this very purchase.
	provider := &fakeProvider{
		orderDates: []time.Time{
			time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	eng := newTestEngine(t, provider, &fakeCounters{})

	date := time.Date(2025, time.October, 7, 10, 0, 0, 0, time.UTC)
	breakdown, err := eng.Compute(context.Background(), snapshotFor("100", "0", date), uuid.New(), uuid.New(), 2)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if !breakdown.Retention.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("retention = %s, want 10", breakdown.Retention)
	}
}

func TestCompute_Validation(t *testing.T) {
	eng := newTestEngine(t, &fakeProvider{}, &fakeCounters{})
	order := snapshotFor("100", "0", time.Now())

	cases := []struct {
		name string
		run  func() error
	}{
		{"nil order", func() error {
			_, err := eng.Compute(context.Background(), nil, uuid.New(), uuid.New(), 1)
			return err
		}},
		{"nil coach", func() error {
			_, err := eng.Compute(context.Background(), order, uuid.Nil, uuid.New(), 1)
			return err
		}},
		{"nil customer", func() error {
			_, err := eng.Compute(context.Background(), order, uuid.New(), uuid.Nil, 1)
			return err
		}},
		{"zero purchase count", func() error {
			_, err := eng.Compute(context.Background(), order, uuid.New(), uuid.New(), 0)
			return err
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.run(); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestComputeTotalCommission_OrderNotFound(t *testing.T) {
	provider := &fakeProvider{orderErr: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	eng := newTestEngine(t, provider, &fakeCounters{})

	_, err := eng.ComputeTotalCommission(context.Background(), uuid.New(), uuid.New(), uuid.New(), 1)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
