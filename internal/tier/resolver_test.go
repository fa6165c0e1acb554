package tier

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/velafit/coachrewards-backend/pkg/config"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
)

type fakeCounter struct {
	count int64
}

func (f *fakeCounter) CountCompletedByCoach(ctx context.Context, coachID uuid.UUID) (int64, error) {
	return f.count, nil
}

func defaultThresholds() config.CommissionConfig {
	return config.CommissionConfig{
		TierSilverThreshold:   5,
		TierGoldThreshold:     10,
		TierPlatinumThreshold: 20,
	}
}

func TestResolveTierThresholds(t *testing.T) {
	tests := []struct {
		completed int64
		want      enums.CoachTier
	}{
		{0, enums.CoachTierBronze},
		{4, enums.CoachTierBronze},
		{5, enums.CoachTierSilver},
		{9, enums.CoachTierSilver},
		{10, enums.CoachTierGold},
		{19, enums.CoachTierGold},
		{20, enums.CoachTierPlatinum},
		{57, enums.CoachTierPlatinum},
	}

	for _, tc := range tests {
		counter := &fakeCounter{count: tc.completed}
		resolver, err := NewResolver(counter, defaultThresholds())
		if err != nil {
			t.Fatalf("NewResolver error: %v", err)
		}
		got, err := resolver.ResolveTier(context.Background(), uuid.New())
		if err != nil {
			t.Fatalf("ResolveTier error: %v", err)
		}
		if got != tc.want {
			t.Fatalf("completed=%d: got %s, want %s", tc.completed, got, tc.want)
		}
	}
}

func TestResolveTierRequiresCoachID(t *testing.T) {
	resolver, err := NewResolver(&fakeCounter{}, defaultThresholds())
	if err != nil {
		t.Fatalf("NewResolver error: %v", err)
	}
	if _, err := resolver.ResolveTier(context.Background(), uuid.Nil); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
