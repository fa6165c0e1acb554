package tier

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/velafit/coachrewards-backend/pkg/config"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
)

// completedCounter is the slice of the ledger the resolver reads.
type completedCounter interface {
	CountCompletedByCoach(ctx context.Context, coachID uuid.UUID) (int64, error)
}

// Resolver derives a coach's performance tier from completed referral
// counts. Tiers are a projection over the ledger and are never stored.
type Resolver struct {
	counter  completedCounter
	silver   int64
	gold     int64
	platinum int64
}

// NewResolver builds a resolver with the configured ascending thresholds.
func NewResolver(counter completedCounter, cfg config.CommissionConfig) (*Resolver, error) {
	if counter == nil {
		return nil, fmt.Errorf("completed-referral counter required")
	}
	return &Resolver{
		counter:  counter,
		silver:   int64(cfg.TierSilverThreshold),
		gold:     int64(cfg.TierGoldThreshold),
		platinum: int64(cfg.TierPlatinumThreshold),
	}, nil
}

// ResolveTier recomputes the tier for the given coach.
func (r *Resolver) ResolveTier(ctx context.Context, coachID uuid.UUID) (enums.CoachTier, error) {
	if coachID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "coach id is required")
	}
	completed, err := r.counter.CountCompletedByCoach(ctx, coachID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodePersistence, err, "count completed referrals")
	}
	return r.tierFor(completed), nil
}

func (r *Resolver) tierFor(completed int64) enums.CoachTier {
	switch {
	case completed >= r.platinum:
		return enums.CoachTierPlatinum
	case completed >= r.gold:
		return enums.CoachTierGold
	case completed >= r.silver:
		return enums.CoachTierSilver
	default:
		return enums.CoachTierBronze
	}
}
