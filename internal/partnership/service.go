package partnership

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velafit/coachrewards-backend/internal/bonus"
	"github.com/velafit/coachrewards-backend/internal/tier"
	"github.com/velafit/coachrewards-backend/pkg/config"
	"github.com/velafit/coachrewards-backend/pkg/db/models"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
)

// Service manages standing partnerships and the recurring commission they
// earn. The partnership rate is flat per order, unlike the ordinal-dependent
// referral base rate; tier bonuses apply on top of it the same way.
type Service interface {
	SelectPartner(ctx context.Context, customerID, coachID uuid.UUID) (*models.Partnership, error)
	GetPartner(ctx context.Context, customerID uuid.UUID) (*models.Partnership, error)
	ComputeCommission(ctx context.Context, coachID uuid.UUID, netTotal decimal.Decimal) (Commission, error)
}

// Commission is one partnership payout for one order.
type Commission struct {
	CoachID   uuid.UUID       `json:"coach_id"`
	Tier      string          `json:"tier"`
	Base      decimal.Decimal `json:"base"`
	TierBonus decimal.Decimal `json:"tier_bonus"`
	Total     decimal.Decimal `json:"total"`
}

type service struct {
	cfg      config.PartnershipConfig
	repo     Repository
	calc     *bonus.Calculator
	resolver *tier.Resolver
	now      func() time.Time
}

// NewService wires the partnership engine.
func NewService(cfg config.PartnershipConfig, repo Repository, calc *bonus.Calculator, resolver *tier.Resolver) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("partnership repository required")
	}
	if calc == nil {
		return nil, fmt.Errorf("bonus calculator required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("tier resolver required")
	}
	return &service{cfg: cfg, repo: repo, calc: calc, resolver: resolver, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) SelectPartner(ctx context.Context, customerID, coachID uuid.UUID) (*models.Partnership, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if coachID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coach id is required")
	}

	existing, err := s.repo.GetByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load partnership")
	}

	now := s.now()
	if existing != nil {
		if existing.CoachID == coachID {
			return existing, nil
		}
		if now.Before(existing.CooldownUntil) {
			remaining := existing.CooldownUntil.Sub(now).Round(time.Second)
			return nil, pkgerrors.New(pkgerrors.CodeCooldown, "partner change is in cooldown").
				WithDetails(map[string]any{
					"cooldown_until": existing.CooldownUntil,
					"remaining":      remaining.String(),
				})
		}
	}

	partnership := &models.Partnership{
		CustomerID:    customerID,
		CoachID:       coachID,
		StartedAt:     now,
		CooldownUntil: now.Add(s.cfg.Cooldown),
	}
	if existing != nil {
		partnership.ID = existing.ID
		partnership.CreatedAt = existing.CreatedAt
	}
	if err := s.repo.Upsert(ctx, partnership); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "persist partnership")
	}
	return partnership, nil
}

func (s *service) GetPartner(ctx context.Context, customerID uuid.UUID) (*models.Partnership, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	partnership, err := s.repo.GetByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load partnership")
	}
	return partnership, nil
}

func (s *service) ComputeCommission(ctx context.Context, coachID uuid.UUID, netTotal decimal.Decimal) (Commission, error) {
	if coachID == uuid.Nil {
		return Commission{}, pkgerrors.New(pkgerrors.CodeValidation, "coach id is required")
	}
	if netTotal.IsNegative() {
		return Commission{}, pkgerrors.New(pkgerrors.CodeValidation, "net total must not be negative")
	}

	coachTier, err := s.resolver.ResolveTier(ctx, coachID)
	if err != nil {
		return Commission{}, err
	}

	base := netTotal.Mul(decimal.NewFromFloat(s.cfg.Rate)).Round(2)
	tierBonus := s.calc.TierBonus(base, coachTier)
	return Commission{
		CoachID:   coachID,
		Tier:      string(coachTier),
		Base:      base,
		TierBonus: tierBonus,
		Total:     base.Add(tierBonus),
	}, nil
}
