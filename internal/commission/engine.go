package commission

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velafit/coachrewards-backend/internal/bonus"
	"github.com/velafit/coachrewards-backend/internal/orders"
	"github.com/velafit/coachrewards-backend/internal/tier"
	"github.com/velafit/coachrewards-backend/pkg/db/models"
	"github.com/velafit/coachrewards-backend/pkg/enums"
	pkgerrors "github.com/velafit/coachrewards-backend/pkg/errors"
)

// Breakdown is one full commission computation. Each component is rounded to
// two decimals on its own; Total is the exact sum of the rounded components.
type Breakdown struct {
	Tier      enums.CoachTier `json:"tier"`
	Base      decimal.Decimal `json:"base"`
	Loyalty   decimal.Decimal `json:"loyalty"`
	Retention decimal.Decimal `json:"retention"`
	Network   decimal.Decimal `json:"network"`
	TierBonus decimal.Decimal `json:"tier_bonus"`
	Seasonal  decimal.Decimal `json:"seasonal"`
	Weekend   decimal.Decimal `json:"weekend"`
	Total     decimal.Decimal `json:"total"`
}

// Extras sums every component on top of the base commission and loyalty
// bonus; the referral record folds these into its retention column.
func (b Breakdown) Extras() decimal.Decimal {
	return b.Retention.Add(b.Network).Add(b.TierBonus).Add(b.Seasonal).Add(b.Weekend)
}

// referrerCounter reports whether a customer has generated completed
// referrals of their own.
type referrerCounter interface {
	CountCompletedByReferrerCustomer(ctx context.Context, customerID uuid.UUID) (int64, error)
}

// Engine computes the seven-component commission for one (order, coach,
// customer) triple.
type Engine interface {
	ComputeTotalCommission(ctx context.Context, orderID, coachID, customerID uuid.UUID, purchaseCount int) (Breakdown, error)
	Compute(ctx context.Context, order *models.OrderSnapshot, coachID, customerID uuid.UUID, purchaseCount int) (Breakdown, error)
}

type engine struct {
	calc      *bonus.Calculator
	resolver  *tier.Resolver
	orders    orders.Provider
	referrers referrerCounter
}

// NewEngine wires the commission engine.
func NewEngine(calc *bonus.Calculator, resolver *tier.Resolver, provider orders.Provider, referrers referrerCounter) (Engine, error) {
	if calc == nil {
		return nil, fmt.Errorf("bonus calculator required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("tier resolver required")
	}
	if provider == nil {
		return nil, fmt.Errorf("order provider required")
	}
	if referrers == nil {
		return nil, fmt.Errorf("referrer counter required")
	}
	return &engine{calc: calc, resolver: resolver, orders: provider, referrers: referrers}, nil
}

func (e *engine) ComputeTotalCommission(ctx context.Context, orderID, coachID, customerID uuid.UUID, purchaseCount int) (Breakdown, error) {
	if orderID == uuid.Nil {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := e.orders.GetOrder(ctx, orderID)
	if err != nil {
		return Breakdown{}, err
	}
	return e.Compute(ctx, order, coachID, customerID, purchaseCount)
}

func (e *engine) Compute(ctx context.Context, order *models.OrderSnapshot, coachID, customerID uuid.UUID, purchaseCount int) (Breakdown, error) {
	if order == nil {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "order snapshot is required")
	}
	if coachID == uuid.Nil {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "coach id is required")
	}
	if customerID == uuid.Nil {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if purchaseCount < 1 {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "purchase count must be at least 1")
	}

	net := order.NetTotal()
	base := e.calc.BaseCommission(net, purchaseCount)
	loyalty := e.calc.LoyaltyBonus(net, purchaseCount)

	dates, err := e.orders.CompletedOrderDates(ctx, customerID)
	if err != nil {
		return Breakdown{}, err
	}
	// The order being commissioned marks activity in its own season, so a
	// customer crossing into a second season on this purchase qualifies.
	retention := e.calc.RetentionBonus(bonus.CountDistinctSeasons(append(dates, order.OrderDate)))

	ownReferrals, err := e.referrers.CountCompletedByReferrerCustomer(ctx, customerID)
	if err != nil {
		return Breakdown{}, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "count customer referrals")
	}
	network := e.calc.NetworkBonus(ownReferrals > 0)

	coachTier, err := e.resolver.ResolveTier(ctx, coachID)
	if err != nil {
		return Breakdown{}, err
	}
	tierBonus := e.calc.TierBonus(base, coachTier)
	seasonal := bonus.SeasonalBonus(base, order.OrderDate)
	weekend := bonus.WeekendBonus(base, order.OrderDate)

	breakdown := Breakdown{
		Tier:      coachTier,
		Base:      base,
		Loyalty:   loyalty,
		Retention: retention,
		Network:   network,
		TierBonus: tierBonus,
		Seasonal:  seasonal,
		Weekend:   weekend,
	}
	breakdown.Total = base.Add(loyalty).Add(breakdown.Extras())
	return breakdown, nil
}
