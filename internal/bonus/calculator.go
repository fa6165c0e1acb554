package bonus

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/velafit/coachrewards-backend/pkg/config"
	"github.com/velafit/coachrewards-backend/pkg/enums"
)

// Calculator computes the individual commission components for one order.
// Every method returns a CHF amount already rounded to 2 decimal places;
// callers sum the rounded components rather than rounding a raw total, so
// results are reproducible.
type Calculator struct {
	cfg config.CommissionConfig
}

// NewCalculator builds a calculator from the configured rate tables.
func NewCalculator(cfg config.CommissionConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// tierMultipliers maps the coach tier to the share of base commission paid on top.
var tierMultipliers = map[enums.CoachTier]decimal.Decimal{
	enums.CoachTierBronze:   decimal.Zero,
	enums.CoachTierSilver:   decimal.NewFromFloat(0.02),
	enums.CoachTierGold:     decimal.NewFromFloat(0.05),
	enums.CoachTierPlatinum: decimal.NewFromFloat(0.10),
}

// BaseCommission applies the purchase-ordinal rate table to the net order total.
func (c *Calculator) BaseCommission(netTotal decimal.Decimal, purchaseCount int) decimal.Decimal {
	return netTotal.Mul(rateFor(c.cfg.BaseRates, purchaseCount)).Round(2)
}

// LoyaltyBonus applies the loyalty rate table to the net order total.
func (c *Calculator) LoyaltyBonus(netTotal decimal.Decimal, purchaseCount int) decimal.Decimal {
	return netTotal.Mul(rateFor(c.cfg.LoyaltyRates, purchaseCount)).Round(2)
}

// RetentionBonus pays a flat amount once the customer has purchased across at
// least two distinct seasons, with an additional increment from the third
// season onward.
func (c *Calculator) RetentionBonus(seasonCount int) decimal.Decimal {
	if seasonCount < 2 {
		return decimal.Zero.Round(2)
	}
	amount := decimal.NewFromFloat(c.cfg.RetentionTwoSeasons)
	if seasonCount >= 3 {
		amount = amount.Add(decimal.NewFromFloat(c.cfg.RetentionThreeSeasons))
	}
	return amount.Round(2)
}

// NetworkBonus rewards customers who have themselves generated at least one
// completed referral.
func (c *Calculator) NetworkBonus(hasOwnCompletedReferral bool) decimal.Decimal {
	if !hasOwnCompletedReferral {
		return decimal.Zero.Round(2)
	}
	return decimal.NewFromFloat(c.cfg.NetworkBonus).Round(2)
}

// TierBonus applies the coach-tier multiplier to the base commission amount,
// not to the order total.
func (c *Calculator) TierBonus(baseCommission decimal.Decimal, tier enums.CoachTier) decimal.Decimal {
	multiplier, ok := tierMultipliers[tier]
	if !ok {
		multiplier = decimal.Zero
	}
	return baseCommission.Mul(multiplier).Round(2)
}

// seasonalMultipliers holds the order-date promotions: back-to-school,
// holiday and spring windows. The value is the full multiplier; the bonus is
// (multiplier - 1) x base.
var seasonalMultipliers = map[time.Month]decimal.Decimal{
	time.August:    decimal.NewFromFloat(1.5),
	time.September: decimal.NewFromFloat(1.5),
	time.November:  decimal.NewFromFloat(1.3),
	time.December:  decimal.NewFromFloat(1.3),
	time.March:     decimal.NewFromFloat(1.2),
	time.April:     decimal.NewFromFloat(1.2),
}

// SeasonalBonus returns the incremental promotion amount for the order date.
func SeasonalBonus(baseCommission decimal.Decimal, orderDate time.Time) decimal.Decimal {
	multiplier, ok := seasonalMultipliers[orderDate.Month()]
	if !ok {
		return decimal.Zero.Round(2)
	}
	return baseCommission.Mul(multiplier.Sub(decimal.NewFromInt(1))).Round(2)
}

// WeekendBonus pays 10% of base commission for Saturday and Sunday orders.
func WeekendBonus(baseCommission decimal.Decimal, orderDate time.Time) decimal.Decimal {
	switch orderDate.Weekday() {
	case time.Saturday, time.Sunday:
		return baseCommission.Mul(decimal.NewFromFloat(0.10)).Round(2)
	default:
		return decimal.Zero.Round(2)
	}
}

// SeasonOf returns the starting year of the season a date falls into. A
// season runs from September to the following June, so September onward
// belongs to the season starting that year and earlier months to the season
// started the previous year.
func SeasonOf(date time.Time) int {
	if date.Month() >= time.September {
		return date.Year()
	}
	return date.Year() - 1
}

// CountDistinctSeasons reports how many different seasons the given purchase
// dates span.
func CountDistinctSeasons(dates []time.Time) int {
	seen := map[int]struct{}{}
	for _, date := range dates {
		seen[SeasonOf(date)] = struct{}{}
	}
	return len(seen)
}

// rateFor selects the purchase-ordinal rate: first purchase uses the first
// entry, second the second, and all later purchases the last entry.
func rateFor(rates []float64, purchaseCount int) decimal.Decimal {
	if len(rates) == 0 {
		return decimal.Zero
	}
	idx := purchaseCount - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(rates) {
		idx = len(rates) - 1
	}
	return decimal.NewFromFloat(rates[idx])
}
