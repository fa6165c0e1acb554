package enums

import "fmt"

// CoachTier is the performance bracket derived from completed referrals.
// Tiers are never stored; they are recomputed from ledger counts.
type CoachTier string

const (
	CoachTierBronze   CoachTier = "bronze"
	CoachTierSilver   CoachTier = "silver"
	CoachTierGold     CoachTier = "gold"
	CoachTierPlatinum CoachTier = "platinum"
)

var validCoachTiers = []CoachTier{
	CoachTierBronze,
	CoachTierSilver,
	CoachTierGold,
	CoachTierPlatinum,
}

// IsValid reports whether the value matches the canonical coach tier enum.
func (t CoachTier) IsValid() bool {
	for _, candidate := range validCoachTiers {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseCoachTier converts raw input into CoachTier.
func ParseCoachTier(value string) (CoachTier, error) {
	for _, candidate := range validCoachTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coach tier %q", value)
}
