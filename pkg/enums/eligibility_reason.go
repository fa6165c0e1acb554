package enums

import "fmt"

// EligibilityReason explains why a referral was or was not treated as a
// genuine new acquisition.
type EligibilityReason string

const (
	EligibilityReasonNoHistory      EligibilityReason = "no_history"
	EligibilityReasonDormant        EligibilityReason = "dormant_customer"
	EligibilityReasonRecentPurchase EligibilityReason = "recent_purchase"
	EligibilityReasonGuestCheckout  EligibilityReason = "guest_checkout"
	EligibilityReasonRuleDisabled   EligibilityReason = "rule_disabled"
	EligibilityReasonManualOverride EligibilityReason = "manual_override"
	EligibilityReasonManualBlock    EligibilityReason = "manual_block"
)

var validEligibilityReasons = []EligibilityReason{
	EligibilityReasonNoHistory,
	EligibilityReasonDormant,
	EligibilityReasonRecentPurchase,
	EligibilityReasonGuestCheckout,
	EligibilityReasonRuleDisabled,
	EligibilityReasonManualOverride,
	EligibilityReasonManualBlock,
}

// IsValid reports whether the value matches the canonical eligibility reason enum.
func (r EligibilityReason) IsValid() bool {
	for _, candidate := range validEligibilityReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseEligibilityReason converts raw input into EligibilityReason.
func ParseEligibilityReason(value string) (EligibilityReason, error) {
	for _, candidate := range validEligibilityReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid eligibility reason %q", value)
}

// OverrideStatus is the target state an admin override requests.
type OverrideStatus string

const (
	OverrideStatusEligible   OverrideStatus = "eligible"
	OverrideStatusIneligible OverrideStatus = "ineligible"
)

var validOverrideStatuses = []OverrideStatus{
	OverrideStatusEligible,
	OverrideStatusIneligible,
}

// IsValid reports whether the value matches the canonical override status enum.
func (s OverrideStatus) IsValid() bool {
	for _, candidate := range validOverrideStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOverrideStatus converts raw input into OverrideStatus.
func ParseOverrideStatus(value string) (OverrideStatus, error) {
	for _, candidate := range validOverrideStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid override status %q", value)
}
