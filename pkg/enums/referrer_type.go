package enums

import "fmt"

// ReferrerType distinguishes who supplied the referral code.
type ReferrerType string

const (
	ReferrerTypeCoach    ReferrerType = "coach"
	ReferrerTypeCustomer ReferrerType = "customer"
)

var validReferrerTypes = []ReferrerType{
	ReferrerTypeCoach,
	ReferrerTypeCustomer,
}

// IsValid reports whether the value matches the canonical referrer type enum.
func (t ReferrerType) IsValid() bool {
	for _, candidate := range validReferrerTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseReferrerType converts raw input into ReferrerType.
func ParseReferrerType(value string) (ReferrerType, error) {
	for _, candidate := range validReferrerTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid referrer type %q", value)
}
