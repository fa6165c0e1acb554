package enums

import "fmt"

// ReferralStatus maps to the referral_status_enum enum in Postgres.
type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusApproved  ReferralStatus = "approved"
	ReferralStatusPaid      ReferralStatus = "paid"
	ReferralStatusCompleted ReferralStatus = "completed"
	ReferralStatusFailed    ReferralStatus = "failed"
)

var validReferralStatuses = []ReferralStatus{
	ReferralStatusPending,
	ReferralStatusApproved,
	ReferralStatusPaid,
	ReferralStatusCompleted,
	ReferralStatusFailed,
}

// IsValid reports whether the value matches the canonical referral status enum.
func (s ReferralStatus) IsValid() bool {
	for _, candidate := range validReferralStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the referral lifecycle.
func (s ReferralStatus) IsTerminal() bool {
	return s == ReferralStatusCompleted || s == ReferralStatusFailed
}

// ParseReferralStatus converts raw input into ReferralStatus.
func ParseReferralStatus(value string) (ReferralStatus, error) {
	for _, candidate := range validReferralStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid referral status %q", value)
}
