package enums

import "fmt"

// CreditStatus maps to the credit_status_enum enum in Postgres.
type CreditStatus string

const (
	CreditStatusActive  CreditStatus = "active"
	CreditStatusExpired CreditStatus = "expired"
	CreditStatusRevoked CreditStatus = "revoked"
)

var validCreditStatuses = []CreditStatus{
	CreditStatusActive,
	CreditStatusExpired,
	CreditStatusRevoked,
}

// IsValid reports whether the value matches the canonical credit status enum.
func (s CreditStatus) IsValid() bool {
	for _, candidate := range validCreditStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CreditType classifies the origin of a customer credit grant.
type CreditType string

const (
	CreditTypeReferral   CreditType = "referral"
	CreditTypePromo      CreditType = "promo"
	CreditTypeAdjustment CreditType = "adjustment"
)

var validCreditTypes = []CreditType{
	CreditTypeReferral,
	CreditTypePromo,
	CreditTypeAdjustment,
}

// IsValid reports whether the value matches the canonical credit type enum.
func (t CreditType) IsValid() bool {
	for _, candidate := range validCreditTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseCreditType converts raw input into CreditType.
func ParseCreditType(value string) (CreditType, error) {
	for _, candidate := range validCreditTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credit type %q", value)
}
