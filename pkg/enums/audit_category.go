package enums

import "fmt"

// AuditCategory maps to the audit_category_enum enum in Postgres.
type AuditCategory string

const (
	AuditCategoryUser       AuditCategory = "user"
	AuditCategoryAdmin      AuditCategory = "admin"
	AuditCategoryReferral   AuditCategory = "referral"
	AuditCategoryPoints     AuditCategory = "points"
	AuditCategoryCommission AuditCategory = "commission"
	AuditCategorySecurity   AuditCategory = "security"
	AuditCategorySystem     AuditCategory = "system"
)

var validAuditCategories = []AuditCategory{
	AuditCategoryUser,
	AuditCategoryAdmin,
	AuditCategoryReferral,
	AuditCategoryPoints,
	AuditCategoryCommission,
	AuditCategorySecurity,
	AuditCategorySystem,
}

// IsValid reports whether the value matches the canonical audit category enum.
func (c AuditCategory) IsValid() bool {
	for _, candidate := range validAuditCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseAuditCategory converts raw input into AuditCategory.
func ParseAuditCategory(value string) (AuditCategory, error) {
	for _, candidate := range validAuditCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit category %q", value)
}
