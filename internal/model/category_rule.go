package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultRulePriority is used when no more specific priority applies.
const DefaultRulePriority = 6

// CategoryRule is a user-defined policy that assigns a category to matching transactions.
// Every condition that is set must hold for the rule to match.
type CategoryRule struct {
	CreatedAt                   time.Time        `json:"created_at"`
	UpdatedAt                   time.Time        `json:"updated_at"`
	AmountMin                   *decimal.Decimal `json:"amount_min,omitempty"`
	AmountMax                   *decimal.Decimal `json:"amount_max,omitempty"`
	UserID                      string           `json:"user_id"`
	Category                    string           `json:"category"`
	DescriptionContains         string           `json:"description_contains,omitempty"`
	MerchantContains            string           `json:"merchant_contains,omitempty"`
	ExtendedDescriptionContains string           `json:"extended_description_contains,omitempty"`
	ID                          int              `json:"id"`
	Priority                    int              `json:"priority"`
	MatchCount                  int              `json:"match_count"`
	IsActive                    bool             `json:"is_active"`
}

// HasDescription reports whether the description predicate is set.
func (r *CategoryRule) HasDescription() bool {
	return strings.TrimSpace(r.DescriptionContains) != ""
}

// HasMerchant reports whether the merchant predicate is set.
func (r *CategoryRule) HasMerchant() bool {
	return strings.TrimSpace(r.MerchantContains) != ""
}

// HasExtendedDescription reports whether the extended description predicate is set.
func (r *CategoryRule) HasExtendedDescription() bool {
	return strings.TrimSpace(r.ExtendedDescriptionContains) != ""
}

// ConditionCount returns how many conditions the rule specifies.
func (r *CategoryRule) ConditionCount() int {
	count := 0
	for _, set := range []bool{
		r.HasDescription(),
		r.HasMerchant(),
		r.HasExtendedDescription(),
		r.AmountMin != nil,
		r.AmountMax != nil,
	} {
		if set {
			count++
		}
	}
	return count
}

// HasConditions reports whether the rule specifies at least one condition.
func (r *CategoryRule) HasConditions() bool {
	return r.ConditionCount() > 0
}

// Clone returns a deep copy of the rule.
func (r CategoryRule) Clone() CategoryRule {
	if r.AmountMin != nil {
		v := *r.AmountMin
		r.AmountMin = &v
	}
	if r.AmountMax != nil {
		v := *r.AmountMax
		r.AmountMax = &v
	}
	return r
}
