package pattern

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-budget/internal/model"
)

// Rule validation errors.
var (
	ErrNoConditions       = errors.New("rule must specify at least one condition")
	ErrMissingCategory    = errors.New("rule must target a category")
	ErrMissingUser        = errors.New("rule must belong to a user")
	ErrInvalidAmountRange = errors.New("amount minimum exceeds maximum")
	ErrInvalidPriority    = errors.New("priority cannot be negative")
)

// ValidateRule checks that a rule is well-formed before it is persisted.
func ValidateRule(rule *Rule) error {
	if rule == nil {
		return fmt.Errorf("rule cannot be nil")
	}
	if strings.TrimSpace(rule.UserID) == "" {
		return ErrMissingUser
	}
	if strings.TrimSpace(rule.Category) == "" {
		return ErrMissingCategory
	}
	if !rule.HasConditions() {
		return ErrNoConditions
	}
	if rule.AmountMin != nil && rule.AmountMax != nil && rule.AmountMin.GreaterThan(*rule.AmountMax) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidAmountRange, rule.AmountMin.String(), rule.AmountMax.String())
	}
	if rule.Priority < 0 {
		return ErrInvalidPriority
	}
	return nil
}

// PrepareRule validates a new rule and fills in its priority when unset.
func PrepareRule(rule *Rule) error {
	if err := ValidateRule(rule); err != nil {
		return err
	}
	if rule.Priority == 0 {
		rule.Priority = AssignPriority(*rule)
	}
	return nil
}

// AssignPriority ranks a rule by which condition types it combines.
// More specific combinations get a lower value and are evaluated first.
func AssignPriority(rule Rule) int {
	desc := rule.HasDescription()
	merchant := rule.HasMerchant()
	hasMin := rule.AmountMin != nil
	hasMax := rule.AmountMax != nil

	switch {
	case desc && merchant && hasMin && hasMax:
		return 1
	case merchant && hasMin && hasMax:
		return 2
	case merchant && hasMin:
		return 3
	case merchant && hasMax:
		return 4
	case desc && merchant:
		return 5
	case merchant:
		return 6
	default:
		return model.DefaultRulePriority
	}
}
