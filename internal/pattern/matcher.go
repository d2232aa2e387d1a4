package pattern

import (
	"context"
	"sort"
	"strings"

	"github.com/Veraticus/spice-budget/internal/model"
)

// MatcherImpl implements Matcher for evaluating category rules.
type MatcherImpl struct {
	rules []Rule
}

// NewMatcher creates a new matcher over the active rules in the given set.
func NewMatcher(rules []Rule) *MatcherImpl {
	active := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.IsActive {
			active = append(active, rule)
		}
	}
	sortByPriority(active)

	return &MatcherImpl{rules: active}
}

// Rules returns the active rules in evaluation order.
func (m *MatcherImpl) Rules() []Rule {
	return m.rules
}

// Match evaluates a transaction against all active rules and returns the matches in evaluation order.
func (m *MatcherImpl) Match(_ context.Context, txn model.Transaction) []Rule {
	var matches []Rule
	for _, rule := range m.rules {
		if Matches(rule, txn) {
			matches = append(matches, rule)
		}
	}
	return matches
}

// Best returns the first matching rule in evaluation order.
func (m *MatcherImpl) Best(_ context.Context, txn model.Transaction) (Rule, bool) {
	for _, rule := range m.rules {
		if Matches(rule, txn) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Matches reports whether every condition the rule specifies holds for the transaction.
// Inactive rules and rules without conditions never match.
func Matches(rule Rule, txn model.Transaction) bool {
	if !rule.IsActive || !rule.HasConditions() {
		return false
	}

	if rule.HasDescription() && !containsFold(txn.Description, rule.DescriptionContains) {
		return false
	}
	if rule.HasMerchant() && !containsFold(txn.MerchantName, rule.MerchantContains) {
		return false
	}
	if rule.HasExtendedDescription() && !containsFold(txn.ExtendedDescription, rule.ExtendedDescriptionContains) {
		return false
	}

	return matchesAmount(txn, rule)
}

// matchesAmount checks the inclusive amount bounds.
func matchesAmount(txn model.Transaction, rule Rule) bool {
	if rule.AmountMin != nil && txn.Amount.LessThan(*rule.AmountMin) {
		return false
	}
	if rule.AmountMax != nil && txn.Amount.GreaterThan(*rule.AmountMax) {
		return false
	}
	return true
}

// containsFold is a case-insensitive substring test. An empty field never contains a pattern.
func containsFold(field, pattern string) bool {
	if field == "" {
		return false
	}
	return strings.Contains(strings.ToLower(field), strings.ToLower(strings.TrimSpace(pattern)))
}

// sortByPriority orders rules by priority (lowest first), then by id.
// Persisted rules come before unsaved ones (id 0) at equal priority.
func sortByPriority(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		pi, pj := effectivePriority(rules[i]), effectivePriority(rules[j])
		if pi != pj {
			return pi < pj
		}
		ii, ij := rules[i].ID, rules[j].ID
		switch {
		case ii == ij:
			return false
		case ii == 0:
			return false
		case ij == 0:
			return true
		default:
			return ii < ij
		}
	})
}

// effectivePriority derives the priority from the rule's conditions when none was set.
func effectivePriority(rule Rule) int {
	if rule.Priority <= 0 {
		return AssignPriority(rule)
	}
	return rule.Priority
}

// Ensure MatcherImpl implements Matcher.
var _ Matcher = (*MatcherImpl)(nil)
