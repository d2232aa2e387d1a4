package pattern

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/agnivade/levenshtein"
)

// Suggester explains which rules would categorize a transaction.
type Suggester struct {
	matcher Matcher
}

// NewSuggester creates a new category suggester.
func NewSuggester(matcher Matcher) *Suggester {
	return &Suggester{matcher: matcher}
}

// Suggest returns one suggestion per distinct category the matching rules would assign, best first.
func (s *Suggester) Suggest(ctx context.Context, txn model.Transaction) []Suggestion {
	rules := s.matcher.Match(ctx, txn)

	suggestions := make([]Suggestion, 0, len(rules))
	seen := make(map[string]bool)
	for _, rule := range rules {
		key := strings.ToLower(rule.Category)
		if seen[key] {
			continue
		}
		seen[key] = true

		suggestions = append(suggestions, Suggestion{
			Category: rule.Category,
			Reason:   generateReason(txn, rule),
			RuleID:   rule.ID,
			Priority: effectivePriority(rule),
		})
	}
	return suggestions
}

// generateReason creates a human-readable explanation for why a category was suggested.
func generateReason(txn model.Transaction, rule Rule) string {
	var parts []string
	if rule.HasMerchant() {
		parts = append(parts, fmt.Sprintf("merchant contains %q", rule.MerchantContains))
	}
	if rule.HasDescription() {
		parts = append(parts, fmt.Sprintf("description contains %q", rule.DescriptionContains))
	}
	if rule.HasExtendedDescription() {
		parts = append(parts, fmt.Sprintf("details contain %q", rule.ExtendedDescriptionContains))
	}

	switch {
	case rule.AmountMin != nil && rule.AmountMax != nil:
		parts = append(parts, fmt.Sprintf("amount between $%s and $%s", rule.AmountMin.StringFixed(2), rule.AmountMax.StringFixed(2)))
	case rule.AmountMin != nil:
		parts = append(parts, fmt.Sprintf("amount at least $%s", rule.AmountMin.StringFixed(2)))
	case rule.AmountMax != nil:
		parts = append(parts, fmt.Sprintf("amount at most $%s", rule.AmountMax.StringFixed(2)))
	}

	reason := fmt.Sprintf("%s: %s", txn.Counterparty(), strings.Join(parts, ", "))
	if rule.MatchCount > 0 {
		reason += fmt.Sprintf(" (matched %d times)", rule.MatchCount)
	}
	return reason
}

// SuggestCategory maps a free-form category name onto the closest known category.
// Exact case-insensitive matches win; otherwise the nearest name within an edit
// distance of max(2, len/3) is returned.
func SuggestCategory(name string, known []string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return "", false
	}

	for _, category := range known {
		if strings.ToLower(category) == needle {
			return category, true
		}
	}

	limit := len(needle) / 3
	if limit < 2 {
		limit = 2
	}

	best := ""
	bestDistance := limit + 1
	for _, category := range known {
		d := levenshtein.ComputeDistance(needle, strings.ToLower(category))
		if d < bestDistance {
			best = category
			bestDistance = d
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}
