package pattern

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-budget/internal/model"
)

// Assignment records the category a rule gave one transaction.
type Assignment struct {
	TransactionID string
	Category      string
	RuleID        int
}

// CategorizeResult summarizes a categorization pass.
type CategorizeResult struct {
	Transactions []model.Transaction
	Assignments  []Assignment
	Unmatched    int
	Skipped      int // already categorized
}

// Categorizer assigns categories to uncategorized transactions using a user's rules.
type Categorizer struct {
	matcher  Matcher
	recorder MatchRecorder
	logger   *slog.Logger
}

// NewCategorizer creates a categorizer. The recorder may be nil when match counts are not persisted.
func NewCategorizer(matcher Matcher, recorder MatchRecorder) *Categorizer {
	return &Categorizer{
		matcher:  matcher,
		recorder: recorder,
		logger:   slog.Default().With("component", "categorizer"),
	}
}

// Categorize returns the category for a single transaction.
// A transaction no rule matches keeps the Uncategorized category.
func (c *Categorizer) Categorize(ctx context.Context, txn model.Transaction) (string, *Rule) {
	rule, ok := c.matcher.Best(ctx, txn)
	if !ok {
		return model.UncategorizedCategory, nil
	}
	return rule.Category, &rule
}

// Apply categorizes every uncategorized transaction and reports each firing rule to the recorder.
// The input slice is not modified; the result carries updated copies.
func (c *Categorizer) Apply(ctx context.Context, txns []model.Transaction) (*CategorizeResult, error) {
	result := &CategorizeResult{
		Transactions: make([]model.Transaction, len(txns)),
	}

	for i, txn := range txns {
		result.Transactions[i] = txn
		if !txn.IsUncategorized() {
			result.Skipped++
			continue
		}

		category, rule := c.Categorize(ctx, txn)
		if rule == nil {
			result.Unmatched++
			continue
		}

		updated := txn
		updated.SetCategory(category)
		result.Transactions[i] = updated
		result.Assignments = append(result.Assignments, Assignment{
			TransactionID: txn.ID,
			Category:      category,
			RuleID:        rule.ID,
		})

		if c.recorder != nil && rule.ID != 0 {
			if err := c.recorder.IncrementRuleMatchCount(ctx, rule.ID); err != nil {
				return nil, fmt.Errorf("failed to record match for rule %d: %w", rule.ID, err)
			}
		}
	}

	c.logger.Debug("Categorization pass complete",
		"transactions", len(txns),
		"assigned", len(result.Assignments),
		"unmatched", result.Unmatched,
		"skipped", result.Skipped)

	return result, nil
}

// Recategorize handles a manual recategorization with advanced matching: the rule built from
// the user's choices is created in the store, applied to the transaction, and counted.
func Recategorize(ctx context.Context, store RuleStore, txn model.Transaction, rule *Rule) (model.Transaction, error) {
	if err := PrepareRule(rule); err != nil {
		return txn, fmt.Errorf("invalid rule: %w", err)
	}

	rule.IsActive = true
	if err := store.CreateRule(ctx, rule); err != nil {
		return txn, fmt.Errorf("failed to create rule: %w", err)
	}

	updated := txn
	updated.SetCategory(rule.Category)

	if Matches(*rule, txn) {
		if err := store.IncrementRuleMatchCount(ctx, rule.ID); err != nil {
			return updated, fmt.Errorf("failed to record match for rule %d: %w", rule.ID, err)
		}
		rule.MatchCount++
	}

	return updated, nil
}
