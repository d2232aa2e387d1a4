// Package pattern evaluates user-defined category rules against transactions.
package pattern

import (
	"context"

	"github.com/Veraticus/spice-budget/internal/model"
)

// Matcher evaluates transactions against category rules.
type Matcher interface {
	// Match returns every active rule the transaction satisfies, best first.
	Match(ctx context.Context, txn model.Transaction) []Rule
	// Best returns the rule that decides the transaction's category.
	Best(ctx context.Context, txn model.Transaction) (Rule, bool)
}

// MatchRecorder receives a notification each time a rule fires.
// Implementations must increment atomically at the storage boundary.
type MatchRecorder interface {
	IncrementRuleMatchCount(ctx context.Context, id int) error
}

// RuleStore is the persistence contract for category rules.
type RuleStore interface {
	MatchRecorder
	CreateRule(ctx context.Context, rule *model.CategoryRule) error
	GetRule(ctx context.Context, id int) (*model.CategoryRule, error)
	ListRules(ctx context.Context, userID string, activeOnly bool) ([]model.CategoryRule, error)
	UpdateRule(ctx context.Context, rule *model.CategoryRule) error
	DeleteRule(ctx context.Context, id int) error
	RestoreRule(ctx context.Context, rule *model.CategoryRule) error
	SetRuleActive(ctx context.Context, id int, active bool) error
}

// Suggestion is a candidate category with the reason it was proposed.
type Suggestion struct {
	Category string
	Reason   string
	RuleID   int
	Priority int
}

// Rule is an alias to the model.CategoryRule type for convenience.
type Rule = model.CategoryRule
