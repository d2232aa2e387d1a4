package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryKind separates fixed recurring categories from discretionary ones.
type CategoryKind string

// Category kinds.
const (
	KindFixed    CategoryKind = "fixed"
	KindVariable CategoryKind = "variable"
)

// Budget holds a user's budgeted amount per category.
type Budget struct {
	Amounts map[string]decimal.Decimal
	UserID  string
}

// NewBudget creates an empty budget for a user.
func NewBudget(userID string) Budget {
	return Budget{UserID: userID, Amounts: make(map[string]decimal.Decimal)}
}

// Amount returns the budgeted amount for a category, zero when unbudgeted.
func (b Budget) Amount(category string) decimal.Decimal {
	if b.Amounts == nil {
		return decimal.Zero
	}
	return b.Amounts[category]
}

// Categories returns the budgeted category names in sorted order.
func (b Budget) Categories() []string {
	names := make([]string, 0, len(b.Amounts))
	for name := range b.Amounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CategoryData is the rollup of one category over a reporting window.
type CategoryData struct {
	Budgeted    decimal.Decimal
	Actual      decimal.Decimal
	Remaining   decimal.Decimal
	Name        string
	Kind        CategoryKind
	PercentUsed float64
	Count       int
}

// OverBudget reports whether actual spending exceeded the budget.
func (c CategoryData) OverBudget() bool {
	return c.Remaining.IsNegative()
}
