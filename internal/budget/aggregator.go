// Package budget rolls transactions up into per-category budget reports.
package budget

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/shopspring/decimal"
)

var (
	fixedKeywords = []string{"rent", "utilities", "electric", "gas", "income", "insurance"}
	incomeKeyword = "income"
	hundred       = decimal.NewFromInt(100)
)

// Summary is a user's budget report over one window.
// Totals cover spending categories only; income categories are reported separately.
type Summary struct {
	Window         model.DateWindow
	TotalBudgeted  decimal.Decimal
	TotalActual    decimal.Decimal
	TotalRemaining decimal.Decimal
	Income         decimal.Decimal // inflows in the window, positive
	Expenses       decimal.Decimal // outflows in the window, positive
	UserID         string
	Categories     []model.CategoryData
	Transactions   int
}

// Category returns the rollup for name, if present.
func (s *Summary) Category(name string) (model.CategoryData, bool) {
	for _, c := range s.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return model.CategoryData{}, false
}

// KindOf classifies a category name as fixed or variable.
func KindOf(name string) model.CategoryKind {
	lower := strings.ToLower(name)
	for _, keyword := range fixedKeywords {
		if strings.Contains(lower, keyword) {
			return model.KindFixed
		}
	}
	return model.KindVariable
}

// IsIncomeCategory reports whether a category collects inflows.
func IsIncomeCategory(name string) bool {
	return strings.Contains(strings.ToLower(name), incomeKeyword)
}

// Aggregate builds the per-category rollup of txns inside window.
func Aggregate(userID string, txns []model.Transaction, b model.Budget, window model.DateWindow) Summary {
	logger := slog.Default().With("component", "aggregator", "user_id", userID)

	budgeted := b.Amounts
	if b.UserID != "" && b.UserID != userID {
		logger.Warn("Ignoring budget owned by another user", "budget_user_id", b.UserID)
		budgeted = nil
	}

	summary := Summary{
		UserID:         userID,
		Window:         window,
		TotalBudgeted:  decimal.Zero,
		TotalActual:    decimal.Zero,
		TotalRemaining: decimal.Zero,
		Income:         decimal.Zero,
		Expenses:       decimal.Zero,
	}

	actuals := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	for name := range budgeted {
		actuals[name] = decimal.Zero
	}

	for i := range txns {
		txn := &txns[i]
		date, ok := txn.EffectiveDate()
		if !ok || !window.Contains(date) {
			continue
		}
		summary.Transactions++

		switch {
		case txn.IsExpense():
			summary.Expenses = summary.Expenses.Add(txn.Amount)
		case txn.IsIncome():
			summary.Income = summary.Income.Sub(txn.Amount)
		}

		name := txn.PrimaryCategory()
		actuals[name] = actuals[name].Add(txn.Amount)
		counts[name]++
	}

	summary.Categories = make([]model.CategoryData, 0, len(actuals))
	for name, sum := range actuals {
		data := rollup(name, budgeted[name], sum, counts[name])
		summary.Categories = append(summary.Categories, data)

		if IsIncomeCategory(name) {
			continue
		}
		summary.TotalBudgeted = summary.TotalBudgeted.Add(data.Budgeted)
		summary.TotalActual = summary.TotalActual.Add(data.Actual)
	}
	summary.TotalRemaining = summary.TotalBudgeted.Sub(summary.TotalActual)

	sort.Slice(summary.Categories, func(i, j int) bool {
		return summary.Categories[i].Name < summary.Categories[j].Name
	})

	logger.Debug("Aggregated budget",
		"window", window.String(),
		"categories", len(summary.Categories),
		"transactions", summary.Transactions)

	return summary
}

// rollup derives a category's report line from its budgeted amount and signed transaction sum.
func rollup(name string, budgeted, sum decimal.Decimal, count int) model.CategoryData {
	actual := sum
	if IsIncomeCategory(name) {
		actual = sum.Neg()
	}

	data := model.CategoryData{
		Name:      name,
		Kind:      KindOf(name),
		Budgeted:  budgeted,
		Actual:    actual,
		Remaining: budgeted.Sub(actual),
		Count:     count,
	}
	if !budgeted.IsZero() {
		data.PercentUsed = actual.Div(budgeted).Mul(hundred).InexactFloat64()
	}
	return data
}

// TopSpending returns the n spending categories with the largest actuals.
// Ties are broken by name. Income categories are excluded.
func TopSpending(categories []model.CategoryData, n int) []model.CategoryData {
	if n <= 0 {
		return nil
	}

	ranked := make([]model.CategoryData, 0, len(categories))
	for _, c := range categories {
		if IsIncomeCategory(c.Name) {
			continue
		}
		ranked = append(ranked, c)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if cmp := ranked[i].Actual.Cmp(ranked[j].Actual); cmp != 0 {
			return cmp > 0
		}
		return ranked[i].Name < ranked[j].Name
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
