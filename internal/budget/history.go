package budget

import (
	"time"

	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/shopspring/decimal"
)

// MonthlyHistory builds one history entry per calendar month for a category,
// starting at the month containing from. Months without activity report an actual of 0.
func MonthlyHistory(txns []model.Transaction, category string, budgeted decimal.Decimal, from time.Time, months int) []model.CategoryMonthHistory {
	if months <= 0 {
		return nil
	}

	start := monthStart(from)
	sums, _ := bucketByMonth(txns, category, start, months)

	income := IsIncomeCategory(category)
	planned := budgeted.InexactFloat64()
	history := make([]model.CategoryMonthHistory, 0, months)
	for i, sum := range sums {
		if income {
			sum = sum.Neg()
		}
		month := start.AddDate(0, i, 0)
		history = append(history, model.NewCategoryMonthHistory(
			month.Year(), int(month.Month())-1, planned, sum.InexactFloat64()))
	}
	return history
}

// ActiveMonths counts the months, out of the months starting at the month containing from,
// in which the category has at least one transaction.
func ActiveMonths(txns []model.Transaction, category string, from time.Time, months int) int {
	if months <= 0 {
		return 0
	}
	_, active := bucketByMonth(txns, category, monthStart(from), months)
	n := 0
	for _, seen := range active {
		if seen {
			n++
		}
	}
	return n
}

// bucketByMonth sums the category's amounts per month and flags the months with activity.
func bucketByMonth(txns []model.Transaction, category string, start time.Time, months int) ([]decimal.Decimal, []bool) {
	sums := make([]decimal.Decimal, months)
	for i := range sums {
		sums[i] = decimal.Zero
	}
	active := make([]bool, months)

	for i := range txns {
		txn := &txns[i]
		if txn.PrimaryCategory() != category {
			continue
		}
		date, ok := txn.EffectiveDate()
		if !ok {
			continue
		}
		idx := monthIndex(start, date)
		if idx < 0 || idx >= months {
			continue
		}
		sums[idx] = sums[idx].Add(txn.Amount)
		active[idx] = true
	}
	return sums, active
}

func monthStart(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// monthIndex returns how many calendar months ts lies after start.
func monthIndex(start, ts time.Time) int {
	return (ts.Year()-start.Year())*12 + int(ts.Month()) - int(start.Month())
}
