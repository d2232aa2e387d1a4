package model

import (
	"fmt"
	"time"
)

// MonthLabelLayout formats month labels such as "Jan 2025".
const MonthLabelLayout = "Jan 2006"

// MonthLabel renders the label for a year and zero-based month index.
func MonthLabel(year, month int) string {
	return time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC).Format(MonthLabelLayout)
}

// CategoryMonthHistory holds one month of budgeted and actual figures for a category.
type CategoryMonthHistory struct {
	Label    string
	Year     int
	Month    int // zero-based, 0 = January
	Budgeted float64
	Actual   float64
}

// NewCategoryMonthHistory builds a history entry with its label filled in.
func NewCategoryMonthHistory(year, month int, budgeted, actual float64) CategoryMonthHistory {
	return CategoryMonthHistory{
		Label:    MonthLabel(year, month),
		Year:     year,
		Month:    month,
		Budgeted: budgeted,
		Actual:   actual,
	}
}

// Saved is the amount left under budget. Negative means overspent.
func (h CategoryMonthHistory) Saved() float64 {
	return h.Budgeted - h.Actual
}

// Before reports whether h is an earlier month than other.
func (h CategoryMonthHistory) Before(other CategoryMonthHistory) bool {
	if h.Year != other.Year {
		return h.Year < other.Year
	}
	return h.Month < other.Month
}

// SavingsTrend describes the direction of the saved-amount series.
type SavingsTrend string

// Savings trends.
const (
	SavingsImproving SavingsTrend = "Improving"
	SavingsDeclining SavingsTrend = "Declining"
	SavingsStable    SavingsTrend = "Stable"
)

// SpendTrend describes the direction of the actual-spend series.
type SpendTrend string

// Spend trends.
const (
	SpendIncreasing SpendTrend = "Increasing"
	SpendDecreasing SpendTrend = "Decreasing"
	SpendStable     SpendTrend = "Stable"
)

// ForecastPoint is one projected month.
type ForecastPoint struct {
	Label  string
	Year   int
	Month  int
	Actual float64 // never negative
	Saved  float64
}

// ForecastResult is the projection for one category over one horizon.
type ForecastResult struct {
	Category         string
	SavingsTrend     SavingsTrend
	SpendTrend       SpendTrend
	History          []CategoryMonthHistory
	Future           []ForecastPoint
	Horizon          int
	SavedSlope       float64
	ActualSlope      float64
	RSquared         float64
	ProjectedSavings float64
	Confidence       int
	SpendFavorable   bool
}

// Summary returns a one-line description of the forecast.
func (f *ForecastResult) Summary() string {
	return fmt.Sprintf("%s: savings %s (%+.2f/mo), spending %s (%+.2f/mo), confidence %d%%",
		f.Category, f.SavingsTrend, f.SavedSlope, f.SpendTrend, f.ActualSlope, f.Confidence)
}
