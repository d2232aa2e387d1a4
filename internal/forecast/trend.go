package forecast

import (
	"math"

	"github.com/Veraticus/spice-budget/internal/model"
)

// TrendThreshold is the slope, in currency per month, a series must exceed to count as moving.
const TrendThreshold = 1.0

// ClassifySavings labels the saved-amount slope.
func ClassifySavings(slope float64) model.SavingsTrend {
	switch {
	case slope > TrendThreshold:
		return model.SavingsImproving
	case slope < -TrendThreshold:
		return model.SavingsDeclining
	default:
		return model.SavingsStable
	}
}

// ClassifySpend labels the actual-spend slope and reports whether the direction is favorable.
// Falling spend is favorable; flat spend is not unfavorable.
func ClassifySpend(slope float64) (model.SpendTrend, bool) {
	switch {
	case slope > TrendThreshold:
		return model.SpendIncreasing, false
	case slope < -TrendThreshold:
		return model.SpendDecreasing, true
	default:
		return model.SpendStable, true
	}
}

// Confidence converts R² into a 0-100 percentage.
func Confidence(rSquared float64) int {
	pct := rSquared * 100
	if math.IsNaN(pct) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, pct))))
}
