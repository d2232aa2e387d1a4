package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Veraticus/spice-budget/internal/model"
)

// Forecast errors.
var (
	// ErrInsufficientHistory means there are fewer than two months to fit.
	// Callers show "not enough data" rather than treating it as a failure.
	ErrInsufficientHistory = errors.New("insufficient history for forecast")
	// ErrInvalidHorizon means the horizon is not one of the supported values.
	ErrInvalidHorizon = errors.New("invalid forecast horizon")
)

// Supported horizons in months.
const (
	ShortHorizon = 3
	LongHorizon  = 6
)

// MinHistory is the number of months required to build a forecast.
const MinHistory = 2

// ValidHorizon reports whether the horizon is supported.
func ValidHorizon(horizon int) bool {
	return horizon == ShortHorizon || horizon == LongHorizon
}

// Build projects a category's spending and savings horizon months past its history.
func Build(category string, history []model.CategoryMonthHistory, horizon int) (*model.ForecastResult, error) {
	if len(history) < MinHistory {
		return nil, ErrInsufficientHistory
	}
	if !ValidHorizon(horizon) {
		return nil, fmt.Errorf("%w: %d (must be %d or %d)", ErrInvalidHorizon, horizon, ShortHorizon, LongHorizon)
	}

	sorted := make([]model.CategoryMonthHistory, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Before(sorted[j])
	})

	actuals := make([]float64, len(sorted))
	saved := make([]float64, len(sorted))
	for i, h := range sorted {
		actuals[i] = h.Actual
		saved[i] = h.Saved()
	}

	actualFit := FitSeries(actuals)
	savedFit := FitSeries(saved)

	last := sorted[len(sorted)-1]
	year, month := last.Year, last.Month
	n := len(sorted)

	future := make([]model.ForecastPoint, 0, horizon)
	var projected float64
	for i := 0; i < horizon; i++ {
		year, month = nextMonth(year, month)
		x := float64(n + i)
		point := model.ForecastPoint{
			Label:  model.MonthLabel(year, month),
			Year:   year,
			Month:  month,
			Actual: math.Max(0, actualFit.Predict(x)),
			Saved:  savedFit.Predict(x),
		}
		projected += point.Saved
		future = append(future, point)
	}

	spendTrend, favorable := ClassifySpend(actualFit.Slope)

	return &model.ForecastResult{
		Category:         category,
		Horizon:          horizon,
		History:          sorted,
		Future:           future,
		SavedSlope:       savedFit.Slope,
		ActualSlope:      actualFit.Slope,
		RSquared:         math.Max(0, savedFit.RSquared),
		Confidence:       Confidence(savedFit.RSquared),
		SavingsTrend:     ClassifySavings(savedFit.Slope),
		SpendTrend:       spendTrend,
		SpendFavorable:   favorable,
		ProjectedSavings: projected,
	}, nil
}

// nextMonth advances a zero-based month index, rolling into the next year after December.
func nextMonth(year, month int) (int, int) {
	month++
	if month > 11 {
		return year + 1, 0
	}
	return year, month
}
