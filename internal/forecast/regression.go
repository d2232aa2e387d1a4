// Package forecast projects category spending and savings forward from monthly history.
package forecast

// Regression is an ordinary least-squares line fit.
type Regression struct {
	Slope     float64
	Intercept float64
	RSquared  float64
}

// Predict evaluates the fitted line at x.
func (r Regression) Predict(x float64) float64 {
	return r.Slope*x + r.Intercept
}

// Fit computes the least-squares line through (xs[i], ys[i]).
// With fewer than two points the fit is flat through the first y value.
func Fit(xs, ys []float64) Regression {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	if n < 2 {
		if len(ys) > 0 {
			return Regression{Intercept: ys[0]}
		}
		return Regression{}
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var num, den float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		num += dx * (ys[i] - meanY)
		den += dx * dx
	}

	slope := 0.0
	if den != 0 {
		slope = num / den
	}
	intercept := meanY - slope*meanX

	var ssRes, ssTot float64
	for i := 0; i < n; i++ {
		predicted := slope*xs[i] + intercept
		ssRes += (ys[i] - predicted) * (ys[i] - predicted)
		ssTot += (ys[i] - meanY) * (ys[i] - meanY)
	}

	rSquared := 1.0
	if ssTot != 0 {
		rSquared = 1 - ssRes/ssTot
	}

	return Regression{Slope: slope, Intercept: intercept, RSquared: rSquared}
}

// FitSeries fits ys against their index positions 0..n-1.
func FitSeries(ys []float64) Regression {
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	return Fit(xs, ys)
}
