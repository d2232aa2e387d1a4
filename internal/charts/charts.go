// Package charts renders forecasts and spending rollups as PNG images.
package charts

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	barWidth   = 60
	barSpacing = 20
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to chart")

var (
	actualColor = drawing.Color{R: 214, G: 69, B: 65, A: 255}
	savedColor  = drawing.Color{R: 46, G: 139, B: 87, A: 255}
	barColor    = drawing.Color{R: 70, G: 130, B: 180, A: 255}
)

func background() chart.Style {
	return chart.Style{
		Padding:   chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		FillColor: chart.ColorWhite,
	}
}

func dollars(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("$%.0f", f)
	}
	return ""
}

// RenderForecast draws the history and projection of one forecast as a line chart.
// Projected lines start at the last observed month so the two segments connect.
func RenderForecast(w io.Writer, result *model.ForecastResult) error {
	if result == nil || len(result.History) == 0 {
		return ErrNoData
	}

	var (
		ticks               []chart.Tick
		histX, histActual   []float64
		histSaved, futX     []float64
		futActual, futSaved []float64
	)
	lowest, highest := math.Inf(1), math.Inf(-1)
	track := func(values ...float64) {
		for _, v := range values {
			lowest = math.Min(lowest, v)
			highest = math.Max(highest, v)
		}
	}

	for i, h := range result.History {
		x := float64(i)
		ticks = append(ticks, chart.Tick{Value: x, Label: h.Label})
		histX = append(histX, x)
		histActual = append(histActual, h.Actual)
		histSaved = append(histSaved, h.Saved())
		track(h.Actual, h.Saved())
	}

	last := len(result.History) - 1
	futX = append(futX, float64(last))
	futActual = append(futActual, histActual[last])
	futSaved = append(futSaved, histSaved[last])
	for i, p := range result.Future {
		x := float64(last + 1 + i)
		ticks = append(ticks, chart.Tick{Value: x, Label: p.Label})
		futX = append(futX, x)
		futActual = append(futActual, p.Actual)
		futSaved = append(futSaved, p.Saved)
		track(p.Actual, p.Saved)
	}

	if len(ticks) < 2 {
		return ErrNoData
	}

	dashed := []float64{5.0, 5.0}
	graph := chart.Chart{
		Title:      fmt.Sprintf("%s forecast (%d months)", result.Category, result.Horizon),
		Width:      1024,
		Height:     512,
		Background: background(),
		XAxis: chart.XAxis{
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: 0, Max: float64(len(ticks) - 1)},
		},
		YAxis: chart.YAxis{
			ValueFormatter: dollars,
			Range:          paddedRange(lowest, highest),
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Actual",
				XValues: histX,
				YValues: histActual,
				Style:   chart.Style{StrokeColor: actualColor, StrokeWidth: 2},
			},
			chart.ContinuousSeries{
				Name:    "Saved",
				XValues: histX,
				YValues: histSaved,
				Style:   chart.Style{StrokeColor: savedColor, StrokeWidth: 2},
			},
			chart.ContinuousSeries{
				Name:    "Projected actual",
				XValues: futX,
				YValues: futActual,
				Style:   chart.Style{StrokeColor: actualColor, StrokeWidth: 2, StrokeDashArray: dashed},
			},
			chart.ContinuousSeries{
				Name:    "Projected saved",
				XValues: futX,
				YValues: futSaved,
				Style:   chart.Style{StrokeColor: savedColor, StrokeWidth: 2, StrokeDashArray: dashed},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render forecast chart: %w", err)
	}
	return nil
}

// RenderTopSpending draws one bar per category, in the order given.
func RenderTopSpending(w io.Writer, categories []model.CategoryData) error {
	if len(categories) == 0 {
		return ErrNoData
	}

	bars := make([]chart.Value, 0, len(categories))
	lowest, highest := 0.0, 0.0
	for _, c := range categories {
		value := c.Actual.InexactFloat64()
		lowest = math.Min(lowest, value)
		highest = math.Max(highest, value)
		bars = append(bars, chart.Value{
			Label: c.Name,
			Value: value,
			Style: chart.Style{StrokeColor: barColor, FillColor: barColor},
		})
	}

	graph := chart.BarChart{
		Title:      "Top spending",
		Width:      max(640, len(bars)*(barWidth+barSpacing)+160),
		Height:     512,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Background: background(),
		YAxis: chart.YAxis{
			ValueFormatter: dollars,
			Range:          paddedRange(lowest, highest),
		},
		Bars: bars,
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render spending chart: %w", err)
	}
	return nil
}

// paddedRange widens [lo, hi] by a tenth so lines do not sit on the frame.
// A flat series gets a fixed band.
func paddedRange(lo, hi float64) *chart.ContinuousRange {
	pad := (hi - lo) / 10
	if pad == 0 {
		pad = math.Max(1, math.Abs(hi)/10)
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
