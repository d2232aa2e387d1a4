package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/spice-budget/internal/charts"
	"github.com/Veraticus/spice-budget/internal/cli"
	"github.com/Veraticus/spice-budget/internal/common"
	"github.com/Veraticus/spice-budget/internal/config"
	"github.com/Veraticus/spice-budget/internal/engine"
	"github.com/Veraticus/spice-budget/internal/forecast"
	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast <category>",
		Short: "Project a category's spending and savings",
		Long: `Fit a trend line through a category's monthly history and project it forward.

The history ends with the last complete month unless --through is given.
Saved is budgeted minus actual for each month.

Examples:
  spice forecast Groceries
  spice forecast Dining --horizon 6 --months 12 --chart dining.png`,
		Args: cobra.ExactArgs(1),
		RunE: runForecast,
	}

	cmd.Flags().Int("horizon", 0, "months to project, 3 or 6 (default: forecast.horizon)")
	cmd.Flags().Int("months", 0, "months of history to fit (default: forecast.months)")
	cmd.Flags().String("through", "", "last month of history (YYYY-MM, default: last complete month)")
	cmd.Flags().String("chart", "", "also write a PNG line chart to this path")

	return cmd
}

// forecastSettings resolves horizon, history length and end month from flags and config.
func forecastSettings(cmd *cobra.Command, now time.Time) (horizon, months int, end time.Time, err error) {
	horizon, _ = cmd.Flags().GetInt("horizon")
	if horizon == 0 {
		horizon = viper.GetInt("forecast.horizon")
	}
	if !forecast.ValidHorizon(horizon) {
		return 0, 0, end, common.NewUserError(
			fmt.Sprintf("horizon must be %d or %d months", forecast.ShortHorizon, forecast.LongHorizon), forecast.ErrInvalidHorizon)
	}

	months, _ = cmd.Flags().GetInt("months")
	if months == 0 {
		months = viper.GetInt("forecast.months")
	}
	if months < forecast.MinHistory {
		return 0, 0, end, common.NewUserError(
			fmt.Sprintf("at least %d months of history are needed", forecast.MinHistory), forecast.ErrInsufficientHistory)
	}

	through, _ := cmd.Flags().GetString("through")
	if through == "" {
		end = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		return horizon, months, end, nil
	}
	end, err = time.Parse(monthLayout, through)
	if err != nil {
		return 0, 0, end, common.NewUserError(fmt.Sprintf("invalid month %q, expected YYYY-MM", through), err)
	}
	return horizon, months, end, nil
}

func runForecast(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	category := args[0]
	chartPath, _ := cmd.Flags().GetString("chart")

	horizon, months, end, err := forecastSettings(cmd, timeNow())
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	result, err := engine.New(store).Forecast(ctx, currentUser(), category, end, months, horizon)
	if err != nil {
		return err
	}

	printLine(cmd, renderForecast(result))

	if chartPath != "" {
		if err := writeForecastChart(chartPath, result); err != nil {
			return err
		}
		printLine(cmd, cli.FormatSuccess(cli.ChartIcon+" Chart written to "+config.ExpandPath(chartPath)))
	}
	return nil
}

func renderForecast(result *model.ForecastResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Savings trend:  %s\n", cli.FormatSavingsTrend(result.SavingsTrend))
	fmt.Fprintf(&b, "Spending trend: %s\n", cli.FormatSpendTrend(result.SpendTrend, result.SpendFavorable))
	fmt.Fprintf(&b, "Projected savings over %d months: %s\n", result.Horizon, cli.FormatMoney(decimal.NewFromFloat(result.ProjectedSavings)))
	fmt.Fprintf(&b, "Confidence: %d%%", result.Confidence)

	rows := make([][]string, 0, len(result.History)+len(result.Future))
	for _, h := range result.History {
		rows = append(rows, []string{
			h.Label,
			cli.FormatMoney(decimal.NewFromFloat(h.Budgeted)),
			cli.FormatMoney(decimal.NewFromFloat(h.Actual)),
			cli.FormatMoney(decimal.NewFromFloat(h.Saved())),
			"",
		})
	}
	for _, p := range result.Future {
		rows = append(rows, []string{
			p.Label,
			"",
			cli.FormatMoney(decimal.NewFromFloat(p.Actual)),
			cli.FormatMoney(decimal.NewFromFloat(p.Saved)),
			"projected",
		})
	}

	table := cli.RenderTable([]string{"Month", "Budgeted", "Actual", "Saved", ""}, rows)
	return cli.RenderBox(cli.ChartIcon+" "+result.Category+" forecast", b.String()) + "\n" + table
}

func writeForecastChart(path string, result *model.ForecastResult) error {
	f, err := os.Create(config.ExpandPath(path)) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return charts.RenderForecast(f, result)
}
