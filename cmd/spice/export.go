package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-budget/internal/cli"
	"github.com/Veraticus/spice-budget/internal/common"
	"github.com/Veraticus/spice-budget/internal/config"
	"github.com/Veraticus/spice-budget/internal/engine"
	"github.com/Veraticus/spice-budget/internal/forecast"
	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/Veraticus/spice-budget/internal/sheets"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export budget reports",
	}

	cmd.AddCommand(exportSheetsCmd())

	return cmd
}

func exportSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Write the budget summary and forecasts to Google Sheets",
		Long: `Write the budget summary for the window, followed by a forecast for each
budgeted category, to a Google Sheets spreadsheet.

Categories without enough history to forecast are left out of the forecast section.`,
		Args: cobra.NoArgs,
		RunE: runExportSheets,
	}

	addWindowFlags(cmd)
	cmd.Flags().StringSlice("forecast", nil, "categories to forecast (default: every budgeted category)")
	cmd.Flags().Int("horizon", 0, "months to project, 3 or 6 (default: forecast.horizon)")
	cmd.Flags().Int("months", 0, "months of history to fit (default: forecast.months)")
	cmd.Flags().String("through", "", "last month of forecast history (YYYY-MM, default: last complete month)")

	return cmd
}

func runExportSheets(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	categories, _ := cmd.Flags().GetStringSlice("forecast")

	window, err := windowFromFlags(cmd, timeNow())
	if err != nil {
		return err
	}
	horizon, months, end, err := forecastSettings(cmd, timeNow())
	if err != nil {
		return err
	}

	sheetsConfig, err := config.LoadSheetsConfig()
	if err != nil {
		return common.NewUserError("Google Sheets is not configured", err)
	}
	writer, err := sheets.NewWriter(ctx, *sheetsConfig, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create sheets writer: %w", err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	eng := engine.New(store)
	summary, err := eng.Summary(ctx, currentUser(), window)
	if err != nil {
		return err
	}

	if len(categories) == 0 {
		b, err := store.GetBudget(ctx, currentUser())
		if err != nil {
			return fmt.Errorf("failed to load budget: %w", err)
		}
		categories = b.Categories()
	}

	forecasts := make([]*model.ForecastResult, 0, len(categories))
	for _, category := range categories {
		result, err := eng.Forecast(ctx, currentUser(), category, end, months, horizon)
		if errors.Is(err, forecast.ErrInsufficientHistory) {
			slog.Warn("Skipping forecast", "category", category, "error", err)
			continue
		}
		if err != nil {
			return err
		}
		forecasts = append(forecasts, result)
	}

	if err := writer.Write(ctx, summary, forecasts); err != nil {
		return fmt.Errorf("failed to export report: %w", err)
	}

	printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Exported %d categories and %d forecasts", len(summary.Categories), len(forecasts))))
	return nil
}
