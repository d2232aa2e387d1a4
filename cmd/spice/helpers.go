package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-budget/internal/common"
	"github.com/Veraticus/spice-budget/internal/config"
	"github.com/Veraticus/spice-budget/internal/model"
	"github.com/Veraticus/spice-budget/internal/service"
	"github.com/Veraticus/spice-budget/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultUser = "default"

// monthLayout is the --month flag format.
const monthLayout = "2006-01"

var timeNow = time.Now

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(config.DatabasePath())
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func closeStorage(store service.Storage) {
	if err := store.Close(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}

func currentUser() string {
	if user := strings.TrimSpace(viper.GetString("user.id")); user != "" {
		return user
	}
	return defaultUser
}

// addWindowFlags registers --month, --from and --to on a command.
func addWindowFlags(cmd *cobra.Command) {
	cmd.Flags().String("month", "", "calendar month to report on (YYYY-MM, default: current month)")
	cmd.Flags().String("from", "", "start date (YYYY-MM-DD); overrides --month")
	cmd.Flags().String("to", "", "end date (YYYY-MM-DD); overrides --month")
}

// windowFromFlags resolves the reporting window from --from/--to or --month.
func windowFromFlags(cmd *cobra.Command, now time.Time) (model.DateWindow, error) {
	month, _ := cmd.Flags().GetString("month")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	return parseWindow(month, from, to, now)
}

func parseWindow(month, from, to string, now time.Time) (model.DateWindow, error) {
	window := model.MonthWindow(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC))

	if month != "" {
		start, err := time.Parse(monthLayout, month)
		if err != nil {
			return window, common.NewUserError(fmt.Sprintf("invalid month %q, expected YYYY-MM", month), err)
		}
		window = model.MonthWindow(start)
	}

	if from != "" {
		start, err := time.Parse(model.DateLayout, from)
		if err != nil {
			return window, common.NewUserError(fmt.Sprintf("invalid --from date %q, expected YYYY-MM-DD", from), err)
		}
		window.Start = start
	}
	if to != "" {
		end, err := time.Parse(model.DateLayout, to)
		if err != nil {
			return window, common.NewUserError(fmt.Sprintf("invalid --to date %q, expected YYYY-MM-DD", to), err)
		}
		window.End = end
	}

	if window.End.Before(window.Start) {
		return window, common.NewUserError("end date is before start date", nil)
	}
	return window, nil
}

// parseMoney parses a dollar amount, tolerating a leading $ and thousands separators.
func parseMoney(raw string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(raw))
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, common.NewUserError(fmt.Sprintf("invalid amount %q", raw), err)
	}
	return amount, nil
}

// optionalMoney parses a decimal flag, returning nil when it was not given.
func optionalMoney(cmd *cobra.Command, name string) (*decimal.Decimal, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	raw, _ := cmd.Flags().GetString(name)
	amount, err := parseMoney(raw)
	if err != nil {
		return nil, err
	}
	return &amount, nil
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

func printLine(cmd *cobra.Command, args ...any) {
	fmt.Fprintln(cmd.OutOrStdout(), args...)
}
